// Package api is the HTTP boundary in front of the booking, reporting and feedback services.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"skincare/internal/booking"
	"skincare/internal/domain"
	"skincare/internal/feedback"
	"skincare/internal/models"
	"skincare/internal/reporting"
)

// EventDirectoryChanged is published after a customer, service or therapist is created.
const EventDirectoryChanged = "directory.changed"

// DirectoryStore creates and lists identity records.
type DirectoryStore interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	CreateService(ctx context.Context, s *models.Service) error
	CreateTherapist(ctx context.Context, t *models.Therapist) error
	ListServices(ctx context.Context) ([]models.Service, error)
}

// Config holds HTTP server settings.
type Config struct {
	Port              int
	APIKey            string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Deps are the services the handlers call.
type Deps struct {
	Bookings  *booking.Service
	Reports   *reporting.Engine
	Feedback  *feedback.Service
	Directory DirectoryStore
	Events    domain.EventPublisher
}

type HTTPServer struct {
	server    *http.Server
	bookings  *booking.Service
	reports   *reporting.Engine
	feedback  *feedback.Service
	directory DirectoryStore
	events    domain.EventPublisher
	apiKey    string
	limiter   *RateLimiter
	logger    zerolog.Logger
}

func NewHTTPServer(cfg Config, deps Deps, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		bookings:  deps.Bookings,
		reports:   deps.Reports,
		feedback:  deps.Feedback,
		directory: deps.Directory,
		events:    deps.Events,
		apiKey:    cfg.APIKey,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, 10*time.Minute)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleBookingsInRange)
	mux.HandleFunc("GET /api/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("PUT /api/bookings/{id}/checkin", s.handleCheckIn)
	mux.HandleFunc("PUT /api/bookings/{id}/assign", s.handleAssignTherapist)
	mux.HandleFunc("PUT /api/bookings/{id}/result", s.handleRecordResults)
	mux.HandleFunc("PUT /api/bookings/{id}/checkout", s.handleCheckOut)
	mux.HandleFunc("POST /api/bookings/{id}/payment", s.handlePayment)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/customers/{id}/bookings", s.handleCustomerBookings)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handlePeriodReport)
	mux.HandleFunc("GET /api/reports/export", s.handleExportReport)

	mux.HandleFunc("POST /api/feedback", s.handleCreateFeedback)
	mux.HandleFunc("GET /api/services/{id}/feedback", s.handleServiceFeedback)
	mux.HandleFunc("GET /api/therapists/{id}/feedback", s.handleTherapistFeedback)

	mux.HandleFunc("POST /api/customers", s.handleCreateCustomer)
	mux.HandleFunc("POST /api/services", s.handleCreateService)
	mux.HandleFunc("GET /api/services", s.handleListServices)
	mux.HandleFunc("POST /api/therapists", s.handleCreateTherapist)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event")
	}
}
