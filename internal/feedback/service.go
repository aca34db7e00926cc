// Package feedback records customer ratings of booked visits.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skincare/internal/domain"
	"skincare/internal/models"
)

// EventCreated is published after a rating is stored.
const EventCreated = "feedback.created"

const (
	MinRating = 1
	MaxRating = 5
)

// CreateRequest is a new rating. IsPublic defaults to true when nil.
type CreateRequest struct {
	BookingID int64
	Rating    int
	Comment   string
	IsPublic  *bool
}

type Service struct {
	feedback  domain.FeedbackRepository
	bookings  domain.BookingRepository
	directory domain.Directory
	events    domain.EventPublisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(
	feedback domain.FeedbackRepository,
	bookings domain.BookingRepository,
	directory domain.Directory,
	events domain.EventPublisher,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		feedback:  feedback,
		bookings:  bookings,
		directory: directory,
		events:    events,
		now:       time.Now,
		logger:    logger.With().Str("component", "feedback").Logger(),
	}
}

// Create stores a rating for an existing booking, copying its customer, service and therapist.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Feedback, error) {
	if req.BookingID <= 0 {
		return nil, domain.NewValidation("booking_id", "is required")
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, domain.NewValidation("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}

	b, err := s.bookings.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	public := true
	if req.IsPublic != nil {
		public = *req.IsPublic
	}

	f := &models.Feedback{
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ServiceID:   b.ServiceID,
		TherapistID: b.TherapistID,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
		IsPublic:    public,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.feedback.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	s.logger.Info().Int64("feedback_id", f.ID).Int64("booking_id", f.BookingID).Int("rating", f.Rating).Msg("feedback stored")
	if s.events != nil {
		if err := s.events.PublishJSON(EventCreated, f); err != nil {
			s.logger.Error().Err(err).Msg("publish feedback event")
		}
	}
	return f, nil
}

// ByService returns public feedback of an existing service.
func (s *Service) ByService(ctx context.Context, serviceID int64) ([]models.Feedback, error) {
	if _, err := s.directory.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.feedback.ListFeedbackByService(ctx, serviceID, true)
}

// ByTherapist returns public feedback of an existing therapist.
func (s *Service) ByTherapist(ctx context.Context, therapistID int64) ([]models.Feedback, error) {
	if _, err := s.directory.GetTherapist(ctx, therapistID); err != nil {
		return nil, err
	}
	return s.feedback.ListFeedbackByTherapist(ctx, therapistID, true)
}
