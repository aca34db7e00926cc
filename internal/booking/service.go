package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"skincare/internal/domain"
	"skincare/internal/metrics"
	"skincare/internal/models"
)

// Lifecycle event types.
const (
	EventCreated          = "booking.created"
	EventCheckedIn        = "booking.checked_in"
	EventTherapistAssign  = "booking.therapist_assigned"
	EventResultsRecorded  = "booking.results_recorded"
	EventCheckedOut       = "booking.checked_out"
	EventPaymentProcessed = "booking.payment_processed"
	EventCancelled        = "booking.cancelled"
)

// EventTypes lists every event the service publishes.
var EventTypes = []string{
	EventCreated,
	EventCheckedIn,
	EventTherapistAssign,
	EventResultsRecorded,
	EventCheckedOut,
	EventPaymentProcessed,
	EventCancelled,
}

var opEvents = map[Operation]string{
	OpCheckIn:         EventCheckedIn,
	OpAssignTherapist: EventTherapistAssign,
	OpRecordResults:   EventResultsRecorded,
	OpCheckOut:        EventCheckedOut,
	OpProcessPayment:  EventPaymentProcessed,
	OpCancel:          EventCancelled,
}

// Event is the payload of every lifecycle event.
type Event struct {
	BookingID  int64                `json:"booking_id"`
	CustomerID int64                `json:"customer_id"`
	Operation  string               `json:"operation"`
	From       models.BookingStatus `json:"from,omitempty"`
	To         models.BookingStatus `json:"to"`
	At         time.Time            `json:"at"`
}

// CreateRequest holds the inputs of a new booking.
type CreateRequest struct {
	CustomerID      int64
	ServiceID       int64
	TherapistID     *int64
	AppointmentTime time.Time
	// Amount defaults to the service price when not set.
	Amount decimal.NullDecimal
}

func (r CreateRequest) validate() error {
	if r.CustomerID <= 0 {
		return domain.NewValidation("customer_id", "is required")
	}
	if r.ServiceID <= 0 {
		return domain.NewValidation("service_id", "is required")
	}
	if r.AppointmentTime.IsZero() {
		return domain.NewValidation("appointment_time", "is required")
	}
	if r.TherapistID != nil && *r.TherapistID <= 0 {
		return domain.NewValidation("therapist_id", "must be positive")
	}
	if r.Amount.Valid && r.Amount.Decimal.IsNegative() {
		return domain.NewValidation("amount", "must not be negative")
	}
	return nil
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used for every timestamp the service stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the booking lifecycle engine. All timestamps come from its own clock;
// mutations of the same booking id are serialized.
type Service struct {
	bookings  domain.BookingRepository
	directory domain.Directory
	events    domain.EventPublisher
	fsm       *FSM
	locks     *keyedMutex
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates the lifecycle engine. events may be nil.
func NewService(
	bookings domain.BookingRepository,
	directory domain.Directory,
	events domain.EventPublisher,
	logger *zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		bookings:  bookings,
		directory: directory,
		events:    events,
		fsm:       NewFSM(),
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger.With().Str("component", "booking").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking validates the request, resolves the referenced records and stores
// a new BOOKED, unpaid booking.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if _, err := s.directory.GetCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	service, err := s.directory.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if req.TherapistID != nil {
		if _, err := s.directory.GetTherapist(ctx, *req.TherapistID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	b := &models.Booking{
		CustomerID:      req.CustomerID,
		ServiceID:       req.ServiceID,
		TherapistID:     req.TherapistID,
		AppointmentTime: req.AppointmentTime.UTC(),
		Status:          models.StatusBooked,
		Amount:          req.Amount,
		IsPaid:          false,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if !b.Amount.Valid {
		b.Amount = decimal.NullDecimal{Decimal: service.Price, Valid: true}
	}

	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("customer_id", b.CustomerID).
		Int64("service_id", b.ServiceID).
		Time("appointment_time", b.AppointmentTime).
		Msg("booking created")
	s.publish(EventCreated, "create", "", b, now)

	return b, nil
}

// GetBooking returns a booking by id.
func (s *Service) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// CustomerBookings returns all bookings of an existing customer.
func (s *Service) CustomerBookings(ctx context.Context, customerID int64) ([]models.Booking, error) {
	if _, err := s.directory.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.bookings.GetBookingsByCustomer(ctx, customerID)
}

// BookingsInRange returns bookings with appointment time in [start, end].
func (s *Service) BookingsInRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	if start.After(end) {
		return nil, domain.NewValidation("start", "must not be after end")
	}
	return s.bookings.GetBookingsByDateRange(ctx, start.UTC(), end.UTC())
}

// CheckIn records the customer's arrival. Only BOOKED bookings can be checked in.
func (s *Service) CheckIn(ctx context.Context, id int64) (*models.Booking, error) {
	return s.apply(ctx, id, OpCheckIn, func(b *models.Booking, now time.Time) bool {
		b.CheckinTime = &now
		return true
	})
}

// AssignTherapist sets the therapist of a non-terminal booking without changing its status.
func (s *Service) AssignTherapist(ctx context.Context, id, therapistID int64) (*models.Booking, error) {
	if therapistID <= 0 {
		return nil, domain.NewValidation("therapist_id", "is required")
	}
	if _, err := s.directory.GetTherapist(ctx, therapistID); err != nil {
		return nil, err
	}

	return s.apply(ctx, id, OpAssignTherapist, func(b *models.Booking, _ time.Time) bool {
		if b.TherapistID != nil && *b.TherapistID == therapistID {
			return false
		}
		b.TherapistID = &therapistID
		return true
	})
}

// RecordServiceResults stores the results and completes the booking.
// The checkout time is stamped as well when the customer was not checked out yet.
func (s *Service) RecordServiceResults(ctx context.Context, id int64, results string) (*models.Booking, error) {
	results = strings.TrimSpace(results)
	if results == "" {
		return nil, domain.NewValidation("results", "must not be empty")
	}

	return s.apply(ctx, id, OpRecordResults, func(b *models.Booking, now time.Time) bool {
		b.ServiceResults = results
		if b.CheckoutTime == nil {
			b.CheckoutTime = &now
		}
		return true
	})
}

// CheckOut records the customer's departure and completes the booking.
func (s *Service) CheckOut(ctx context.Context, id int64) (*models.Booking, error) {
	return s.apply(ctx, id, OpCheckOut, func(b *models.Booking, now time.Time) bool {
		b.CheckoutTime = &now
		return true
	})
}

// ProcessPayment marks the booking paid. Paying an already paid booking is a no-op
// that returns the stored booking unchanged.
func (s *Service) ProcessPayment(ctx context.Context, id int64, method models.PaymentMethod) (*models.Booking, error) {
	m, err := models.ParsePaymentMethod(string(method))
	if err != nil {
		return nil, domain.NewValidation("payment_method", err.Error())
	}

	return s.apply(ctx, id, OpProcessPayment, func(b *models.Booking, now time.Time) bool {
		if b.IsPaid {
			return false
		}
		b.IsPaid = true
		b.PaymentTime = &now
		b.PaymentMethod = m
		return true
	})
}

// Cancel cancels a non-terminal booking. The reason is required.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidation("reason", "must not be empty")
	}

	return s.apply(ctx, id, OpCancel, func(b *models.Booking, _ time.Time) bool {
		b.CancellationReason = reason
		return true
	})
}

// apply runs one lifecycle operation as a read-validate-write unit under the booking's lock.
// mutate returns false when the operation has nothing to change.
func (s *Service) apply(ctx context.Context, id int64, op Operation, mutate func(b *models.Booking, now time.Time) bool) (*models.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.fsm.Allows(op, current.Status) {
		metrics.IncRejected(string(op), string(current.Status))
		s.logger.Warn().
			Int64("booking_id", id).
			Str("op", string(op)).
			Str("status", string(current.Status)).
			Msg("transition rejected")
		return nil, &domain.TransitionError{Op: string(op), From: current.Status}
	}

	now := s.now().UTC()
	next := current.Clone()
	if !mutate(next, now) {
		s.logger.Debug().Int64("booking_id", id).Str("op", string(op)).Msg("nothing to change")
		return current, nil
	}

	next.Status = s.fsm.Target(op, current.Status)
	next.UpdatedAt = now
	next.Version = current.Version + 1

	if err := s.bookings.UpdateBookingWithVersion(ctx, next, current.Version); err != nil {
		return nil, fmt.Errorf("%s booking %d: %w", op, id, err)
	}

	metrics.IncTransition(string(op), string(next.Status))
	if op == OpProcessPayment {
		metrics.IncPayment(string(next.PaymentMethod))
	}
	s.logger.Info().
		Int64("booking_id", id).
		Str("op", string(op)).
		Str("from", string(current.Status)).
		Str("to", string(next.Status)).
		Msg("booking updated")
	s.publish(opEvents[op], string(op), current.Status, next, now)

	return next, nil
}

func (s *Service) publish(eventType, op string, from models.BookingStatus, b *models.Booking, at time.Time) {
	if s.events == nil {
		return
	}
	err := s.events.PublishJSON(eventType, Event{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		Operation:  op,
		From:       from,
		To:         b.Status,
		At:         at,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Int64("booking_id", b.ID).Msg("publish event")
	}
}
