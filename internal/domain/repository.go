package domain

import (
	"context"
	"time"

	"skincare/internal/models"
)

// BookingRepository is the durable store for bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// UpdateBookingWithVersion persists b only if the stored version still equals
	// expectedVersion, and returns ErrConcurrentModification otherwise.
	UpdateBookingWithVersion(ctx context.Context, b *models.Booking, expectedVersion int64) error
	GetBookingsByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error)
	// GetBookingsByDateRange returns bookings whose appointment time is in [start, end].
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
}

// Directory resolves the identity records a booking refers to.
// Lookups of unknown ids return a *NotFoundError.
type Directory interface {
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	GetTherapist(ctx context.Context, id int64) (*models.Therapist, error)
}

// FeedbackRepository stores customer ratings.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackByService(ctx context.Context, serviceID int64, publicOnly bool) ([]models.Feedback, error)
	ListFeedbackByTherapist(ctx context.Context, therapistID int64, publicOnly bool) ([]models.Feedback, error)
	ListRatings(ctx context.Context) ([]int, error)
}

// EventPublisher publishes lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
