package domain

import (
	"errors"
	"fmt"

	"skincare/internal/models"
)

var (
	// ErrInvalidTransition is matched by every TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentModification is returned when a versioned update lost the race.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// NotFoundError names the missing entity kind and id.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError is a bad-request condition on a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError reports an operation that is not legal from the booking's current status.
type TransitionError struct {
	Op   string
	From models.BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from status %s", e.Op, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
