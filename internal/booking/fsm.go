// Package booking implements the booking lifecycle: creation, legal status
// transitions and the timestamps each transition stamps onto a booking.
package booking

import (
	"skincare/internal/models"
)

// Operation names a lifecycle operation.
type Operation string

const (
	OpCheckIn         Operation = "check_in"
	OpAssignTherapist Operation = "assign_therapist"
	OpRecordResults   Operation = "record_results"
	OpCheckOut        Operation = "check_out"
	OpProcessPayment  Operation = "process_payment"
	OpCancel          Operation = "cancel"
)

// Rule is the allowed predecessor set of an operation and the status it leads to.
// An empty To means the operation does not change status.
type Rule struct {
	From []models.BookingStatus
	To   models.BookingStatus
}

// FSM holds the booking status graph and the per-operation rules derived from it.
type FSM struct {
	transitions map[models.BookingStatus][]models.BookingStatus
	rules       map[Operation]Rule
}

// NewFSM creates the booking state machine:
// BOOKED -> CHECKED_IN -> IN_PROGRESS -> COMPLETED, CANCELLED from any non-terminal status.
func NewFSM() *FSM {
	active := []models.BookingStatus{models.StatusBooked, models.StatusCheckedIn, models.StatusInProgress}
	started := []models.BookingStatus{models.StatusCheckedIn, models.StatusInProgress}

	return &FSM{
		transitions: map[models.BookingStatus][]models.BookingStatus{
			models.StatusBooked:     {models.StatusCheckedIn, models.StatusCancelled},
			models.StatusCheckedIn:  {models.StatusInProgress, models.StatusCompleted, models.StatusCancelled},
			models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
			models.StatusCompleted:  {},
			models.StatusCancelled:  {},
		},
		rules: map[Operation]Rule{
			OpCheckIn:         {From: []models.BookingStatus{models.StatusBooked}, To: models.StatusCheckedIn},
			OpAssignTherapist: {From: active},
			OpRecordResults:   {From: started, To: models.StatusCompleted},
			OpCheckOut:        {From: started, To: models.StatusCompleted},
			OpProcessPayment:  {From: append(append([]models.BookingStatus{}, active...), models.StatusCompleted)},
			OpCancel:          {From: active, To: models.StatusCancelled},
		},
	}
}

// CanTransition checks if moving from one status to another is allowed.
func (f *FSM) CanTransition(from, to models.BookingStatus) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Allows reports whether op may run on a booking in status from.
func (f *FSM) Allows(op Operation, from models.BookingStatus) bool {
	rule, ok := f.rules[op]
	if !ok {
		return false
	}
	allowed := false
	for _, s := range rule.From {
		if s == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if rule.To == "" || rule.To == from {
		return true
	}
	return f.CanTransition(from, rule.To)
}

// Target returns the status op leads to from the given status.
func (f *FSM) Target(op Operation, from models.BookingStatus) models.BookingStatus {
	if rule := f.rules[op]; rule.To != "" {
		return rule.To
	}
	return from
}
