package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusBooked     BookingStatus = "BOOKED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusBooked,
	StatusCheckedIn,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// IsValid reports whether s is one of the declared statuses.
func (s BookingStatus) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentMethod is how a booking was paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentOnline       PaymentMethod = "ONLINE"
)

// ParsePaymentMethod converts user input (case-insensitive) into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentBankTransfer, PaymentOnline:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Booking is an appointment of a customer for a service, optionally with a therapist.
// Customer, service and therapist are referenced by id only.
type Booking struct {
	ID                 int64               `json:"id"`
	CustomerID         int64               `json:"customer_id"`
	ServiceID          int64               `json:"service_id"`
	TherapistID        *int64              `json:"therapist_id,omitempty"`
	AppointmentTime    time.Time           `json:"appointment_time"`
	Status             BookingStatus       `json:"status"`
	CheckinTime        *time.Time          `json:"checkin_time,omitempty"`
	CheckoutTime       *time.Time          `json:"checkout_time,omitempty"`
	ServiceResults     string              `json:"service_results,omitempty"`
	Amount             decimal.NullDecimal `json:"amount"`
	IsPaid             bool                `json:"is_paid"`
	PaymentTime        *time.Time          `json:"payment_time,omitempty"`
	PaymentMethod      PaymentMethod       `json:"payment_method,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Version            int64               `json:"version"`
}

// Revenue returns the amount this booking contributes to revenue:
// the amount when paid, zero otherwise.
func (b *Booking) Revenue() decimal.Decimal {
	if !b.IsPaid || !b.Amount.Valid {
		return decimal.Zero
	}
	return b.Amount.Decimal
}

// Clone returns a deep copy, so callers can mutate it without touching the receiver.
func (b *Booking) Clone() *Booking {
	c := *b
	c.TherapistID = cloneInt64(b.TherapistID)
	c.CheckinTime = cloneTime(b.CheckinTime)
	c.CheckoutTime = cloneTime(b.CheckoutTime)
	c.PaymentTime = cloneTime(b.PaymentTime)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
