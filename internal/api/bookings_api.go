package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"skincare/internal/booking"
	"skincare/internal/metrics"
	"skincare/internal/models"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	CustomerID      int64            `json:"customer_id"`
	ServiceID       int64            `json:"service_id"`
	TherapistID     *int64           `json:"therapist_id,omitempty"`
	AppointmentTime string           `json:"appointment_time"` // ISO date-time
	Amount          *decimal.Decimal `json:"amount,omitempty"` // defaults to the service price
}

type assignRequest struct {
	TherapistID int64 `json:"therapist_id"`
}

type resultsRequest struct {
	Results string `json:"results"`
}

type paymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// handleCreateBooking creates a booking.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := booking.CreateRequest{
		CustomerID:  req.CustomerID,
		ServiceID:   req.ServiceID,
		TherapistID: req.TherapistID,
	}
	if req.AppointmentTime != "" {
		at, err := parseTime(req.AppointmentTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.AppointmentTime = at
	}
	if req.Amount != nil {
		in.Amount = decimal.NewNullDecimal(*req.Amount)
	}

	b, err := s.bookings.CreateBooking(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleGetBooking returns one booking.
// GET /api/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleBookingsInRange lists bookings by appointment time.
// GET /api/bookings?startDate=...&endDate=...
func (s *HTTPServer) handleBookingsInRange(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_in_range")
	start, end, err := parseRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.bookings.BookingsInRange(r.Context(), start, end)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

// handleCustomerBookings lists a customer's bookings.
// GET /api/customers/{id}/bookings
func (s *HTTPServer) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customer_bookings")
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.bookings.CustomerBookings(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

// transition runs op on the booking named in the path and writes the result.
func (s *HTTPServer) transition(w http.ResponseWriter, r *http.Request, op func(id int64) (*models.Booking, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := op(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PUT /api/bookings/{id}/checkin
func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkin")
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.CheckIn(r.Context(), id)
	})
}

// PUT /api/bookings/{id}/assign
func (s *HTTPServer) handleAssignTherapist(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("assign_therapist")
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.AssignTherapist(r.Context(), id, req.TherapistID)
	})
}

// PUT /api/bookings/{id}/result
func (s *HTTPServer) handleRecordResults(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("record_results")
	var req resultsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.RecordServiceResults(r.Context(), id, req.Results)
	})
}

// PUT /api/bookings/{id}/checkout
func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checkout")
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.CheckOut(r.Context(), id)
	})
}

// POST /api/bookings/{id}/payment
func (s *HTTPServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment")
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.ProcessPayment(r.Context(), id, models.PaymentMethod(req.PaymentMethod))
	})
}

// DELETE /api/bookings/{id} cancels; the booking itself is kept.
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.transition(w, r, func(id int64) (*models.Booking, error) {
		return s.bookings.Cancel(r.Context(), id, req.Reason)
	})
}
