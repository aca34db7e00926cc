package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"skincare/internal/feedback"
	"skincare/internal/metrics"
	"skincare/internal/models"
)

type customerRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	SkinType    string `json:"skin_type"`
}

type serviceRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
}

type therapistRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
}

type feedbackRequest struct {
	BookingID int64  `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	IsPublic  *bool  `json:"is_public,omitempty"`
}

// POST /api/customers
func (s *HTTPServer) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_customer")
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" {
		writeError(w, http.StatusBadRequest, "first_name is required")
		return
	}

	c := &models.Customer{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		SkinType:    strings.TrimSpace(req.SkinType),
	}
	if err := s.directory.CreateCustomer(r.Context(), c); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.publish(EventDirectoryChanged, map[string]any{"kind": "customer", "id": c.ID})
	writeJSON(w, http.StatusCreated, c)
}

// POST /api/services
func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_service")
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	svc := &models.Service{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.directory.CreateService(r.Context(), svc); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.publish(EventDirectoryChanged, map[string]any{"kind": "service", "id": svc.ID})
	writeJSON(w, http.StatusCreated, svc)
}

// GET /api/services
func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_services")
	services, err := s.directory.ListServices(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// POST /api/therapists
func (s *HTTPServer) handleCreateTherapist(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_therapist")
	var req therapistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" {
		writeError(w, http.StatusBadRequest, "first_name is required")
		return
	}

	t := &models.Therapist{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Specialization: strings.TrimSpace(req.Specialization),
		Email:          strings.TrimSpace(req.Email),
	}
	if err := s.directory.CreateTherapist(r.Context(), t); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.publish(EventDirectoryChanged, map[string]any{"kind": "therapist", "id": t.ID})
	writeJSON(w, http.StatusCreated, t)
}

// POST /api/feedback
func (s *HTTPServer) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_feedback")
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	f, err := s.feedback.Create(r.Context(), feedback.CreateRequest{
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		IsPublic:  req.IsPublic,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GET /api/services/{id}/feedback
func (s *HTTPServer) handleServiceFeedback(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("service_feedback")
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.feedback.ByService(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": list})
}

// GET /api/therapists/{id}/feedback
func (s *HTTPServer) handleTherapistFeedback(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("therapist_feedback")
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.feedback.ByTherapist(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": list})
}
