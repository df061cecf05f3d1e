package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/http/response"
)

// CreateBooking handles the public booking-creation endpoint.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.bookings.CreateBooking(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ManageBooking resolves the manage link from a confirmation email:
// the booking itself plus the client's other active bookings.
func (h *Handlers) ManageBooking(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	booking, others, err := h.bookings.GetBookingByToken(r.Context(), token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if booking == nil {
		response.NotFound(w, "Booking not found")
		return
	}
	if others == nil {
		others = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking":        booking,
		"other_bookings": others,
	})
}

// CancelManagedBooking cancels a booking from its manage link. The
// booking's email must be restated in the body as confirmation.
func (h *Handlers) CancelManagedBooking(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var body struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if body.ClientEmail == "" {
		response.BadRequest(w, "client_email is required")
		return
	}

	cancelled, err := h.bookings.CancelBookingByToken(r.Context(), token, body.ClientEmail)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if cancelled == nil {
		response.NotFound(w, "Booking not found")
		return
	}

	writeJSON(w, http.StatusOK, cancelled)
}

// GetDateAvailability tells the booking wizard whether a calendar date
// can be booked at all.
func (h *Handlers) GetDateAvailability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		response.BadRequest(w, "Missing date parameter")
		return
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.BadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	available, reason, err := h.bookings.DateAvailable(r.Context(), date)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":      raw,
		"available": available,
		"reason":    reason,
	})
}
