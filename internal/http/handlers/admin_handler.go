package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/http/response"
)

// ListBookings returns bookings for the admin dashboard, optionally
// filtered by status.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var statusPtr *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		statusPtr = &st
	}

	bookings, err := h.bookings.ListBookings(r.Context(), limit, offset, statusPtr)
	if err != nil {
		response.InternalError(w, "Failed to retrieve bookings")
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// GetBooking returns a single booking by id.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to retrieve booking")
		return
	}
	if booking == nil {
		response.NotFound(w, "Booking not found")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// UpdateBookingStatus applies an administrative status transition
// (scheduled, completed, cancelled, no_show).
func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	status, ok := domain.ParseBookingStatus(body.Status)
	if !ok {
		response.BadRequest(w, "Invalid status value")
		return
	}

	updated, err := h.bookings.UpdateBookingStatus(r.Context(), id, status)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if updated == nil {
		response.NotFound(w, "Booking not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// CancelBooking cancels a booking on behalf of an administrator.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	cancelled, err := h.bookings.CancelBooking(r.Context(), id, "admin_cancelled")
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if cancelled == nil {
		response.NotFound(w, "Booking not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAvailabilityWindows lists the recurring weekly windows.
func (h *Handlers) ListAvailabilityWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := h.availability.ListWindows(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to retrieve availability windows")
		return
	}
	if windows == nil {
		windows = []domain.AvailabilityWindow{}
	}

	writeJSON(w, http.StatusOK, windows)
}

// SetAvailabilityWindow activates or deactivates a weekday.
func (h *Handlers) SetAvailabilityWindow(w http.ResponseWriter, r *http.Request) {
	weekday, err := strconv.Atoi(chi.URLParam(r, "weekday"))
	if err != nil || weekday < 0 || weekday > 6 {
		response.BadRequest(w, "weekday must be between 0 and 6")
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.availability.SetWindowActive(r.Context(), weekday, body.Active); err != nil {
		response.InternalError(w, "Failed to update availability window")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weekday": weekday,
		"active":  body.Active,
	})
}

// ListBlockedDates lists one-off blocked dates.
func (h *Handlers) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.availability.ListBlockedDates(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to retrieve blocked dates")
		return
	}
	if dates == nil {
		dates = []domain.BlockedDate{}
	}

	writeJSON(w, http.StatusOK, dates)
}

// AddBlockedDate blocks a calendar date.
func (h *Handlers) AddBlockedDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date   string `json:"date"`
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		response.BadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	if err := h.availability.AddBlockedDate(r.Context(), date, body.Reason); err != nil {
		response.InternalError(w, "Failed to block date")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// GetProfile returns a membership profile for support lookups.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByUserID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		response.InternalError(w, "Failed to retrieve profile")
		return
	}
	if profile == nil {
		response.NotFound(w, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetProfileByCustomer resolves a profile from its payment-gateway
// customer id, the key webhook events carry.
func (h *Handlers) GetProfileByCustomer(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByCustomerID(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		response.InternalError(w, "Failed to retrieve profile")
		return
	}
	if profile == nil {
		response.NotFound(w, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// RemoveBlockedDate unblocks a calendar date.
func (h *Handlers) RemoveBlockedDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		response.BadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	removed, err := h.availability.RemoveBlockedDate(r.Context(), date)
	if err != nil {
		response.InternalError(w, "Failed to unblock date")
		return
	}
	if !removed {
		response.NotFound(w, "Blocked date not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
