package domain

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingScheduled      BookingStatus = "scheduled"
	BookingCompleted      BookingStatus = "completed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingNoShow         BookingStatus = "no_show"
	BookingExpired        BookingStatus = "expired"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPendingPayment, BookingConfirmed, BookingScheduled,
		BookingCompleted, BookingCancelled, BookingNoShow, BookingExpired:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// ActiveStatuses are the statuses that hold a time slot. Two bookings
// in any of these statuses must never overlap.
var ActiveStatuses = []BookingStatus{BookingConfirmed, BookingPendingPayment, BookingScheduled}

func (s BookingStatus) Active() bool {
	switch s {
	case BookingConfirmed, BookingPendingPayment, BookingScheduled:
		return true
	default:
		return false
	}
}

// AdminStatus reports whether s is a status an administrator may set on
// an existing booking.
func (s BookingStatus) AdminStatus() bool {
	switch s {
	case BookingScheduled, BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	default:
		return false
	}
}

type Booking struct {
	ID                int64         `json:"id"`
	ManageToken       string        `json:"manage_token,omitempty"`
	SessionType       string        `json:"session_type"`
	ClientName        string        `json:"client_name"`
	ClientEmail       string        `json:"client_email"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	DurationMinutes   int           `json:"duration_minutes"`
	PriceCents        int64         `json:"price_cents"`
	Notes             string        `json:"notes"`
	Status            BookingStatus `json:"status"`
	CheckoutSessionID *string       `json:"checkout_session_id,omitempty"`
	PaymentExpiresAt  *time.Time    `json:"payment_expires_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Overlaps reports whether the booking's [start, end) interval
// intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// IsOwner checks whether the given email owns this booking.
func (b *Booking) IsOwner(email string) bool {
	return strings.EqualFold(b.ClientEmail, email)
}

// CreateBookingRequest is the public booking-creation payload.
// StartTime stays a string so a bad timestamp is reported as its own
// validation failure rather than a generic JSON decode error.
type CreateBookingRequest struct {
	SessionType string `json:"session_type"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	StartTime   string `json:"start_time"`
	Notes       string `json:"notes,omitempty"`
}

// CreateBookingResult is returned on successful creation. CheckoutURL
// and ExpiresAt are only set for priced sessions.
type CreateBookingResult struct {
	BookingID   int64      `json:"booking_id"`
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
