package service

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/platform/mailer"
	"github.com/willow-wellness/bookings-api/internal/platform/payments"
	"github.com/willow-wellness/bookings-api/internal/repo/postgres"
	"github.com/willow-wellness/bookings-api/pkg/config"
	"github.com/willow-wellness/bookings-api/pkg/events"
	"github.com/willow-wellness/bookings-api/pkg/logger"
)

// Clock is injected so tests can pin the current instant.
type Clock func() time.Time

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type BookingService interface {
	CreateBooking(ctx context.Context, req *domain.CreateBookingRequest) (*domain.CreateBookingResult, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByToken(ctx context.Context, token string) (*domain.Booking, []domain.Booking, error)
	CancelBookingByToken(ctx context.Context, token, clientEmail string) (*domain.Booking, error)
	ListBookings(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error)
	DateAvailable(ctx context.Context, date time.Time) (bool, string, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

type bookingService struct {
	bookings     postgres.BookingRepository
	availability postgres.AvailabilityRepository
	gateway      payments.Gateway
	eventBus     events.Publisher
	mail         mailer.Service
	catalog      domain.Catalog
	policy       config.BookingConfig
	stripeCfg    config.StripeConfig
	now          Clock
}

func NewBookingService(
	bookings postgres.BookingRepository,
	availability postgres.AvailabilityRepository,
	gateway payments.Gateway,
	eventBus events.Publisher,
	mail mailer.Service,
	catalog domain.Catalog,
	policy config.BookingConfig,
	stripeCfg config.StripeConfig,
	now Clock,
) BookingService {
	if now == nil {
		now = time.Now
	}
	return &bookingService{
		bookings:     bookings,
		availability: availability,
		gateway:      gateway,
		eventBus:     eventBus,
		mail:         mail,
		catalog:      catalog,
		policy:       policy,
		stripeCfg:    stripeCfg,
		now:          now,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, req *domain.CreateBookingRequest) (*domain.CreateBookingResult, error) {
	switch {
	case req.SessionType == "":
		return nil, domain.Validationf("missing required field: session_type")
	case req.ClientName == "":
		return nil, domain.Validationf("missing required field: client_name")
	case req.ClientEmail == "":
		return nil, domain.Validationf("missing required field: client_email")
	case req.StartTime == "":
		return nil, domain.Validationf("missing required field: start_time")
	}

	sessionType, ok := s.catalog.Lookup(req.SessionType)
	if !ok {
		return nil, domain.Validationf("unknown session type: %s", req.SessionType)
	}

	if !emailPattern.MatchString(req.ClientEmail) {
		return nil, domain.Validationf("invalid email address")
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, domain.Validationf("start_time must be a valid RFC 3339 timestamp")
	}
	start = start.UTC()
	end := start.Add(time.Duration(sessionType.DurationMinutes) * time.Minute)

	now := s.now()
	if start.Before(now.Add(s.policy.MinNotice)) {
		return nil, domain.Validationf("bookings require at least %d hours notice", int(s.policy.MinNotice.Hours()))
	}

	blocked, err := s.availability.IsDateBlocked(ctx, start)
	if err != nil {
		return nil, domain.Upstream("check blocked dates", err)
	}
	if blocked {
		return nil, domain.Conflictf("this date is unavailable")
	}

	open, err := s.availability.HasActiveWindow(ctx, int(start.Weekday()))
	if err != nil {
		return nil, domain.Upstream("check availability windows", err)
	}
	if !open {
		return nil, domain.Conflictf("no availability on %ss", start.Weekday())
	}

	// Price resolves from the catalog only. A client-declared price
	// never reaches this point.
	booking := &domain.Booking{
		SessionType:     sessionType.ID,
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: sessionType.DurationMinutes,
		PriceCents:      sessionType.PriceCents,
		Notes:           req.Notes,
		Status:          domain.BookingConfirmed,
	}
	if sessionType.PriceCents > 0 {
		booking.Status = domain.BookingPendingPayment
		expiresAt := now.Add(s.policy.PaymentWindow)
		booking.PaymentExpiresAt = &expiresAt
	}

	created, err := s.bookings.CreateIfSlotFree(ctx, booking)
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, created)

	if created.PriceCents == 0 {
		s.sendConfirmation(ctx, created, sessionType.Label)
		return &domain.CreateBookingResult{
			BookingID: created.ID,
			Status:    string(created.Status),
			Message:   "Your " + sessionType.Label + " is confirmed.",
		}, nil
	}

	checkout, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutParams{
		AmountCents:   created.PriceCents,
		Currency:      s.stripeCfg.Currency,
		ProductLabel:  sessionType.Label,
		CustomerEmail: created.ClientEmail,
		Metadata: map[string]string{
			"booking_id":   strconv.FormatInt(created.ID, 10),
			"session_type": created.SessionType,
		},
		ExpiresAt: *created.PaymentExpiresAt,
	})
	if err != nil {
		// The pending row stays behind with no checkout reference; the
		// reaper releases its slot once payment_expires_at passes.
		logger.ErrorContext(ctx, "checkout session creation failed after booking insert",
			"booking_id", created.ID, "error", err)
		return nil, err
	}

	if err := s.bookings.SetCheckoutSession(ctx, created.ID, checkout.ID, *created.PaymentExpiresAt); err != nil {
		return nil, domain.Upstream("persist checkout session reference", err)
	}

	return &domain.CreateBookingResult{
		BookingID:   created.ID,
		Status:      string(created.Status),
		CheckoutURL: checkout.URL,
		ExpiresAt:   created.PaymentExpiresAt,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// GetBookingByToken resolves a booking from the manage token in its
// confirmation link, along with the client's other active bookings.
func (s *bookingService) GetBookingByToken(ctx context.Context, token string) (*domain.Booking, []domain.Booking, error) {
	booking, err := s.bookings.GetByManageToken(ctx, token)
	if err != nil {
		return nil, nil, domain.Upstream("load booking by token", err)
	}
	if booking == nil {
		return nil, nil, nil
	}

	siblings, err := s.bookings.ListByEmail(ctx, booking.ClientEmail, 20, 0)
	if err != nil {
		return nil, nil, domain.Upstream("list bookings by email", err)
	}
	var others []domain.Booking
	for _, b := range siblings {
		if b.ID != booking.ID && b.Status.Active() {
			others = append(others, b)
		}
	}
	return booking, others, nil
}

// CancelBookingByToken is the client self-service cancellation. The
// caller must restate the booking's email as confirmation; the manage
// token alone is not treated as proof of ownership.
func (s *bookingService) CancelBookingByToken(ctx context.Context, token, clientEmail string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByManageToken(ctx, token)
	if err != nil {
		return nil, domain.Upstream("load booking by token", err)
	}
	if booking == nil {
		return nil, nil
	}
	if !booking.IsOwner(clientEmail) {
		return nil, domain.Validationf("client_email does not match this booking")
	}
	if !booking.Status.Active() {
		return nil, domain.Conflictf("booking can no longer be cancelled")
	}

	cancelled, err := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingCancelled)
	if err != nil {
		return nil, domain.Upstream("cancel booking", err)
	}
	if cancelled != nil {
		event := events.BookingCancelledEvent{
			BookingID:   cancelled.ID,
			ClientEmail: cancelled.ClientEmail,
			Reason:      "client_cancelled",
			CancelledAt: s.now(),
		}
		if err := s.eventBus.Publish(ctx, events.BookingCancelled, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish booking cancelled event", "error", err, "booking_id", cancelled.ID)
		}
	}
	return cancelled, nil
}

func (s *bookingService) ListBookings(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	return s.bookings.List(ctx, limit, offset, status)
}

func (s *bookingService) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	if !status.AdminStatus() {
		return nil, domain.Validationf("status %q cannot be set administratively", status)
	}
	return s.bookings.UpdateStatus(ctx, id, status)
}

func (s *bookingService) CancelBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("load booking", err)
	}
	if booking == nil {
		return nil, nil
	}

	cancelled, err := s.bookings.UpdateStatus(ctx, id, domain.BookingCancelled)
	if err != nil {
		return nil, domain.Upstream("cancel booking", err)
	}
	if cancelled != nil {
		event := events.BookingCancelledEvent{
			BookingID:   cancelled.ID,
			ClientEmail: cancelled.ClientEmail,
			Reason:      reason,
			CancelledAt: s.now(),
		}
		if err := s.eventBus.Publish(ctx, events.BookingCancelled, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish booking cancelled event", "error", err, "booking_id", id)
		}
	}
	return cancelled, nil
}

// DateAvailable answers the wizard's "can this date be booked at all"
// question: not blocked and the weekday has an active window.
func (s *bookingService) DateAvailable(ctx context.Context, date time.Time) (bool, string, error) {
	blocked, err := s.availability.IsDateBlocked(ctx, date)
	if err != nil {
		return false, "", domain.Upstream("check blocked dates", err)
	}
	if blocked {
		return false, "date blocked", nil
	}

	open, err := s.availability.HasActiveWindow(ctx, int(date.UTC().Weekday()))
	if err != nil {
		return false, "", domain.Upstream("check availability windows", err)
	}
	if !open {
		return false, "weekday closed", nil
	}
	return true, "", nil
}

func (s *bookingService) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.bookings.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, b := range expired {
		event := events.BookingExpiredEvent{
			BookingID:   b.ID,
			ClientEmail: b.ClientEmail,
			StartTime:   b.StartTime,
			ExpiredAt:   s.now(),
		}
		if err := s.eventBus.Publish(ctx, events.BookingExpired, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish booking expired event", "error", err, "booking_id", b.ID)
		}
	}
	return int64(len(expired)), nil
}

func (s *bookingService) publishCreated(ctx context.Context, b *domain.Booking) {
	event := events.BookingCreatedEvent{
		BookingID:   b.ID,
		SessionType: b.SessionType,
		ClientEmail: b.ClientEmail,
		ClientName:  b.ClientName,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		PriceCents:  b.PriceCents,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking created event", "error", err, "booking_id", b.ID)
	}
}

func (s *bookingService) sendConfirmation(ctx context.Context, b *domain.Booking, label string) {
	if err := s.mail.SendBookingConfirmation(b.ClientEmail, b.ClientName, label, b.StartTime); err != nil {
		logger.ErrorContext(ctx, "failed to send booking confirmation email", "error", err, "booking_id", b.ID)
	}
}
