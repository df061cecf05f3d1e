package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v76"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/platform/mailer"
	"github.com/willow-wellness/bookings-api/internal/platform/payments"
	"github.com/willow-wellness/bookings-api/internal/repo/postgres"
	"github.com/willow-wellness/bookings-api/pkg/events"
	"github.com/willow-wellness/bookings-api/pkg/logger"
)

// WebhookService reconciles asynchronous Stripe events into booking and
// membership state. Every write is idempotent (overwrite-by-value or
// append-if-absent) because Stripe may deliver events more than once
// and out of order.
type WebhookService interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type webhookService struct {
	profiles postgres.ProfileRepository
	bookings postgres.BookingRepository
	gateway  payments.Gateway
	eventBus events.Publisher
	mail     mailer.Service
	catalog  domain.Catalog
	now      Clock
}

func NewWebhookService(
	profiles postgres.ProfileRepository,
	bookings postgres.BookingRepository,
	gateway payments.Gateway,
	eventBus events.Publisher,
	mail mailer.Service,
	catalog domain.Catalog,
	now Clock,
) WebhookService {
	if now == nil {
		now = time.Now
	}
	return &webhookService{
		profiles: profiles,
		bookings: bookings,
		gateway:  gateway,
		eventBus: eventBus,
		mail:     mail,
		catalog:  catalog,
		now:      now,
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handleInvoiceFailed(ctx, event)
	default:
		// Unrecognized event types are acknowledged, not retried.
		logger.DebugContext(ctx, "ignoring webhook event", "type", string(event.Type))
		return nil
	}
}

func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	// Sessions created by the booking flow carry a booking_id and
	// complete the pending_payment -> confirmed transition.
	if sess.Metadata["booking_id"] != "" {
		return s.confirmBooking(ctx, &sess)
	}

	if sess.Mode == stripe.CheckoutSessionModeSubscription {
		return s.applySubscriptionPurchase(ctx, &sess)
	}
	return s.applyOneTimePurchase(ctx, &sess)
}

func (s *webhookService) confirmBooking(ctx context.Context, sess *stripe.CheckoutSession) error {
	booking, err := s.bookings.ConfirmByCheckoutSession(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("confirm booking for checkout %s: %w", sess.ID, err)
	}
	if booking == nil {
		// Already confirmed by an earlier delivery, or the session is
		// unknown. Either way there is nothing left to do.
		logger.InfoContext(ctx, "checkout completed with no pending booking", "checkout_session", sess.ID)
		return nil
	}

	if st, ok := s.catalog.Lookup(booking.SessionType); ok {
		if err := s.mail.SendBookingConfirmation(booking.ClientEmail, booking.ClientName, st.Label, booking.StartTime); err != nil {
			logger.ErrorContext(ctx, "failed to send booking confirmation email", "error", err, "booking_id", booking.ID)
		}
	}

	confirmed := events.BookingConfirmedEvent{
		BookingID:   booking.ID,
		ClientEmail: booking.ClientEmail,
		StartTime:   booking.StartTime,
		ConfirmedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.BookingConfirmed, confirmed); err != nil {
		logger.ErrorContext(ctx, "failed to publish booking confirmed event", "error", err, "booking_id", booking.ID)
	}
	return nil
}

func (s *webhookService) applySubscriptionPurchase(ctx context.Context, sess *stripe.CheckoutSession) error {
	userID := sess.Metadata["user_id"]
	tier, ok := domain.ParseTier(sess.Metadata["membership_type"])
	if userID == "" || !ok {
		return fmt.Errorf("subscription checkout %s missing user_id or membership_type metadata", sess.ID)
	}
	if sess.Subscription == nil {
		return fmt.Errorf("subscription checkout %s has no subscription reference", sess.ID)
	}

	periodEnd, err := s.gateway.SubscriptionPeriodEnd(ctx, sess.Subscription.ID)
	if err != nil {
		return err
	}

	var customerID string
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}

	now := s.now()
	if err := s.profiles.UpsertMembership(ctx, userID, tier, now, periodEnd, customerID); err != nil {
		return fmt.Errorf("upsert membership for user %s: %w", userID, err)
	}

	s.publishMembershipUpdated(ctx, userID, tier, &periodEnd)
	return nil
}

func (s *webhookService) applyOneTimePurchase(ctx context.Context, sess *stripe.CheckoutSession) error {
	userID := sess.Metadata["user_id"]
	if userID == "" {
		return fmt.Errorf("payment checkout %s missing user_id metadata", sess.ID)
	}

	if tier, ok := domain.TierForProduct(sess.Metadata["product"]); ok {
		now := s.now()
		expiry := now.AddDate(1, 0, 0)
		var customerID string
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		if err := s.profiles.UpsertMembership(ctx, userID, tier, now, expiry, customerID); err != nil {
			return fmt.Errorf("upsert yearly membership for user %s: %w", userID, err)
		}
		s.publishMembershipUpdated(ctx, userID, tier, &expiry)
		return nil
	}

	if slug := sess.Metadata["hub_slug"]; slug != "" {
		added, err := s.profiles.AddHub(ctx, userID, slug)
		if err != nil {
			return fmt.Errorf("add hub %s for user %s: %w", slug, userID, err)
		}
		if !added {
			// Replay of an already-processed purchase.
			logger.InfoContext(ctx, "hub already purchased", "user_id", userID, "hub_slug", slug)
			return nil
		}
		purchased := events.HubPurchasedEvent{
			UserID:      userID,
			HubSlug:     slug,
			PurchasedAt: s.now(),
		}
		if err := s.eventBus.Publish(ctx, events.HubPurchased, purchased); err != nil {
			logger.ErrorContext(ctx, "failed to publish hub purchased event", "error", err, "user_id", userID)
		}
		return nil
	}

	logger.WarnContext(ctx, "checkout completed with unrecognized product metadata", "checkout_session", sess.ID)
	return nil
}

func (s *webhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if sub.Customer == nil {
		return fmt.Errorf("subscription %s has no customer reference", sub.ID)
	}

	expiry := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	found, err := s.profiles.UpdateExpiryByCustomer(ctx, sub.Customer.ID, expiry)
	if err != nil {
		return fmt.Errorf("update expiry for customer %s: %w", sub.Customer.ID, err)
	}
	if !found {
		logger.WarnContext(ctx, "subscription update for unknown customer", "customer_id", sub.Customer.ID)
	}
	return nil
}

func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if sub.Customer == nil {
		return fmt.Errorf("subscription %s has no customer reference", sub.ID)
	}

	found, err := s.profiles.DowngradeByCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return fmt.Errorf("downgrade customer %s: %w", sub.Customer.ID, err)
	}
	if found {
		s.publishMembershipUpdated(ctx, sub.Customer.ID, domain.TierFree, nil)
	}
	return nil
}

func (s *webhookService) handleInvoiceFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}

	// No entitlement change on a failed renewal; Stripe drives its own
	// dunning flow. Logged for operators and surfaced on the bus.
	var customerID string
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	logger.WarnContext(ctx, "invoice payment failed", "customer_id", customerID, "invoice_id", inv.ID)

	failed := events.PaymentFailedEvent{
		CustomerID: customerID,
		InvoiceID:  inv.ID,
		FailedAt:   s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.PaymentFailed, failed); err != nil {
		logger.ErrorContext(ctx, "failed to publish payment failed event", "error", err)
	}
	return nil
}

func (s *webhookService) publishMembershipUpdated(ctx context.Context, userID string, tier domain.Tier, expiry *time.Time) {
	event := events.MembershipUpdatedEvent{
		UserID:    userID,
		Tier:      string(tier),
		ExpiresAt: expiry,
		UpdatedAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, events.MembershipUpdated, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish membership updated event", "error", err, "user_id", userID)
	}
}
