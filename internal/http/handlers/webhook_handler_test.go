package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v76"

	"github.com/willow-wellness/bookings-api/pkg/config"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header the verifier accepts:
// t=<unix>,v1=<hex hmac-sha256 of "<t>.<payload>">.
func signPayload(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session"}}
	}`, stripe.APIVersion, eventType))
}

func newWebhookHandlers(webhooks *stubWebhookService) *Handlers {
	cfg := &config.Config{}
	cfg.Stripe.WebhookSecret = testWebhookSecret
	return New(&stubBookingService{}, webhooks, nil, nil, cfg)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	webhooks := &stubWebhookService{}
	h := newWebhookHandlers(webhooks)

	payload := webhookPayload("checkout.session.completed")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "Webhook Error:") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(webhooks.handled) != 0 {
		t.Error("unverified event reached the service")
	}
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	webhooks := &stubWebhookService{}
	h := newWebhookHandlers(webhooks)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe",
		strings.NewReader(string(webhookPayload("checkout.session.completed"))))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(webhooks.handled) != 0 {
		t.Error("unsigned event reached the service")
	}
}

func TestStripeWebhookAcceptsSignedEvent(t *testing.T) {
	webhooks := &stubWebhookService{}
	h := newWebhookHandlers(webhooks)

	payload := webhookPayload("checkout.session.completed")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(webhooks.handled) != 1 {
		t.Fatalf("handled %d events, want 1", len(webhooks.handled))
	}
	if got := string(webhooks.handled[0].Type); got != "checkout.session.completed" {
		t.Errorf("event type = %q", got)
	}
}

func TestStripeWebhookProcessingFailureIsRetriable(t *testing.T) {
	webhooks := &stubWebhookService{err: errors.New("profile store unavailable")}
	h := newWebhookHandlers(webhooks)

	payload := webhookPayload("customer.subscription.deleted")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so the gateway redelivers", rec.Code)
	}
}

func TestStripeWebhookWrongSecretRejected(t *testing.T) {
	webhooks := &stubWebhookService{}
	h := newWebhookHandlers(webhooks)

	payload := webhookPayload("invoice.payment_failed")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload, "whsec_other", time.Now()))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(webhooks.handled) != 0 {
		t.Error("event signed with the wrong secret reached the service")
	}
}

type stubWebhookService struct {
	handled []stripe.Event
	err     error
}

func (s *stubWebhookService) HandleEvent(_ context.Context, event stripe.Event) error {
	if s.err != nil {
		return s.err
	}
	s.handled = append(s.handled, event)
	return nil
}
