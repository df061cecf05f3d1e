package handlers

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/willow-wellness/bookings-api/pkg/logger"
)

// Stripe webhook bodies are small; cap reads well above any real event.
const maxWebhookBody = 1 << 16

// StripeWebhook verifies and processes payment-gateway events. The
// signature is checked before anything else; a bad signature means no
// processing and no side effects. Processing failures return non-2xx
// so Stripe redelivers the event.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeWebhookError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.config.Stripe.WebhookSecret)
	if err != nil {
		logger.WarnContext(r.Context(), "webhook signature verification failed", "error", err)
		writeWebhookError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	if err := h.webhooks.HandleEvent(r.Context(), event); err != nil {
		logger.ErrorContext(r.Context(), "webhook processing failed",
			"type", string(event.Type), "event_id", event.ID, "error", err)
		writeWebhookError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte("Webhook Error: " + message))
}
