package handlers

import (
	"errors"
	"io"
	"net/http"

	"toptours-server/internal/billing"
)

// Stripe webhook payloads are small; cap reads defensively.
const maxWebhookBody = 1 << 20

// BillingWebhook receives Stripe subscription events and syncs the
// local tier mirror. Signature failures are rejected; event types we do
// not track are acknowledged without side effects so Stripe stops retrying.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	event, err := a.Billing.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("stripe signature verification failed")
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}

	if err := a.Billing.HandleEvent(r.Context(), event); err != nil {
		if errors.Is(err, billing.ErrIgnoredEvent) {
			a.json(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("webhook handling failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to process event")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "processed"})
}
