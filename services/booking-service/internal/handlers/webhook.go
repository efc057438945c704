package handlers

import (
	"io"
	"net/http"

	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/payments"
)

const maxWebhookBytes = 64 << 10

func (a *API) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if !a.webhooks.Configured() {
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	evt, err := a.webhooks.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.metrics.ObserveWebhook("unknown", "invalid_signature")
		a.logger.Warn("stripe webhook rejected", "err", err)
		a.writeError(w, r, payments.ErrInvalidSignature)
		return
	}
	if !evt.Confirms() {
		a.metrics.ObserveWebhook(evt.Type, "ignored")
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	id, changed, err := a.engine.ConfirmPayment(r.Context(), evt)
	if err != nil {
		a.metrics.ObserveWebhook(evt.Type, "error")
		a.writeError(w, r, err)
		return
	}
	result := "unchanged"
	switch {
	case id == "":
		result = "unmatched"
	case changed:
		result = "confirmed"
		a.logger.Info("appointment confirmed", "appointment_id", id, "event_id", evt.ID)
	}
	a.metrics.ObserveWebhook(evt.Type, result)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

