package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

const (
	EventPaymentIntentSucceeded  = "payment_intent.succeeded"
	EventCheckoutSessionComplete = "checkout.session.completed"
)

// WebhookEvent is the part of a verified Stripe event that confirms a booking.
type WebhookEvent struct {
	ID                string
	Type              string
	AppointmentID     string
	CheckoutSessionID string
	PaymentIntentID   string
}

// Confirms reports whether the event marks a payment as done.
func (e WebhookEvent) Confirms() bool {
	return e.Type == EventPaymentIntentSucceeded || e.Type == EventCheckoutSessionComplete
}

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &WebhookVerifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Configured is false when no signing secret is set; such deliveries are
// acknowledged without being processed.
func (v *WebhookVerifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Parse verifies the Stripe-Signature header and extracts the booking references.
func (v *WebhookVerifier) Parse(payload []byte, sigHeader string) (WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("payments: decode payment intent: %w", err)
		}
		out.AppointmentID = pi.Metadata["appointment_id"]
		out.PaymentIntentID = pi.ID
	case EventCheckoutSessionComplete:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return out, fmt.Errorf("payments: decode checkout session: %w", err)
		}
		out.AppointmentID = cs.Metadata["appointment_id"]
		out.CheckoutSessionID = cs.ID
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}
	}
	return out, nil
}
