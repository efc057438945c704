// Command stripe-webhook-sim posts a signed Stripe event for one appointment
// to a running booking service, for exercising the payment confirmation path
// without a Stripe account.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL     = flag.String("base-url", getenv("BASE_URL", "http://localhost:8000"), "booking service base url")
		evtType     = flag.String("type", getenv("STRIPE_EVENT_TYPE", "checkout.session.completed"), "checkout.session.completed or payment_intent.succeeded")
		appointment = flag.String("appointment-id", getenv("APPOINTMENT_ID", ""), "appointment_id metadata")
		session     = flag.String("session-id", getenv("CHECKOUT_SESSION_ID", ""), "checkout session id (defaults to a generated one)")
		secret      = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*appointment) == "" && strings.TrimSpace(*session) == "" {
		fatal("APPOINTMENT_ID or CHECKOUT_SESSION_ID is required")
	}

	now := time.Now().UTC()
	suffix := now.UnixNano()
	if *session == "" {
		*session = fmt.Sprintf("cs_test_%d", suffix)
	}

	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", suffix), *evtType, now, *appointment, *session, fmt.Sprintf("pi_test_%d", suffix))
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/stripe/webhook", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func buildEventJSON(eventID, eventType string, t time.Time, appointmentID, sessionID, paymentIntentID string) ([]byte, error) {
	metadata := map[string]any{}
	if appointmentID != "" {
		metadata["appointment_id"] = appointmentID
	}
	var object map[string]any
	switch eventType {
	case "checkout.session.completed":
		object = map[string]any{
			"id":             sessionID,
			"object":         "checkout.session",
			"payment_status": "paid",
			"payment_intent": paymentIntentID,
			"metadata":       metadata,
		}
	case "payment_intent.succeeded":
		object = map[string]any{
			"id":       paymentIntentID,
			"object":   "payment_intent",
			"status":   "succeeded",
			"metadata": metadata,
		}
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
