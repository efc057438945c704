package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an appointment may move from one status to another.
// Setting a status to itself is allowed so repeated webhook deliveries stay harmless.
func CanTransition(from, to AppointmentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCanceled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCanceled
	}
	return false
}

// Blocking statuses occupy the staff member's time for slot generation.
var BlockingStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

// CalendarStatuses are exported in the ICS feed.
var CalendarStatuses = []AppointmentStatus{StatusConfirmed, StatusCompleted}

type Appointment struct {
	ID                      string            `json:"id"`
	BusinessID              string            `json:"business_id"`
	StaffID                 string            `json:"staff_id"`
	ServiceID               string            `json:"service_id"`
	CustomerName            string            `json:"customer_name"`
	CustomerEmail           string            `json:"customer_email,omitempty"`
	CustomerPhone           string            `json:"customer_phone,omitempty"`
	Start                   time.Time         `json:"start_iso"`
	End                     time.Time         `json:"end_iso"`
	Status                  AppointmentStatus `json:"status"`
	AmountCentsTotal        int64             `json:"amount_cents_total"`
	AmountCentsDueNow       int64             `json:"amount_cents_due_now"`
	Currency                string            `json:"currency"`
	StripeCheckoutSessionID string            `json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   string            `json:"stripe_payment_intent_id,omitempty"`
	Notes                   string            `json:"notes,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
}

// ISOLayout renders UTC instants with an explicit +00:00 offset, as used in
// exports and notification text.
const ISOLayout = "2006-01-02T15:04:05+00:00"

func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
