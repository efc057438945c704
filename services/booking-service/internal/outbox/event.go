package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	TypeAppointmentBooked    = "booking.appointment.booked.v1"
	TypeAppointmentConfirmed = "booking.appointment.confirmed.v1"
	TypeReminderSent         = "reminder.sent.v1"
	TypeReminderFailed       = "reminder.failed.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	EventID           string    `json:"event_id"`
	OccurredAt        time.Time `json:"occurred_at"`
	AppointmentID     string    `json:"appointment_id"`
	BusinessID        string    `json:"business_id"`
	StaffID           string    `json:"staff_id"`
	ServiceID         string    `json:"service_id"`
	Status            string    `json:"status"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	AmountCentsDueNow int64     `json:"amount_cents_due_now"`
	Currency          string    `json:"currency"`
}

type reminderPayload struct {
	EventID       string    `json:"event_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	ReminderID    string    `json:"reminder_id"`
	BusinessID    string    `json:"business_id"`
	AppointmentID string    `json:"appointment_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

func AppointmentBooked(a model.Appointment) (Event, error) {
	return appointmentEvent(TypeAppointmentBooked, a)
}

func AppointmentConfirmed(a model.Appointment) (Event, error) {
	return appointmentEvent(TypeAppointmentConfirmed, a)
}

// ReminderResult emits reminder.sent.v1 or reminder.failed.v1 based on r.Status.
func ReminderResult(r model.Reminder) (Event, error) {
	eventType := TypeReminderSent
	if r.Status == model.ReminderFailed {
		eventType = TypeReminderFailed
	}
	id := uuid.NewString()
	body, err := json.Marshal(reminderPayload{
		EventID:       id,
		OccurredAt:    time.Now().UTC(),
		ReminderID:    r.ID,
		BusinessID:    r.BusinessID,
		AppointmentID: r.AppointmentID,
		Kind:          string(r.Kind),
		Status:        string(r.Status),
		Error:         r.LastError,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{EventID: id, AggregateType: "reminder", AggregateID: r.AppointmentID, EventType: eventType, Payload: body}, nil
}

func appointmentEvent(eventType string, a model.Appointment) (Event, error) {
	id := uuid.NewString()
	body, err := json.Marshal(appointmentPayload{
		EventID:           id,
		OccurredAt:        time.Now().UTC(),
		AppointmentID:     a.ID,
		BusinessID:        a.BusinessID,
		StaffID:           a.StaffID,
		ServiceID:         a.ServiceID,
		Status:            string(a.Status),
		StartTime:         a.Start.UTC(),
		EndTime:           a.End.UTC(),
		AmountCentsDueNow: a.AmountCentsDueNow,
		Currency:          a.Currency,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{EventID: id, AggregateType: "appointment", AggregateID: a.ID, EventType: eventType, Payload: body}, nil
}
