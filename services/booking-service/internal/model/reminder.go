package model

import "time"

type ReminderKind string

const (
	ReminderEmail ReminderKind = "email"
	ReminderSMS   ReminderKind = "sms"
)

type ReminderStatus string

const (
	ReminderQueued ReminderStatus = "queued"
	ReminderSent   ReminderStatus = "sent"
	ReminderFailed ReminderStatus = "failed"
)

type Reminder struct {
	ID            string         `json:"id"`
	BusinessID    string         `json:"business_id"`
	AppointmentID string         `json:"appointment_id"`
	Kind          ReminderKind   `json:"kind"`
	ScheduledAt   time.Time      `json:"scheduled_at"`
	Status        ReminderStatus `json:"status"`
	LastError     string         `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
