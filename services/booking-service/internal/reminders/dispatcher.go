package reminders

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/notify/email"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/notify/sms"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

const (
	DefaultBatchSize = 50

	errAppointmentMissing = "appointment not found"
	errNoProvider         = "no provider configured; marked sent in demo"
)

type DispatcherStore interface {
	ListQueuedReminders(ctx context.Context, limit int) ([]model.Reminder, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	FinishReminder(ctx context.Context, r model.Reminder) error
}

type DispatcherConfig struct {
	BatchSize int
	Email     email.Sender
	SMS       sms.Sender
}

type Dispatcher struct {
	store   DispatcherStore
	email   email.Sender
	sms     sms.Sender
	batch   int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewDispatcher(store DispatcherStore, cfg DispatcherConfig, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Email == nil {
		cfg.Email = email.Disabled{}
	}
	if cfg.SMS == nil {
		cfg.SMS = sms.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, email: cfg.Email, sms: cfg.SMS, batch: cfg.BatchSize, metrics: m, logger: logger}
}

// Dispatch drains one batch of queued reminders. Failures are recorded on
// each reminder; only a failure to list the queue is returned. A reminder
// whose result cannot be stored counts as failed and stays queued.
func (d *Dispatcher) Dispatch(ctx context.Context) (sent, failed int, err error) {
	queued, err := d.store.ListQueuedReminders(ctx, d.batch)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range queued {
		r.Status, r.LastError = d.deliver(ctx, r)
		if err := d.store.FinishReminder(ctx, r); err != nil {
			// The row stays queued, so the next batch delivers it again.
			d.logger.Error("finish reminder failed; reminder stays queued and will be retried",
				"reminder_id", r.ID, "delivered", r.Status == model.ReminderSent, "err", err)
			r.Status = model.ReminderFailed
		}
		if r.Status == model.ReminderSent {
			sent++
		} else {
			failed++
		}
		d.metrics.ObserveReminderDispatched(string(r.Kind), string(r.Status))
	}
	if len(queued) > 0 {
		d.logger.Info("reminders dispatched", "sent", sent, "failed", failed)
	}
	return sent, failed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, r model.Reminder) (model.ReminderStatus, string) {
	a, err := d.store.GetAppointment(ctx, r.AppointmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.ReminderFailed, errAppointmentMissing
	}
	if err != nil {
		return model.ReminderFailed, err.Error()
	}

	start := model.FormatISO(a.Start)
	switch {
	case r.Kind == model.ReminderEmail && email.Configured(d.email) && a.CustomerEmail != "":
		err = d.email.Send(ctx, email.Message{
			To:      a.CustomerEmail,
			ToName:  a.CustomerName,
			Subject: "Appointment reminder",
			Text:    fmt.Sprintf("Hi %s, this is a reminder for your appointment at %s", a.CustomerName, start),
			HTML:    fmt.Sprintf("<p>Hi %s, this is a reminder for your appointment at %s</p>", html.EscapeString(a.CustomerName), start),
		})
	case r.Kind == model.ReminderSMS && sms.Configured(d.sms) && a.CustomerPhone != "":
		err = d.sms.Send(ctx, a.CustomerPhone, "Reminder: appointment at "+start)
	default:
		return model.ReminderSent, errNoProvider
	}
	if err != nil {
		d.logger.Warn("reminder delivery failed", "reminder_id", r.ID, "kind", r.Kind, "err", err)
		return model.ReminderFailed, err.Error()
	}
	return model.ReminderSent, ""
}
