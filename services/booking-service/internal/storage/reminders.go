package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/db"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/outbox"
)

func (s *Store) CreateReminder(ctx context.Context, r *model.Reminder) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO reminders (id, business_id, appointment_id, kind, scheduled_at, status, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, r.ID, r.BusinessID, r.AppointmentID, string(r.Kind), r.ScheduledAt, string(r.Status), r.LastError).Scan(&r.CreatedAt)
	return wrap("create reminder", err)
}

// ListQueuedReminders returns up to limit queued reminders, oldest first.
func (s *Store) ListQueuedReminders(ctx context.Context, limit int) ([]model.Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, business_id, appointment_id, kind, scheduled_at, status, last_error, created_at
		FROM reminders
		WHERE status = 'queued'
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, wrap("list queued reminders", err)
	}
	reminders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Reminder, error) {
		var r model.Reminder
		var kind, status string
		err := row.Scan(&r.ID, &r.BusinessID, &r.AppointmentID, &kind, &r.ScheduledAt, &status, &r.LastError, &r.CreatedAt)
		r.Kind = model.ReminderKind(kind)
		r.Status = model.ReminderStatus(status)
		return r, err
	})
	return reminders, wrap("list queued reminders", err)
}

// FinishReminder stores the terminal status and last error of r together with its outcome event.
func (s *Store) FinishReminder(ctx context.Context, r model.Reminder) error {
	err := s.inTx(ctx, func(q db.DBTX) error {
		tag, err := q.Exec(ctx, `
			UPDATE reminders
			SET status = $2, last_error = $3, updated_at = now()
			WHERE id = $1
		`, r.ID, string(r.Status), r.LastError)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return s.appendEvent(ctx, q, func() (outbox.Event, error) { return outbox.ReminderResult(r) })
	})
	return wrap("finish reminder", err)
}
