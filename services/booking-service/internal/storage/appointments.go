package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/db"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/outbox"
)

const appointmentColumns = `id, business_id, staff_id, service_id, customer_name, customer_email, customer_phone,
	start_time, end_time, status, amount_cents_total, amount_cents_due_now, currency,
	stripe_checkout_session_id, stripe_payment_intent_id, notes, created_at`

// CreateAppointment inserts a and, when events are recorded, its booked event
// in the same transaction.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.inTx(ctx, func(q db.DBTX) error {
		err := q.QueryRow(ctx, `
			INSERT INTO appointments (id, business_id, staff_id, service_id, customer_name, customer_email, customer_phone,
				start_time, end_time, status, amount_cents_total, amount_cents_due_now, currency, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING created_at
		`, a.ID, a.BusinessID, a.StaffID, a.ServiceID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
			a.Start, a.End, string(a.Status), a.AmountCentsTotal, a.AmountCentsDueNow, a.Currency, a.Notes).Scan(&a.CreatedAt)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, q, func() (outbox.Event, error) { return outbox.AppointmentBooked(*a) })
	})
	return wrap("create appointment", err)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	return a, wrap("get appointment", err)
}

// FindAppointmentByCheckoutSession resolves a Stripe checkout session back to its appointment.
func (s *Store) FindAppointmentByCheckoutSession(ctx context.Context, sessionID string) (model.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE stripe_checkout_session_id = $1 AND stripe_checkout_session_id <> ''`,
		sessionID))
	return a, wrap("find appointment by checkout session", err)
}

func (s *Store) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET stripe_checkout_session_id = $2, updated_at = now()
		WHERE id = $1
	`, id, sessionID)
	if err != nil {
		return wrap("set checkout session", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("set checkout session", pgx.ErrNoRows)
	}
	return nil
}

// TransitionAppointment moves appointment id to status to when model.CanTransition
// allows it. changed is false when the move is refused or a no-op; the returned
// appointment always reflects the stored row.
func (s *Store) TransitionAppointment(ctx context.Context, id string, to model.AppointmentStatus, paymentIntentID string) (a model.Appointment, changed bool, err error) {
	err = s.inTx(ctx, func(q db.DBTX) error {
		cur, err := scanAppointment(q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		a = cur
		if !model.CanTransition(cur.Status, to) {
			return nil
		}
		sameStatus := cur.Status == to
		newIntent := paymentIntentID != "" && paymentIntentID != cur.StripePaymentIntentID
		if sameStatus && !newIntent {
			return nil
		}

		if newIntent {
			a.StripePaymentIntentID = paymentIntentID
		}
		a.Status = to
		if _, err := q.Exec(ctx, `
			UPDATE appointments
			SET status = $2, stripe_payment_intent_id = $3, updated_at = now()
			WHERE id = $1
		`, id, string(a.Status), a.StripePaymentIntentID); err != nil {
			return err
		}
		changed = !sameStatus
		if changed && to == model.StatusConfirmed {
			return s.appendEvent(ctx, q, func() (outbox.Event, error) { return outbox.AppointmentConfirmed(a) })
		}
		return nil
	})
	return a, changed, wrap("transition appointment", err)
}

// ListBlockingAppointments returns pending and confirmed appointments for one
// staff member whose start falls in [from, to).
func (s *Store) ListBlockingAppointments(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND staff_id = $2
			AND status = ANY($3)
			AND start_time >= $4
			AND start_time < $5
		ORDER BY start_time ASC
	`, businessID, staffID, statusStrings(model.BlockingStatuses), from, to)
	if err != nil {
		return nil, wrap("list blocking appointments", err)
	}
	appts, err := collectAppointments(rows)
	return appts, wrap("list blocking appointments", err)
}

type AppointmentFilter struct {
	BusinessID string
	Statuses   []model.AppointmentStatus
	Limit      int
}

// ListAppointments returns the business's appointments by start time ascending.
func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := s.EachAppointment(ctx, f, func(a model.Appointment) error {
		appts = append(appts, a)
		return nil
	})
	return appts, err
}

// EachAppointment streams matching appointments to fn in start order without
// buffering the result set. A Limit of zero means no limit.
func (s *Store) EachAppointment(ctx context.Context, f AppointmentFilter, fn func(model.Appointment) error) error {
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	var statuses []string
	if len(f.Statuses) > 0 {
		statuses = statusStrings(f.Statuses)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND ($2::text[] IS NULL OR status = ANY($2))
		ORDER BY start_time ASC, id ASC
		LIMIT $3
	`, f.BusinessID, statuses, limit)
	if err != nil {
		return wrap("list appointments", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return wrap("list appointments", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return wrap("list appointments", rows.Err())
}

// ListConfirmedStartingBetween returns confirmed appointments with start in [from, to].
func (s *Store) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
			AND start_time >= $1
			AND start_time <= $2
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, wrap("list confirmed appointments", err)
	}
	appts, err := collectAppointments(rows)
	return appts, wrap("list confirmed appointments", err)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	if err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.StaffID,
		&a.ServiceID,
		&a.CustomerName,
		&a.CustomerEmail,
		&a.CustomerPhone,
		&a.Start,
		&a.End,
		&status,
		&a.AmountCentsTotal,
		&a.AmountCentsDueNow,
		&a.Currency,
		&a.StripeCheckoutSessionID,
		&a.StripePaymentIntentID,
		&a.Notes,
		&a.CreatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.AppointmentStatus(status)
	a.Start = a.Start.UTC()
	a.End = a.End.UTC()
	return a, nil
}

func statusStrings(statuses []model.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
