package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/pashagolub/pgxmock/v4"
)

var apptColumns = []string{
	"id", "business_id", "staff_id", "service_id", "customer_name", "customer_email", "customer_phone",
	"start_time", "end_time", "status", "amount_cents_total", "amount_cents_due_now", "currency",
	"stripe_checkout_session_id", "stripe_payment_intent_id", "notes", "created_at",
}

func apptRow(status string) *pgxmock.Rows {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(apptColumns).AddRow(
		"appt-1", "biz-1", "staff-1", "svc-1", "Ada", "ada@example.com", "",
		start, start.Add(30*time.Minute), status, int64(10000), int64(2000), "usd",
		"cs_test_1", "", "", start.Add(-time.Hour),
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestGetBusinessBySlugNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM businesses WHERE slug").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err := NewStore(mock, Options{}).GetBusinessBySlug(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBusinessAppliesBrandingDefaults(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM businesses WHERE id").WithArgs("biz-1").WillReturnRows(
		pgxmock.NewRows([]string{
			"id", "owner_id", "name", "slug", "timezone", "currency", "ics_token_hash", "deposit_percent_default",
			"reminders_enabled", "reminders_email_enabled", "reminders_sms_enabled", "branding", "created_at",
		}).AddRow("biz-1", "", "Acme", "acme", "UTC", "usd", "hash", 20, true, true, false,
			[]byte(`{"hero_title":"Welcome"}`), created),
	)

	b, err := NewStore(mock, Options{}).GetBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("GetBusiness: %v", err)
	}
	if b.Branding.HeroTitle != "Welcome" || b.Branding.PrimaryColor != model.DefaultPrimaryColor {
		t.Fatalf("unexpected branding %+v", b.Branding)
	}
}

func TestCreateBusinessUniqueViolation(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO businesses").WithArgs(anyArgs(12)...).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewStore(mock, Options{}).CreateBusiness(context.Background(), &model.Business{ID: "biz-1", Slug: "acme"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateAppointmentRecordsEventInSameTx(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").WithArgs(anyArgs(14)...).WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec("INSERT INTO outbox_events").WithArgs(anyArgs(7)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	a := &model.Appointment{ID: "appt-1", BusinessID: "biz-1", Status: model.StatusPending}
	if err := NewStore(mock, Options{RecordEvents: true}).CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if !a.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at to be filled, got %s", a.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionAppointmentConfirmsPending(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1").WillReturnRows(apptRow("pending"))
	mock.ExpectExec("UPDATE appointments").WithArgs("appt-1", "confirmed", "pi_1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO outbox_events").WithArgs(anyArgs(7)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	a, changed, err := NewStore(mock, Options{RecordEvents: true}).TransitionAppointment(context.Background(), "appt-1", model.StatusConfirmed, "pi_1")
	if err != nil {
		t.Fatalf("TransitionAppointment: %v", err)
	}
	if !changed || a.Status != model.StatusConfirmed || a.StripePaymentIntentID != "pi_1" {
		t.Fatalf("unexpected result changed=%v appt=%+v", changed, a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionAppointmentLeavesCanceledAlone(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1").WillReturnRows(apptRow("canceled"))
	mock.ExpectCommit()

	a, changed, err := NewStore(mock, Options{RecordEvents: true}).TransitionAppointment(context.Background(), "appt-1", model.StatusConfirmed, "")
	if err != nil {
		t.Fatalf("TransitionAppointment: %v", err)
	}
	if changed || a.Status != model.StatusCanceled {
		t.Fatalf("canceled appointment must not change, got changed=%v status=%s", changed, a.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListBlockingAppointmentsFiltersStatuses(t *testing.T) {
	mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery("FROM appointments").
		WithArgs("biz-1", "staff-1", []string{"pending", "confirmed"}, from, to).
		WillReturnRows(apptRow("pending"))

	appts, err := NewStore(mock, Options{}).ListBlockingAppointments(context.Background(), "biz-1", "staff-1", from, to)
	if err != nil {
		t.Fatalf("ListBlockingAppointments: %v", err)
	}
	if len(appts) != 1 || appts[0].Status != model.StatusPending {
		t.Fatalf("unexpected appointments %+v", appts)
	}
}

func TestGetAvailabilityDecodesWeekly(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM availability").WithArgs("biz-1", "staff-1").WillReturnRows(
		pgxmock.NewRows([]string{"id", "business_id", "staff_id", "weekly", "slot_increment_min", "updated_at"}).
			AddRow("av-1", "biz-1", "staff-1", []byte(`{"0":[{"start_min":540,"end_min":600}]}`), 30, time.Now()),
	)

	av, err := NewStore(mock, Options{}).GetAvailability(context.Background(), "biz-1", "staff-1")
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	if len(av.Weekly[0]) != 1 || av.Weekly[0][0].StartMin != 540 || av.Increment() != 30 {
		t.Fatalf("unexpected availability %+v", av)
	}
}

func TestFinishReminderMissingRow(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reminders").WithArgs("r-1", "sent", "").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := NewStore(mock, Options{}).FinishReminder(context.Background(), model.Reminder{ID: "r-1", Status: model.ReminderSent})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
