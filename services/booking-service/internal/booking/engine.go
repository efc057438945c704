package booking

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/bookingsaas/libs/otel"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type Store interface {
	GetBusinessBySlug(ctx context.Context, slug string) (model.Business, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	GetStaff(ctx context.Context, id string) (model.Staff, error)
	GetAvailability(ctx context.Context, businessID, staffID string) (model.Availability, error)
	ListBlockingAppointments(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	FindAppointmentByCheckoutSession(ctx context.Context, sessionID string) (model.Appointment, error)
	TransitionAppointment(ctx context.Context, id string, to model.AppointmentStatus, paymentIntentID string) (model.Appointment, bool, error)
}

type Engine struct {
	store    Store
	payments payments.Provider
	locker   Locker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Engine)

func WithLocker(l Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Store, provider payments.Provider, logger *slog.Logger, opts ...Option) *Engine {
	if provider == nil {
		provider = payments.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:    store,
		payments: provider,
		locker:   NoopLocker{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type SlotsRequest struct {
	Slug      string
	ServiceID string
	StaffID   string
	Date      string
}

type SlotsResult struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// Slots lists the bookable start times for one staff member on one UTC day.
func (e *Engine) Slots(ctx context.Context, req SlotsRequest) (SlotsResult, error) {
	ctx, span := otelx.Tracer("booking").Start(ctx, "booking.slots")
	defer span.End()

	if err := ValidateID("service_id", req.ServiceID); err != nil {
		return SlotsResult{}, err
	}
	if err := ValidateID("staff_id", req.StaffID); err != nil {
		return SlotsResult{}, err
	}
	day, err := parseDate(req.Date)
	if err != nil {
		return SlotsResult{}, err
	}
	biz, err := e.business(ctx, req.Slug)
	if err != nil {
		return SlotsResult{}, err
	}
	svc, err := e.store.GetService(ctx, req.ServiceID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && svc.BusinessID != biz.ID) {
		return SlotsResult{}, notFound("service")
	}
	if err != nil {
		return SlotsResult{}, err
	}
	span.SetAttributes(
		attribute.String("business_id", biz.ID),
		attribute.String("staff_id", req.StaffID),
		attribute.String("date", req.Date),
	)

	slots, err := e.openSlots(ctx, biz.ID, req.StaffID, svc, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slots failed")
		return SlotsResult{}, err
	}
	e.metrics.ObserveSlots(len(slots))
	return SlotsResult{Date: req.Date, Times: availability.Format(slots)}, nil
}

func (e *Engine) openSlots(ctx context.Context, businessID, staffID string, svc model.Service, day time.Time) ([]time.Time, error) {
	av, err := e.store.GetAvailability(ctx, businessID, staffID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blocks := av.Weekly[model.MondayIndex(day.Weekday())]
	if len(blocks) == 0 {
		return nil, nil
	}
	appts, err := e.store.ListBlockingAppointments(ctx, businessID, staffID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, availability.Interval{Start: a.Start, End: a.End})
	}
	total := time.Duration(svc.TotalMinutes()) * time.Minute
	step := time.Duration(av.Increment()) * time.Minute
	return availability.Generate(day, blocks, total, step, busy), nil
}

type BookRequest struct {
	Slug          string
	ServiceID     string
	StaffID       string
	Date          string
	Time          string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

type BookResult struct {
	AppointmentID string  `json:"appointment_id"`
	CheckoutURL   *string `json:"checkout_url"`
}

// Book re-checks the requested slot, persists a pending appointment and asks
// the payment provider for a checkout. A failed checkout does not fail the booking.
func (e *Engine) Book(ctx context.Context, req BookRequest) (res BookResult, err error) {
	ctx, span := otelx.Tracer("booking").Start(ctx, "booking.book")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "book failed")
		}
		span.End()
	}()

	if err := ValidateID("service_id", req.ServiceID); err != nil {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, err
	}
	if err := ValidateID("staff_id", req.StaffID); err != nil {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, err
	}
	day, err := parseDate(req.Date)
	if err != nil {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, err
	}
	clock, err := time.Parse(timeLayout, strings.TrimSpace(req.Time))
	if err != nil {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, FieldError("time", "must be HH:MM")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, FieldError("customer_name", "required")
	}

	biz, err := e.business(ctx, req.Slug)
	if err != nil {
		return BookResult{}, err
	}
	svc, staff, err := e.references(ctx, biz.ID, req.ServiceID, req.StaffID)
	if err != nil {
		e.metrics.ObserveBooking("invalid")
		return BookResult{}, err
	}
	span.SetAttributes(attribute.String("business_id", biz.ID), attribute.String("staff_id", staff.ID))

	start := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	end := start.Add(time.Duration(svc.TotalMinutes()) * time.Minute)

	unlock, err := e.locker.Lock(ctx, lockKey(biz.ID, staff.ID, req.Date))
	if errors.Is(err, ErrLockHeld) {
		e.metrics.ObserveBooking("slot_unavailable")
		return BookResult{}, ErrSlotUnavailable
	}
	if err != nil {
		return BookResult{}, err
	}
	defer unlock(context.WithoutCancel(ctx))

	slots, err := e.openSlots(ctx, biz.ID, staff.ID, svc, day)
	if err != nil {
		return BookResult{}, err
	}
	if !slices.Contains(availability.Format(slots), start.Format(timeLayout)) {
		e.metrics.ObserveBooking("slot_unavailable")
		return BookResult{}, ErrSlotUnavailable
	}

	appt := model.Appointment{
		ID:                uuid.NewString(),
		BusinessID:        biz.ID,
		StaffID:           staff.ID,
		ServiceID:         svc.ID,
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerEmail:     strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:     strings.TrimSpace(req.CustomerPhone),
		Start:             start,
		End:               end,
		Status:            model.StatusPending,
		AmountCentsTotal:  svc.PriceCents,
		AmountCentsDueNow: DepositCents(svc.PriceCents, svc.DepositPercent(biz)),
		Currency:          biz.Currency,
		Notes:             req.Notes,
	}
	if appt.Currency == "" {
		appt.Currency = model.DefaultCurrency
	}
	if err := e.store.CreateAppointment(ctx, &appt); err != nil {
		return BookResult{}, err
	}
	e.metrics.ObserveBooking("booked")

	return BookResult{AppointmentID: appt.ID, CheckoutURL: e.checkout(ctx, appt, svc)}, nil
}

func (e *Engine) checkout(ctx context.Context, appt model.Appointment, svc model.Service) *string {
	if !e.payments.Configured() {
		e.metrics.ObserveCheckoutFailure("not_configured")
		return nil
	}
	co, err := e.payments.CreateCheckout(ctx, payments.CheckoutRequest{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		ProductName:   svc.Name,
		Currency:      appt.Currency,
		AmountCents:   appt.AmountCentsDueNow,
	})
	if err != nil {
		e.metrics.ObserveCheckoutFailure("provider_error")
		e.logger.Error("checkout session failed", "appointment_id", appt.ID, "err", err)
		return nil
	}
	if co.SessionID != "" {
		if err := e.store.SetCheckoutSession(ctx, appt.ID, co.SessionID); err != nil {
			e.logger.Warn("store checkout session failed", "appointment_id", appt.ID, "err", err)
		}
	}
	if co.URL == "" {
		return nil
	}
	url := co.URL
	return &url
}

// ConfirmPayment applies a verified payment event. It returns the id of the
// appointment it resolved to, or "" when nothing matched.
func (e *Engine) ConfirmPayment(ctx context.Context, evt payments.WebhookEvent) (string, bool, error) {
	if !evt.Confirms() {
		return "", false, nil
	}
	// metadata id first, then the stored session id, then the payment intent id
	resolvers := []func() string{
		func() string { return uuidOrEmpty(evt.AppointmentID) },
		func() string {
			if evt.CheckoutSessionID == "" {
				return ""
			}
			a, err := e.store.FindAppointmentByCheckoutSession(ctx, evt.CheckoutSessionID)
			if err != nil {
				return ""
			}
			return a.ID
		},
		func() string { return uuidOrEmpty(evt.PaymentIntentID) },
	}
	for _, resolve := range resolvers {
		id := resolve()
		if id == "" {
			continue
		}
		a, changed, err := e.store.TransitionAppointment(ctx, id, model.StatusConfirmed, evt.PaymentIntentID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return id, false, err
		}
		if !changed && a.Status != model.StatusConfirmed {
			e.logger.Info("payment for closed appointment ignored", "appointment_id", id, "status", a.Status)
		}
		return id, changed, nil
	}
	e.logger.Warn("payment event matched no appointment", "event_id", evt.ID, "type", evt.Type)
	return "", false, nil
}

// SetStatus completes or cancels an appointment from the dashboard.
func (e *Engine) SetStatus(ctx context.Context, id string, to model.AppointmentStatus) (model.Appointment, error) {
	if err := ValidateID("id", id); err != nil {
		return model.Appointment{}, err
	}
	if !to.Valid() {
		return model.Appointment{}, FieldError("status", "must be one of pending, confirmed, completed, canceled")
	}
	// Confirmation only ever comes from a verified payment event.
	if to != model.StatusCompleted && to != model.StatusCanceled {
		return model.Appointment{}, ErrInvalidTransition
	}
	a, changed, err := e.store.TransitionAppointment(ctx, id, to, "")
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, notFound("appointment")
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if !changed && a.Status != to {
		return a, ErrInvalidTransition
	}
	a.Status = to
	return a, nil
}

func (e *Engine) business(ctx context.Context, slug string) (model.Business, error) {
	biz, err := e.store.GetBusinessBySlug(ctx, strings.TrimSpace(slug))
	if errors.Is(err, storage.ErrNotFound) {
		return model.Business{}, notFound("business")
	}
	return biz, err
}

func (e *Engine) references(ctx context.Context, businessID, serviceID, staffID string) (model.Service, model.Staff, error) {
	svc, err := e.store.GetService(ctx, serviceID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && svc.BusinessID != businessID) {
		return model.Service{}, model.Staff{}, ErrInvalidReference
	}
	if err != nil {
		return model.Service{}, model.Staff{}, err
	}
	staff, err := e.store.GetStaff(ctx, staffID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && staff.BusinessID != businessID) {
		return model.Service{}, model.Staff{}, ErrInvalidReference
	}
	if err != nil {
		return model.Service{}, model.Staff{}, err
	}
	return svc, staff, nil
}

func parseDate(s string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, FieldError("date", "must be YYYY-MM-DD")
	}
	return day, nil
}

func uuidOrEmpty(s string) string {
	if _, err := uuid.Parse(s); err != nil {
		return ""
	}
	return s
}
