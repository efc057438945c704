package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/auth"
	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/libs/runtime"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

// Store is the persistence the HTTP layer reads and writes directly.
type Store interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	GetBusinessBySlug(ctx context.Context, slug string) (model.Business, error)
	CreateStaff(ctx context.Context, s *model.Staff) error
	GetStaff(ctx context.Context, id string) (model.Staff, error)
	ListActiveStaff(ctx context.Context, businessID string) ([]model.Staff, error)
	CreateService(ctx context.Context, s *model.Service) error
	ListServices(ctx context.Context, businessID string) ([]model.Service, error)
	UpsertAvailability(ctx context.Context, av *model.Availability) error
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error)
	EachAppointment(ctx context.Context, f storage.AppointmentFilter, fn func(model.Appointment) error) error
}

type API struct {
	store      Store
	engine     *booking.Engine
	scheduler  *reminders.Scheduler
	dispatcher *reminders.Dispatcher
	webhooks   *payments.WebhookVerifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

type Deps struct {
	Store      Store
	Engine     *booking.Engine
	Scheduler  *reminders.Scheduler
	Dispatcher *reminders.Dispatcher
	Webhooks   *payments.WebhookVerifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewAPI(d Deps) *API {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &API{
		store:      d.Store,
		engine:     d.Engine,
		scheduler:  d.Scheduler,
		dispatcher: d.Dispatcher,
		webhooks:   d.Webhooks,
		metrics:    d.Metrics,
		logger:     d.Logger,
		now:        d.Now,
	}
}

type RouterConfig struct {
	// AdminJWTSecret guards dashboard and cron routes when set.
	AdminJWTSecret string
	// Limiter throttles the public storefront routes; nil disables throttling.
	Limiter     httpx.Limiter
	ReadyChecks []runtime.ReadyCheck
}

func (a *API) Routes(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(a.metrics.Middleware)

	r.Get("/", a.root)
	r.Get("/healthz", runtime.HealthHandler)
	r.Get("/readyz", runtime.ReadyHandler(cfg.ReadyChecks...))
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/stripe/webhook", a.stripeWebhook)

		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(httpx.RateLimit(cfg.Limiter, a.logger, true))
			}
			r.Get("/b/{slug}", a.storefront)
			r.Post("/b/{slug}/slots", a.slots)
			r.Post("/b/{slug}/book", a.book)
			r.Get("/b/{slug}/ics", a.icsFeed)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer(cfg.AdminJWTSecret))
			r.Post("/business", a.createBusiness)
			r.Post("/staff", a.createStaff)
			r.Post("/service", a.createService)
			r.Post("/availability", a.setAvailability)
			r.Get("/appointments", a.listAppointments)
			r.Get("/appointments/export", a.exportAppointments)
			r.Get("/appointments/{id}", a.getAppointment)
			r.Post("/appointments/{id}/status", a.setAppointmentStatus)
			r.Post("/cron/reminders", a.runReminders)
			r.Post("/reminders/send", a.sendReminders)
		})
	})
	return r
}

func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "Booking SaaS API"})
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and answered with a bare 500.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *booking.ValidationError
	var nf *booking.NotFoundError
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		httpx.WriteError(w, http.StatusBadRequest, string(bad))
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &nf):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrInvalidReference), errors.Is(err, booking.ErrSlugTaken):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, payments.ErrInvalidSignature):
		httpx.WriteError(w, http.StatusBadRequest, "invalid signature")
	default:
		a.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// badRequestError is answered with a 400 and its text.
type badRequestError string

func (e badRequestError) Error() string { return string(e) }

// decode reads and validates a JSON body. Malformed JSON is a validation error on "body".
func decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return booking.FieldError("body", "invalid json: "+err.Error())
	}
	return validateRequest(dst)
}

// authorize rejects callers whose token is scoped to another business.
func authorize(r *http.Request, businessID string) error {
	if !auth.AllowsBusiness(r.Context(), businessID) {
		return booking.ErrForbidden
	}
	return nil
}
