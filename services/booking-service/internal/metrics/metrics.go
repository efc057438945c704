package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the booking service's Prometheus collectors. A nil *Metrics
// is valid and records nothing, which keeps tests free of registries.
type Metrics struct {
	bookings          *prometheus.CounterVec
	slotsReturned     prometheus.Histogram
	checkoutFailures  *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	remindersQueued   *prometheus.CounterVec
	remindersFinished *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	gatherer          prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg gets a fresh registry so
// repeated construction in tests never panics on duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingsaas",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookingsaas",
			Subsystem: "booking",
			Name:      "slots_returned",
			Help:      "Number of open slots returned per availability query",
			Buckets:   []float64{0, 1, 4, 8, 16, 32, 64, 128},
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingsaas",
			Subsystem: "payments",
			Name:      "checkout_failures_total",
			Help:      "Checkout sessions that could not be created",
		}, []string{"reason"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingsaas",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Stripe webhook deliveries by event type and result",
		}, []string{"event_type", "result"}),
		remindersQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingsaas",
			Subsystem: "reminders",
			Name:      "queued_total",
			Help:      "Reminders enqueued by kind",
		}, []string{"kind"}),
		remindersFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingsaas",
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Reminders dispatched by kind and final status",
		}, []string{"kind", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookingsaas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.bookings,
		m.slotsReturned,
		m.checkoutFailures,
		m.webhookEvents,
		m.remindersQueued,
		m.remindersFinished,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSlots(n int) {
	if m == nil {
		return
	}
	m.slotsReturned.Observe(float64(n))
}

func (m *Metrics) ObserveCheckoutFailure(reason string) {
	if m == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) ObserveReminderQueued(kind string) {
	if m == nil {
		return
	}
	m.remindersQueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveReminderDispatched(kind, status string) {
	if m == nil {
		return
	}
	m.remindersFinished.WithLabelValues(kind, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by chi route pattern, so
// /api/b/{slug}/slots is one series rather than one per tenant.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
