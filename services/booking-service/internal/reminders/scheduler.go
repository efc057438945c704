package reminders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

// Offsets are how long before an appointment's start reminders go out.
var Offsets = []time.Duration{24 * time.Hour, 2 * time.Hour}

// Window is the tolerance on either side of now+offset.
const Window = 5 * time.Minute

type SchedulerStore interface {
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	CreateReminder(ctx context.Context, r *model.Reminder) error
}

type Scheduler struct {
	store   SchedulerStore
	dedup   Deduper
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewScheduler(store SchedulerStore, dedup Deduper, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if dedup == nil {
		dedup = NoDedup{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, dedup: dedup, metrics: m, logger: logger}
}

// Run enqueues reminders for confirmed appointments starting around now+offset
// for every offset. It returns how many reminders were queued.
func (s *Scheduler) Run(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	businesses := map[string]*model.Business{}
	queued := 0
	for _, offset := range Offsets {
		target := now.Add(offset)
		appts, err := s.store.ListConfirmedStartingBetween(ctx, target.Add(-Window), target.Add(Window))
		if err != nil {
			return queued, err
		}
		for _, a := range appts {
			biz, err := s.business(ctx, businesses, a.BusinessID)
			if err != nil {
				return queued, err
			}
			if biz == nil || !biz.RemindersEnabled {
				continue
			}
			for _, kind := range enabledKinds(*biz) {
				ok, err := s.claim(ctx, a, kind, offset)
				if err != nil {
					return queued, err
				}
				if !ok {
					continue
				}
				r := model.Reminder{
					ID:            uuid.NewString(),
					BusinessID:    a.BusinessID,
					AppointmentID: a.ID,
					Kind:          kind,
					ScheduledAt:   now,
					Status:        model.ReminderQueued,
				}
				if err := s.store.CreateReminder(ctx, &r); err != nil {
					return queued, err
				}
				queued++
				s.metrics.ObserveReminderQueued(string(kind))
			}
		}
	}
	s.logger.Info("reminders scheduled", "queued", queued)
	return queued, nil
}

func (s *Scheduler) business(ctx context.Context, cache map[string]*model.Business, id string) (*model.Business, error) {
	if b, ok := cache[id]; ok {
		return b, nil
	}
	b, err := s.store.GetBusiness(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[id] = &b
	return &b, nil
}

// claim consults the deduper. A dedup backend failure queues the reminder
// anyway: a duplicate is better than a missed reminder.
func (s *Scheduler) claim(ctx context.Context, a model.Appointment, kind model.ReminderKind, offset time.Duration) (bool, error) {
	ok, err := s.dedup.Claim(ctx, dedupKey(a.BusinessID, a.ID, string(kind), offset))
	if err != nil {
		s.logger.Warn("reminder dedup unavailable", "appointment_id", a.ID, "err", err)
		return true, nil
	}
	return ok, nil
}

func enabledKinds(b model.Business) []model.ReminderKind {
	var kinds []model.ReminderKind
	if b.RemindersEmailEnabled {
		kinds = append(kinds, model.ReminderEmail)
	}
	if b.RemindersSMSEnabled {
		kinds = append(kinds, model.ReminderSMS)
	}
	return kinds
}
