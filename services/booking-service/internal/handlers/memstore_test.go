package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

// memStore backs the handler, booking and reminder interfaces with maps.
type memStore struct {
	mu           sync.Mutex
	businesses   map[string]model.Business
	staff        map[string]model.Staff
	services     map[string]model.Service
	availability map[string]model.Availability
	appointments map[string]model.Appointment
	reminders    []model.Reminder
}

func newMemStore() *memStore {
	return &memStore{
		businesses:   map[string]model.Business{},
		staff:        map[string]model.Staff{},
		services:     map[string]model.Service{},
		availability: map[string]model.Availability{},
		appointments: map[string]model.Appointment{},
	}
}

func (m *memStore) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.businesses {
		if b.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateBusiness(_ context.Context, b *model.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.CreatedAt = time.Now()
	m.businesses[b.ID] = *b
	return nil
}

func (m *memStore) GetBusiness(_ context.Context, id string) (model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.businesses[id]
	if !ok {
		return model.Business{}, storage.ErrNotFound
	}
	return b, nil
}

func (m *memStore) GetBusinessBySlug(_ context.Context, slug string) (model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.businesses {
		if b.Slug == slug {
			return b, nil
		}
	}
	return model.Business{}, storage.ErrNotFound
}

func (m *memStore) CreateStaff(_ context.Context, s *model.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[s.ID] = *s
	return nil
}

func (m *memStore) GetStaff(_ context.Context, id string) (model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return model.Staff{}, storage.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListActiveStaff(_ context.Context, businessID string) ([]model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Staff
	for _, s := range m.staff {
		if s.BusinessID == businessID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateService(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = *s
	return nil
}

func (m *memStore) GetService(_ context.Context, id string) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListServices(_ context.Context, businessID string) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Service
	for _, s := range m.services {
		if s.BusinessID == businessID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) UpsertAvailability(_ context.Context, av *model.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := av.BusinessID + "/" + av.StaffID
	if prev, ok := m.availability[key]; ok {
		av.ID = prev.ID
	}
	av.UpdatedAt = time.Now()
	m.availability[key] = *av
	return nil
}

func (m *memStore) GetAvailability(_ context.Context, businessID, staffID string) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	av, ok := m.availability[businessID+"/"+staffID]
	if !ok {
		return model.Availability{}, storage.ErrNotFound
	}
	return av, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = time.Now()
	m.appointments[a.ID] = *a
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.StripeCheckoutSessionID = sessionID
	m.appointments[id] = a
	return nil
}

func (m *memStore) FindAppointmentByCheckoutSession(_ context.Context, sessionID string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if sessionID != "" && a.StripeCheckoutSessionID == sessionID {
			return a, nil
		}
	}
	return model.Appointment{}, storage.ErrNotFound
}

func (m *memStore) TransitionAppointment(_ context.Context, id string, to model.AppointmentStatus, pi string) (model.Appointment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, false, storage.ErrNotFound
	}
	if a.Status == to || !model.CanTransition(a.Status, to) {
		return a, false, nil
	}
	a.Status = to
	if pi != "" {
		a.StripePaymentIntentID = pi
	}
	m.appointments[id] = a
	return a, true, nil
}

func (m *memStore) ListBlockingAppointments(_ context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		blocking := a.Status == model.StatusPending || a.Status == model.StatusConfirmed
		if blocking && a.BusinessID == businessID && a.StaffID == staffID && !a.Start.Before(from) && a.Start.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAppointments(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error) {
	var out []model.Appointment
	err := m.EachAppointment(ctx, f, func(a model.Appointment) error {
		out = append(out, a)
		return nil
	})
	return out, err
}

func (m *memStore) EachAppointment(_ context.Context, f storage.AppointmentFilter, fn func(model.Appointment) error) error {
	m.mu.Lock()
	var matched []model.Appointment
	for _, a := range m.appointments {
		if a.BusinessID != f.BusinessID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		matched = append(matched, a)
	}
	m.mu.Unlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].Start.Before(matched[j].Start) })
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	for _, a := range matched {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ListConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.Status == model.StatusConfirmed && !a.Start.Before(from) && !a.Start.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateReminder(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, *r)
	return nil
}

func (m *memStore) ListQueuedReminders(_ context.Context, limit int) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reminder
	for _, r := range m.reminders {
		if r.Status == model.ReminderQueued && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) FinishReminder(_ context.Context, r model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reminders {
		if m.reminders[i].ID == r.ID {
			m.reminders[i] = r
			return nil
		}
	}
	return storage.ErrNotFound
}

func containsStatus(list []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
