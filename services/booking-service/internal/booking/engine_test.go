package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

const (
	bizID   = "11111111-1111-4111-8111-111111111111"
	staffID = "22222222-2222-4222-8222-222222222222"
	svcID   = "33333333-3333-4333-8333-333333333333"
)

type fakeStore struct {
	mu           sync.Mutex
	business     model.Business
	services     map[string]model.Service
	staff        map[string]model.Staff
	availability *model.Availability
	appointments map[string]*model.Appointment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		business: model.Business{ID: bizID, Slug: "acme", Currency: "eur", DepositPercentDefault: 25},
		services: map[string]model.Service{
			svcID: {ID: svcID, BusinessID: bizID, Name: "Cut", PriceCents: 5000, DurationMin: 30},
		},
		staff: map[string]model.Staff{
			staffID: {ID: staffID, BusinessID: bizID, Name: "Sam", Active: true},
		},
		availability: &model.Availability{
			BusinessID: bizID,
			StaffID:    staffID,
			// 2024-01-01 is a Monday.
			Weekly:           map[int][]model.AvailabilityBlock{0: {{StartMin: 540, EndMin: 600}}},
			SlotIncrementMin: 15,
		},
		appointments: map[string]*model.Appointment{},
	}
}

func (f *fakeStore) GetBusinessBySlug(_ context.Context, slug string) (model.Business, error) {
	if slug != f.business.Slug {
		return model.Business{}, storage.ErrNotFound
	}
	return f.business, nil
}

func (f *fakeStore) GetService(_ context.Context, id string) (model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) GetStaff(_ context.Context, id string) (model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.Staff{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) GetAvailability(_ context.Context, businessID, staffID string) (model.Availability, error) {
	if f.availability == nil || f.availability.StaffID != staffID || f.availability.BusinessID != businessID {
		return model.Availability{}, storage.ErrNotFound
	}
	return *f.availability, nil
}

func (f *fakeStore) ListBlockingAppointments(_ context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.appointments {
		if a.BusinessID != businessID || a.StaffID != staffID {
			continue
		}
		if a.Status != model.StatusPending && a.Status != model.StatusConfirmed {
			continue
		}
		if a.Start.Before(from) || !a.Start.Before(to) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeStore) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.StripeCheckoutSessionID = sessionID
	return nil
}

func (f *fakeStore) FindAppointmentByCheckoutSession(_ context.Context, sessionID string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if sessionID != "" && a.StripeCheckoutSessionID == sessionID {
			return *a, nil
		}
	}
	return model.Appointment{}, storage.ErrNotFound
}

func (f *fakeStore) TransitionAppointment(_ context.Context, id string, to model.AppointmentStatus, pi string) (model.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return model.Appointment{}, false, storage.ErrNotFound
	}
	if !model.CanTransition(a.Status, to) || a.Status == to {
		return *a, false, nil
	}
	a.Status = to
	if pi != "" {
		a.StripePaymentIntentID = pi
	}
	return *a, true, nil
}

func (f *fakeStore) only(t *testing.T) model.Appointment {
	t.Helper()
	if len(f.appointments) != 1 {
		t.Fatalf("expected one appointment, got %d", len(f.appointments))
	}
	for _, a := range f.appointments {
		return *a
	}
	return model.Appointment{}
}

type fakeProvider struct {
	err error
	req payments.CheckoutRequest
}

func (p *fakeProvider) Configured() bool { return true }

func (p *fakeProvider) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (payments.Checkout, error) {
	p.req = req
	if p.err != nil {
		return payments.Checkout{}, p.err
	}
	return payments.Checkout{SessionID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bookReq() BookRequest {
	return BookRequest{
		Slug:         "acme",
		ServiceID:    svcID,
		StaffID:      staffID,
		Date:         "2024-01-01",
		Time:         "09:00",
		CustomerName: "Ada",
	}
}

func TestSlotsFromWeeklyAvailability(t *testing.T) {
	e := NewEngine(newFakeStore(), nil, testLogger())
	res, err := e.Slots(context.Background(), SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	want := []string{"09:00", "09:15", "09:30"}
	if len(res.Times) != len(want) {
		t.Fatalf("expected %v, got %v", want, res.Times)
	}
	for i := range want {
		if res.Times[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, res.Times)
		}
	}
}

func TestSlotsEmptyWithoutAvailability(t *testing.T) {
	st := newFakeStore()
	st.availability = nil
	e := NewEngine(st, nil, testLogger())
	res, err := e.Slots(context.Background(), SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(res.Times) != 0 {
		t.Fatalf("expected no slots, got %v", res.Times)
	}

	// Tuesday has no blocks either.
	res, err = NewEngine(newFakeStore(), nil, testLogger()).Slots(context.Background(),
		SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "2024-01-02"})
	if err != nil || len(res.Times) != 0 {
		t.Fatalf("expected no slots on tuesday, got %v err=%v", res.Times, err)
	}
}

func TestSlotsErrors(t *testing.T) {
	e := NewEngine(newFakeStore(), nil, testLogger())
	ctx := context.Background()

	if _, err := e.Slots(ctx, SlotsRequest{Slug: "nope", ServiceID: svcID, StaffID: staffID, Date: "2024-01-01"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for business, got %v", err)
	}
	other := "44444444-4444-4444-8444-444444444444"
	if _, err := e.Slots(ctx, SlotsRequest{Slug: "acme", ServiceID: other, StaffID: staffID, Date: "2024-01-01"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for service, got %v", err)
	}
	var ve *ValidationError
	if _, err := e.Slots(ctx, SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "01/01/2024"}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := e.Slots(ctx, SlotsRequest{Slug: "acme", ServiceID: "abc", StaffID: staffID, Date: "2024-01-01"}); !errors.As(err, &ve) || ve.Fields["service_id"] == "" {
		t.Fatalf("expected service_id validation error, got %v", err)
	}
}

func TestBookCreatesPendingAppointmentWithDeposit(t *testing.T) {
	st := newFakeStore()
	prov := &fakeProvider{}
	e := NewEngine(st, prov, testLogger())

	res, err := e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.CheckoutURL == nil || *res.CheckoutURL != "https://checkout.example/cs_test_1" {
		t.Fatalf("unexpected checkout url: %v", res.CheckoutURL)
	}
	a := st.only(t)
	if a.ID != res.AppointmentID || a.Status != model.StatusPending {
		t.Fatalf("unexpected appointment: %+v", a)
	}
	wantStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if !a.Start.Equal(wantStart) || !a.End.Equal(wantStart.Add(30*time.Minute)) {
		t.Fatalf("unexpected times: %s - %s", a.Start, a.End)
	}
	if a.AmountCentsTotal != 5000 || a.AmountCentsDueNow != 1250 || a.Currency != "eur" {
		t.Fatalf("unexpected amounts: %+v", a)
	}
	if a.StripeCheckoutSessionID != "cs_test_1" {
		t.Fatalf("expected session id stored, got %q", a.StripeCheckoutSessionID)
	}
	if prov.req.AmountCents != 1250 || prov.req.AppointmentID != a.ID || prov.req.BusinessID != bizID {
		t.Fatalf("unexpected checkout request: %+v", prov.req)
	}
}

func TestBookSecondRequestForSameSlotConflicts(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, nil, testLogger())
	if _, err := e.Book(context.Background(), bookReq()); err != nil {
		t.Fatalf("first book: %v", err)
	}
	if _, err := e.Book(context.Background(), bookReq()); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	// 09:30 still fits after the 09:00-09:30 booking.
	req := bookReq()
	req.Time = "09:30"
	if _, err := e.Book(context.Background(), req); err != nil {
		t.Fatalf("book 09:30: %v", err)
	}
}

func TestBookOffGridTimeIsUnavailable(t *testing.T) {
	e := NewEngine(newFakeStore(), nil, testLogger())
	req := bookReq()
	req.Time = "09:05"
	if _, err := e.Book(context.Background(), req); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookWithoutPaymentsStillSucceeds(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, payments.Disabled{}, testLogger())
	res, err := e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.CheckoutURL != nil {
		t.Fatalf("expected nil checkout url, got %q", *res.CheckoutURL)
	}

	st2 := newFakeStore()
	e = NewEngine(st2, &fakeProvider{err: errors.New("stripe down")}, testLogger())
	res, err = e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book with failing provider: %v", err)
	}
	if res.CheckoutURL != nil || st2.only(t).StripeCheckoutSessionID != "" {
		t.Fatalf("expected no payment reference")
	}
}

func TestBookRejectsForeignReferences(t *testing.T) {
	st := newFakeStore()
	otherStaff := "55555555-5555-4555-8555-555555555555"
	st.staff[otherStaff] = model.Staff{ID: otherStaff, BusinessID: "someone-else"}
	e := NewEngine(st, nil, testLogger())

	req := bookReq()
	req.StaffID = otherStaff
	if _, err := e.Book(context.Background(), req); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	req = bookReq()
	req.ServiceID = "66666666-6666-4666-8666-666666666666"
	if _, err := e.Book(context.Background(), req); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	req = bookReq()
	req.Slug = "missing"
	if _, err := e.Book(context.Background(), req); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmPaymentResolution(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, &fakeProvider{}, testLogger())
	res, err := e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Session id lookup when metadata is missing.
	id, changed, err := e.ConfirmPayment(context.Background(), payments.WebhookEvent{
		Type:              payments.EventCheckoutSessionComplete,
		CheckoutSessionID: "cs_test_1",
		PaymentIntentID:   "pi_123",
	})
	if err != nil || !changed || id != res.AppointmentID {
		t.Fatalf("confirm: id=%q changed=%v err=%v", id, changed, err)
	}
	a := st.only(t)
	if a.Status != model.StatusConfirmed || a.StripePaymentIntentID != "pi_123" {
		t.Fatalf("unexpected appointment: %+v", a)
	}

	// A repeat delivery is a no-op.
	_, changed, err = e.ConfirmPayment(context.Background(), payments.WebhookEvent{
		Type:          payments.EventPaymentIntentSucceeded,
		AppointmentID: res.AppointmentID,
	})
	if err != nil || changed {
		t.Fatalf("expected no change, changed=%v err=%v", changed, err)
	}
}

func TestConfirmPaymentLeavesCanceledAlone(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, nil, testLogger())
	res, err := e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := e.SetStatus(context.Background(), res.AppointmentID, model.StatusCanceled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, changed, err := e.ConfirmPayment(context.Background(), payments.WebhookEvent{
		Type:          payments.EventPaymentIntentSucceeded,
		AppointmentID: res.AppointmentID,
	})
	if err != nil || changed {
		t.Fatalf("expected untouched, changed=%v err=%v", changed, err)
	}
	if st.only(t).Status != model.StatusCanceled {
		t.Fatalf("expected canceled to stay canceled")
	}

	id, changed, err := e.ConfirmPayment(context.Background(), payments.WebhookEvent{
		Type:          payments.EventPaymentIntentSucceeded,
		AppointmentID: "not-a-uuid",
	})
	if err != nil || changed || id != "" {
		t.Fatalf("expected unresolved event, id=%q changed=%v err=%v", id, changed, err)
	}
}

func TestSetStatusRejectsInvalidTransition(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, nil, testLogger())
	res, err := e.Book(context.Background(), bookReq())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := e.SetStatus(context.Background(), res.AppointmentID, model.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	for _, to := range []model.AppointmentStatus{model.StatusConfirmed, model.StatusPending} {
		if _, err := e.SetStatus(context.Background(), res.AppointmentID, to); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("SetStatus(%s): expected ErrInvalidTransition, got %v", to, err)
		}
	}
	if got := st.appointments[res.AppointmentID].Status; got != model.StatusPending {
		t.Fatalf("dashboard must not confirm an unpaid appointment, status %s", got)
	}
	var ve *ValidationError
	if _, err := e.SetStatus(context.Background(), res.AppointmentID, "archived"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := e.SetStatus(context.Background(), "77777777-7777-4777-8777-777777777777", model.StatusCanceled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDepositCents(t *testing.T) {
	cases := []struct {
		price int64
		pct   int
		want  int64
	}{
		{5000, 25, 1250},
		{10000, 20, 2000},
		{999, 33, 329},
		{5000, 0, 5000},
		{1, 10, 1},
		{5000, 100, 5000},
	}
	for _, tc := range cases {
		if got := DepositCents(tc.price, tc.pct); got != tc.want {
			t.Fatalf("DepositCents(%d, %d) = %d, want %d", tc.price, tc.pct, got, tc.want)
		}
	}
}

func TestBufferedServiceBlocksNeighbouringSlots(t *testing.T) {
	st := newFakeStore()
	st.services[svcID] = model.Service{ID: svcID, BusinessID: bizID, Name: "Colour", PriceCents: 10000, DurationMin: 30, BufferBeforeMin: 5, BufferAfterMin: 10}
	st.business.DepositPercentDefault = 20
	st.availability.Weekly[0] = []model.AvailabilityBlock{{StartMin: 540, EndMin: 660}}
	e := NewEngine(st, nil, testLogger())
	ctx := context.Background()
	req := SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "2024-01-01"}

	res, err := e.Slots(ctx, req)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if want := []string{"09:00", "09:15", "09:30", "09:45", "10:00", "10:15"}; !slices.Equal(res.Times, want) {
		t.Fatalf("expected %v, got %v", want, res.Times)
	}

	if _, err := e.Book(ctx, bookReq()); err != nil {
		t.Fatalf("book: %v", err)
	}
	a := st.only(t)
	if got := a.End.Sub(a.Start); got != 45*time.Minute {
		t.Fatalf("expected duration plus both buffers (45m), got %v", got)
	}
	if a.AmountCentsTotal != 10000 || a.AmountCentsDueNow != 2000 {
		t.Fatalf("unexpected amounts total=%d due=%d", a.AmountCentsTotal, a.AmountCentsDueNow)
	}

	res, err = e.Slots(ctx, req)
	if err != nil {
		t.Fatalf("slots after booking: %v", err)
	}
	if want := []string{"09:45", "10:00", "10:15"}; !slices.Equal(res.Times, want) {
		t.Fatalf("expected buffered booking to block overlapping starts, got %v", res.Times)
	}
}

func TestSlotsAreIdempotent(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(st, nil, testLogger())
	ctx := context.Background()
	if _, err := e.Book(ctx, bookReq()); err != nil {
		t.Fatalf("book: %v", err)
	}
	req := SlotsRequest{Slug: "acme", ServiceID: svcID, StaffID: staffID, Date: "2024-01-01"}
	first, err := e.Slots(ctx, req)
	if err != nil {
		t.Fatalf("first slots: %v", err)
	}
	second, err := e.Slots(ctx, req)
	if err != nil {
		t.Fatalf("second slots: %v", err)
	}
	if first.Date != second.Date || !slices.Equal(first.Times, second.Times) {
		t.Fatalf("repeated query changed the answer: %v then %v", first, second)
	}
	if len(st.appointments) != 1 {
		t.Fatalf("slot queries must not write, have %d appointments", len(st.appointments))
	}
}
