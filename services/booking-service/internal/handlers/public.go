package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/feed"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type slotsRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
	StaffID   string `json:"staff_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (a *API) slots(w http.ResponseWriter, r *http.Request) {
	var req slotsRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.engine.Slots(r.Context(), booking.SlotsRequest{
		Slug:      chi.URLParam(r, "slug"),
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		Date:      req.Date,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type bookRequest struct {
	ServiceID     string `json:"service_id" validate:"required"`
	StaffID       string `json:"staff_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"time" validate:"required,datetime=15:04"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=32"`
	Notes         string `json:"notes" validate:"max=2000"`
}

func (a *API) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.engine.Book(r.Context(), booking.BookRequest{
		Slug:          chi.URLParam(r, "slug"),
		ServiceID:     req.ServiceID,
		StaffID:       req.StaffID,
		Date:          req.Date,
		Time:          req.Time,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (a *API) icsFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := a.store.GetBusinessBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "business not found")
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" || bcrypt.CompareHashAndPassword([]byte(b.ICSTokenHash), []byte(token)) != nil {
		httpx.WriteError(w, http.StatusForbidden, "invalid token")
		return
	}

	w.Header().Set("Content-Type", feed.ICSContentType)
	cal := feed.NewICSWriter(w, a.now())
	err = a.store.EachAppointment(ctx, storage.AppointmentFilter{
		BusinessID: b.ID,
		Statuses:   model.CalendarStatuses,
	}, cal.Event)
	if err == nil {
		err = cal.Close()
	}
	if err != nil {
		// Headers are already out; the truncated body is all we can do.
		a.logger.Error("ics feed failed", "business_id", b.ID, "err", err)
	}
}
