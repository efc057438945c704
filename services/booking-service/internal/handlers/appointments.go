package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/feed"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

type listAppointmentsResponse struct {
	Items []model.Appointment `json:"items"`
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := q.Get("business_id")
	if err := booking.ValidateID("business_id", businessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := authorize(r, businessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	f := storage.AppointmentFilter{BusinessID: businessID, Limit: defaultListLimit}
	if raw := q.Get("status"); raw != "" {
		status := model.AppointmentStatus(strings.ToLower(raw))
		if !status.Valid() {
			a.writeError(w, r, booking.FieldError("status", "must be one of pending, confirmed, completed, canceled"))
			return
		}
		f.Statuses = []model.AppointmentStatus{status}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			a.writeError(w, r, booking.FieldError("limit", "must be between 1 and "+strconv.Itoa(maxListLimit)))
			return
		}
		f.Limit = n
	}

	items, err := a.store.ListAppointments(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Appointment{}
	}
	httpx.WriteJSON(w, http.StatusOK, listAppointmentsResponse{Items: items})
}

func (a *API) getAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := a.loadAppointment(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed canceled"`
}

func (a *API) setAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.loadAppointment(r); err != nil {
		a.writeError(w, r, err)
		return
	}
	appt, err := a.engine.SetStatus(r.Context(), chi.URLParam(r, "id"), model.AppointmentStatus(req.Status))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("appointment status changed", "appointment_id", appt.ID, "status", appt.Status)
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// loadAppointment fetches the {id} appointment and checks the caller may see it.
func (a *API) loadAppointment(r *http.Request) (model.Appointment, error) {
	id := chi.URLParam(r, "id")
	if err := booking.ValidateID("id", id); err != nil {
		return model.Appointment{}, err
	}
	appt, err := a.store.GetAppointment(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, &booking.NotFoundError{What: "appointment"}
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if err := authorize(r, appt.BusinessID); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (a *API) exportAppointments(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if err := booking.ValidateID("business_id", businessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := authorize(r, businessID); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", feed.CSVContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)
	out, err := feed.NewCSVWriter(w)
	if err != nil {
		a.logger.Error("csv export failed", "business_id", businessID, "err", err)
		return
	}
	flusher, _ := w.(http.Flusher)
	rows := 0
	err = a.store.EachAppointment(r.Context(), storage.AppointmentFilter{BusinessID: businessID}, func(appt model.Appointment) error {
		if err := out.Row(appt); err != nil {
			return err
		}
		rows++
		if rows%100 == 0 && flusher != nil {
			if err := out.Flush(); err != nil {
				return err
			}
			flusher.Flush()
		}
		return nil
	})
	if err == nil {
		err = out.Flush()
	}
	if err != nil {
		a.logger.Error("csv export failed", "business_id", businessID, "rows", rows, "err", err)
	}
}
