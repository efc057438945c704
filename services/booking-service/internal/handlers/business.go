package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type createBusinessRequest struct {
	Name                  string `json:"name" validate:"required,max=200"`
	Slug                  string `json:"slug" validate:"required,max=64,slug"`
	Timezone              string `json:"timezone" validate:"omitempty,timezone"`
	Currency              string `json:"currency" validate:"omitempty,len=3,alpha"`
	DepositPercentDefault int    `json:"deposit_percent_default" validate:"gte=0,lte=100"`
	OwnerID               string `json:"owner_id" validate:"omitempty,max=200"`
}

type createBusinessResponse struct {
	model.Business
	// ICSToken is only ever returned here; the store keeps a hash.
	ICSToken string `json:"ics_token"`
}

func (a *API) createBusiness(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	taken, err := a.store.SlugExists(ctx, req.Slug)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if taken {
		a.writeError(w, r, booking.ErrSlugTaken)
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	b := model.Business{
		ID:                    uuid.NewString(),
		OwnerID:               req.OwnerID,
		Name:                  strings.TrimSpace(req.Name),
		Slug:                  req.Slug,
		Timezone:              orDefault(req.Timezone, model.DefaultTimezone),
		Currency:              strings.ToLower(orDefault(req.Currency, model.DefaultCurrency)),
		ICSTokenHash:          string(hash),
		DepositPercentDefault: req.DepositPercentDefault,
		RemindersEnabled:      true,
		RemindersEmailEnabled: true,
		RemindersSMSEnabled:   false,
		Branding:              model.DefaultBranding(),
	}
	if err := a.store.CreateBusiness(ctx, &b); err != nil {
		// Lost a race with another request for the same slug.
		if errors.Is(err, storage.ErrConflict) {
			err = booking.ErrSlugTaken
		}
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("business created", "business_id", b.ID, "slug", b.Slug)
	httpx.WriteJSON(w, http.StatusOK, createBusinessResponse{Business: b, ICSToken: token})
}

type storefrontResponse struct {
	Business model.Business  `json:"business"`
	Services []model.Service `json:"services"`
	Staff    []model.Staff   `json:"staff"`
}

func (a *API) storefront(w http.ResponseWriter, r *http.Request) {
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
	services, err := a.store.ListServices(ctx, b.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	staff, err := a.store.ListActiveStaff(ctx, b.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if services == nil {
		services = []model.Service{}
	}
	if staff == nil {
		staff = []model.Staff{}
	}
	httpx.WriteJSON(w, http.StatusOK, storefrontResponse{Business: b, Services: services, Staff: staff})
}

type createStaffRequest struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Active     *bool  `json:"active"`
}

func (a *API) createStaff(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.requireBusiness(r, req.BusinessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	s := model.Staff{
		ID:         uuid.NewString(),
		BusinessID: req.BusinessID,
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Active:     req.Active == nil || *req.Active,
	}
	if err := a.store.CreateStaff(r.Context(), &s); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

type createServiceRequest struct {
	BusinessID             string `json:"business_id" validate:"required,uuid"`
	Name                   string `json:"name" validate:"required,max=200"`
	PriceCents             *int64 `json:"price_cents" validate:"required,gte=0"`
	DurationMin            int    `json:"duration_min" validate:"gte=5,lte=480"`
	BufferBeforeMin        int    `json:"buffer_before_min" validate:"gte=0,lte=120"`
	BufferAfterMin         int    `json:"buffer_after_min" validate:"gte=0,lte=120"`
	DepositPercentOverride *int   `json:"deposit_percent_override" validate:"omitempty,gte=0,lte=100"`
}

func (a *API) createService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.requireBusiness(r, req.BusinessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	s := model.Service{
		ID:                     uuid.NewString(),
		BusinessID:             req.BusinessID,
		Name:                   strings.TrimSpace(req.Name),
		PriceCents:             *req.PriceCents,
		DurationMin:            req.DurationMin,
		BufferBeforeMin:        req.BufferBeforeMin,
		BufferAfterMin:         req.BufferAfterMin,
		DepositPercentOverride: req.DepositPercentOverride,
	}
	if err := a.store.CreateService(r.Context(), &s); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

type setAvailabilityRequest struct {
	BusinessID       string                               `json:"business_id" validate:"required,uuid"`
	StaffID          string                               `json:"staff_id" validate:"required,uuid"`
	Weekly           map[string][]model.AvailabilityBlock `json:"weekly"`
	SlotIncrementMin int                                  `json:"slot_increment_min" validate:"omitempty,gte=1,lte=240"`
}

func (a *API) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req setAvailabilityRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	weekly, err := availability.ParseWeekly(req.Weekly)
	if err != nil {
		a.writeError(w, r, booking.FieldError("weekly", err.Error()))
		return
	}
	if err := a.requireBusiness(r, req.BusinessID); err != nil {
		a.writeError(w, r, err)
		return
	}
	staff, err := a.store.GetStaff(r.Context(), req.StaffID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && staff.BusinessID != req.BusinessID) {
		a.writeError(w, r, badRequestError("staff not found"))
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	av := model.Availability{
		ID:               uuid.NewString(),
		BusinessID:       req.BusinessID,
		StaffID:          req.StaffID,
		Weekly:           weekly,
		SlotIncrementMin: req.SlotIncrementMin,
	}
	if av.SlotIncrementMin == 0 {
		av.SlotIncrementMin = model.DefaultSlotIncrementMin
	}
	if err := a.store.UpsertAvailability(r.Context(), &av); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, av)
}

// requireBusiness answers 400 "business not found" for unknown ids and 403
// when the caller's token belongs to another business.
func (a *API) requireBusiness(r *http.Request, businessID string) error {
	if err := authorize(r, businessID); err != nil {
		return err
	}
	_, err := a.store.GetBusiness(r.Context(), businessID)
	if errors.Is(err, storage.ErrNotFound) {
		return badRequestError("business not found")
	}
	return err
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
