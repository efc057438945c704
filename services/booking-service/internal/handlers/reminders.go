package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
)

func (a *API) runReminders(w http.ResponseWriter, r *http.Request) {
	if _, err := a.scheduler.Run(r.Context(), a.now()); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"queued": true})
}

type sendRemindersResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (a *API) sendReminders(w http.ResponseWriter, r *http.Request) {
	sent, failed, err := a.dispatcher.Dispatch(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sendRemindersResponse{Sent: sent, Failed: failed})
}
