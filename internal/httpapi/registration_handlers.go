package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/registration"
)

type registerRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type registrationResponse struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	DecidedBy   string     `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type registrationListResponse struct {
	Registrations []registrationResponse `json:"registrations"`
	Total         int                    `json:"total"`
}

func toRegistrationResponse(reg *registration.Registration) registrationResponse {
	return registrationResponse{
		ID:          reg.ID,
		EventID:     reg.EventID,
		UserID:      reg.UserID,
		Notes:       reg.Notes,
		Status:      string(reg.Status),
		DecidedBy:   reg.DecidedBy,
		DecidedAt:   reg.DecidedAt,
		Completed:   reg.Completed,
		CompletedAt: reg.CompletedAt,
		CreatedAt:   reg.CreatedAt,
	}
}

func toRegistrationListResponse(regs []*registration.Registration, total int) registrationListResponse {
	resp := registrationListResponse{
		Registrations: make([]registrationResponse, 0, len(regs)),
		Total:         total,
	}
	for _, reg := range regs {
		resp.Registrations = append(resp.Registrations, toRegistrationResponse(reg))
	}
	return resp
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	eventID, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	// The notes body is optional.
	var req registerRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	reg, err := a.regs.Register(r.Context(), actor, eventID, req.Notes)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRegistrationResponse(reg))
}

func (a *API) handleUnregister(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.regs.Unregister(r.Context(), actor, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	reg, err := a.regs.Get(r.Context(), actor, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationResponse(reg))
}

func (a *API) handleApproveRegistration(w http.ResponseWriter, r *http.Request) {
	a.registrationTransition(w, r, a.regs.Approve)
}

func (a *API) handleRejectRegistration(w http.ResponseWriter, r *http.Request) {
	a.registrationTransition(w, r, a.regs.Reject)
}

func (a *API) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	a.registrationTransition(w, r, a.regs.MarkCompleted)
}

func (a *API) registrationTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor auth.Actor, registrationID string) (*registration.Registration, error),
) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	reg, err := fn(r.Context(), actor, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationResponse(reg))
}

func (a *API) handleListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	eventID, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	f := registration.Filter{
		Status: registration.Status(r.URL.Query().Get("status")),
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}
	regs, total, err := a.regs.ListByEvent(r.Context(), actor, eventID, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationListResponse(regs, total))
}

func (a *API) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	f := registration.Filter{
		Status: registration.Status(r.URL.Query().Get("status")),
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}
	regs, total, err := a.regs.ListMine(r.Context(), actor, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationListResponse(regs, total))
}

func (a *API) handleMyHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	f := registration.Filter{
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}
	regs, total, err := a.regs.History(r.Context(), actor, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationListResponse(regs, total))
}
