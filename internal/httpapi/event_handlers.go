package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/event"
)

type createEventRequest struct {
	Title                string     `json:"title" validate:"required"`
	Description          string     `json:"description"`
	Location             string     `json:"location" validate:"required"`
	StartsAt             time.Time  `json:"starts_at" validate:"required"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,gt=0"`
}

type updateEventRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	Location             *string    `json:"location"`
	StartsAt             *time.Time `json:"starts_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,gt=0"`
}

type eventResponse struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Location             string     `json:"location"`
	StartsAt             time.Time  `json:"starts_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
	Status               string     `json:"status"`
	CreatorID            string     `json:"creator_id"`
	ApprovedBy           string     `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

type eventListResponse struct {
	Events []eventResponse `json:"events"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
}

func toEventResponse(ev *event.Event) eventResponse {
	return eventResponse{
		ID:                   ev.ID,
		Title:                ev.Title,
		Description:          ev.Description,
		Location:             ev.Location,
		StartsAt:             ev.StartsAt,
		RegistrationDeadline: ev.RegistrationDeadline,
		MaxParticipants:      ev.MaxParticipants,
		Status:               string(ev.Status),
		CreatorID:            ev.CreatorID,
		ApprovedBy:           ev.ApprovedBy,
		ApprovedAt:           ev.ApprovedAt,
		CreatedAt:            ev.CreatedAt,
	}
}

func (a *API) handleProposeEvent(w http.ResponseWriter, r *http.Request) {
	actor, err := a.actor(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	ev, err := a.events.Propose(r.Context(), actor, event.Draft{
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		StartsAt:             req.StartsAt,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ev, err := a.events.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f := event.Filter{
		Status:    event.Status(r.URL.Query().Get("status")),
		CreatorID: r.URL.Query().Get("creator_id"),
		Offset:    queryInt(r, "offset"),
		Limit:     queryInt(r, "limit"),
	}
	evs, total, err := a.events.List(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := eventListResponse{
		Events: make([]eventResponse, 0, len(evs)),
		Total:  total,
		Offset: f.Offset,
		Limit:  len(evs),
	}
	for _, ev := range evs {
		resp.Events = append(resp.Events, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
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
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	ev, err := a.events.Update(r.Context(), actor, id, event.Patch{
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		StartsAt:             req.StartsAt,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
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
	if err := a.events.Delete(r.Context(), actor, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleApproveEvent(w http.ResponseWriter, r *http.Request) {
	a.eventTransition(w, r, a.events.Approve)
}

func (a *API) handleRejectEvent(w http.ResponseWriter, r *http.Request) {
	a.eventTransition(w, r, a.events.Reject)
}

func (a *API) eventTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor auth.Actor, eventID string) (*event.Event, error),
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
	ev, err := fn(r.Context(), actor, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
