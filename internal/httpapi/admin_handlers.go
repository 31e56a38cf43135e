package httpapi

import (
	"context"
	"net/http"

	"github.com/Calmero107/volunteer/internal/auth"
)

type userAction string

const (
	actionLock       userAction = "lock"
	actionUnlock     userAction = "unlock"
	actionActivate   userAction = "activate"
	actionDeactivate userAction = "deactivate"
)

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
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
	user, err := a.auth.GetUser(r.Context(), actor, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (a *API) handleUserFlag(action userAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.actor(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		var fn func(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
		switch action {
		case actionLock:
			fn = a.auth.LockUser
		case actionUnlock:
			fn = a.auth.UnlockUser
		case actionActivate:
			fn = a.auth.ActivateUser
		case actionDeactivate:
			fn = a.auth.DeactivateUser
		default:
			http.NotFound(w, r)
			return
		}
		id, err := pathID(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		user, err := fn(r.Context(), actor, id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}
