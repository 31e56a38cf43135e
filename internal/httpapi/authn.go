package httpapi

import (
	"net/http"
	"strings"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
}
var publicPrefixes = []string{
	"/v1/auth/",
}

// withAuth authenticates the bearer token and threads the actor through the
// request context. Auth endpoints and probes stay public.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		actor, err := a.auth.VerifyAccess(token)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithActor(r.Context(), actor)))
	})
}

// actor pulls the authenticated actor out of the context; withAuth
// guarantees it is present on protected routes.
func (a *API) actor(r *http.Request) (auth.Actor, error) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, apperr.New(apperr.ErrUnauthorized, "authentication required")
	}
	return actor, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperr.New(apperr.ErrUnauthorized, "missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", apperr.New(apperr.ErrUnauthorized, "invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", apperr.New(apperr.ErrUnauthorized, "missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
