// Package httpapi is the REST surface over the lifecycle services. It owns
// request decoding, validation, the error-to-status mapping and the
// middleware chain; all domain rules live in the services.
package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/obs"
)

// ReadyProbe reports backend readiness for /readyz. A nil check means the
// service runs on in-memory stores and is always ready.
type ReadyProbe struct {
	Check func(ctx context.Context) error
}

func (rp ReadyProbe) ok(ctx context.Context) error {
	if rp.Check == nil {
		return nil
	}
	return rp.Check(ctx)
}

// API wires the HTTP routes to the lifecycle services.
type API struct {
	mux     *http.ServeMux
	auth    AuthService
	events  EventService
	regs    RegistrationService
	log     *zap.Logger
	ready   ReadyProbe
	version string

	ratePerSecond int
	rateBurst     int
}

// Option configures API.
type Option func(*API)

// WithRateLimit overrides the per-IP rate limit.
func WithRateLimit(perSecond, burst int) Option {
	return func(a *API) {
		if perSecond > 0 && burst > 0 {
			a.ratePerSecond = perSecond
			a.rateBurst = burst
		}
	}
}

// New builds the route table.
func New(authSvc AuthService, eventSvc EventService, regSvc RegistrationService, log *zap.Logger, rp ReadyProbe, version string, opts ...Option) *API {
	if log == nil {
		log = zap.NewNop()
	}
	a := &API{
		mux:     http.NewServeMux(),
		auth:    authSvc,
		events:  eventSvc,
		regs:    regSvc,
		log:     log,
		ready:   rp,
		version: version,

		ratePerSecond: 20,
		rateBurst:     40,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)

	a.mux.HandleFunc("GET /v1/events", a.handleListEvents)
	a.mux.HandleFunc("POST /v1/events", a.handleProposeEvent)
	a.mux.HandleFunc("GET /v1/events/{id}", a.handleGetEvent)
	a.mux.HandleFunc("PATCH /v1/events/{id}", a.handleUpdateEvent)
	a.mux.HandleFunc("DELETE /v1/events/{id}", a.handleDeleteEvent)
	a.mux.HandleFunc("POST /v1/events/{id}/approve", a.handleApproveEvent)
	a.mux.HandleFunc("POST /v1/events/{id}/reject", a.handleRejectEvent)
	a.mux.HandleFunc("POST /v1/events/{id}/registrations", a.handleRegister)
	a.mux.HandleFunc("GET /v1/events/{id}/registrations", a.handleListEventRegistrations)

	a.mux.HandleFunc("GET /v1/registrations/{id}", a.handleGetRegistration)
	a.mux.HandleFunc("DELETE /v1/registrations/{id}", a.handleUnregister)
	a.mux.HandleFunc("POST /v1/registrations/{id}/approve", a.handleApproveRegistration)
	a.mux.HandleFunc("POST /v1/registrations/{id}/reject", a.handleRejectRegistration)
	a.mux.HandleFunc("POST /v1/registrations/{id}/complete", a.handleCompleteRegistration)
	a.mux.HandleFunc("GET /v1/me/registrations", a.handleMyRegistrations)
	a.mux.HandleFunc("GET /v1/me/history", a.handleMyHistory)

	a.mux.HandleFunc("GET /v1/users/{id}", a.handleGetUser)
	a.mux.HandleFunc("POST /v1/users/{id}/lock", a.handleUserFlag(actionLock))
	a.mux.HandleFunc("POST /v1/users/{id}/unlock", a.handleUserFlag(actionUnlock))
	a.mux.HandleFunc("POST /v1/users/{id}/activate", a.handleUserFlag(actionActivate))
	a.mux.HandleFunc("POST /v1/users/{id}/deactivate", a.handleUserFlag(actionDeactivate))

	return a
}

// Handler returns the full middleware chain around the route table.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSecond)
	h = SecurityHeaders(h)
	h = Logging(a.log, h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "volunteer-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.ok(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
