package httpapi

import (
	"context"

	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/event"
	"github.com/Calmero107/volunteer/internal/registration"
)

// The service interfaces mirror what the handlers actually call, so tests
// can swap implementations without touching the route table.

type AuthService interface {
	Signup(ctx context.Context, fullName, email, password string, role auth.Role) (*auth.User, auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (*auth.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	VerifyAccess(token string) (auth.Actor, error)

	GetUser(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
	LockUser(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
	UnlockUser(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
	ActivateUser(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
	DeactivateUser(ctx context.Context, actor auth.Actor, userID string) (*auth.User, error)
}

type EventService interface {
	Propose(ctx context.Context, actor auth.Actor, draft event.Draft) (*event.Event, error)
	Approve(ctx context.Context, actor auth.Actor, eventID string) (*event.Event, error)
	Reject(ctx context.Context, actor auth.Actor, eventID string) (*event.Event, error)
	Update(ctx context.Context, actor auth.Actor, eventID string, patch event.Patch) (*event.Event, error)
	Delete(ctx context.Context, actor auth.Actor, eventID string) error
	Get(ctx context.Context, eventID string) (*event.Event, error)
	List(ctx context.Context, f event.Filter) ([]*event.Event, int, error)
}

type RegistrationService interface {
	Register(ctx context.Context, actor auth.Actor, eventID, notes string) (*registration.Registration, error)
	Unregister(ctx context.Context, actor auth.Actor, registrationID string) error
	Approve(ctx context.Context, actor auth.Actor, registrationID string) (*registration.Registration, error)
	Reject(ctx context.Context, actor auth.Actor, registrationID string) (*registration.Registration, error)
	MarkCompleted(ctx context.Context, actor auth.Actor, registrationID string) (*registration.Registration, error)
	Get(ctx context.Context, actor auth.Actor, registrationID string) (*registration.Registration, error)
	ListByEvent(ctx context.Context, actor auth.Actor, eventID string, f registration.Filter) ([]*registration.Registration, int, error)
	ListMine(ctx context.Context, actor auth.Actor, f registration.Filter) ([]*registration.Registration, int, error)
	History(ctx context.Context, actor auth.Actor, f registration.Filter) ([]*registration.Registration, int, error)
}

var (
	_ AuthService         = (*auth.Service)(nil)
	_ EventService        = (*event.Service)(nil)
	_ RegistrationService = (*registration.Service)(nil)
)
