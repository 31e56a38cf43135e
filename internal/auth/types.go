package auth

import (
	"strings"
	"time"

	"github.com/Calmero107/volunteer/internal/apperr"
)

// Role is the closed set of actor roles. Authorization decisions branch on
// this enum, never on raw strings from the wire.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes and validates a wire-format role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleVolunteer:
		return RoleVolunteer, nil
	case RoleOrganizer:
		return RoleOrganizer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", apperr.Newf(apperr.ErrValidation, "unknown role %q", s)
	}
}

// Actor is the authenticated identity threaded into every lifecycle call.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// User is an account record. Lifecycle managers read users but never mutate
// them; admin operations on this service do.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	Locked       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is a persisted refresh credential record. The opaque token
// string itself is never stored, only its SHA-256 hash.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// TokenPair is the result of credential issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
