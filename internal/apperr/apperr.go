// Package apperr defines the failure taxonomy shared by the lifecycle
// services. Every operation fails with exactly one of the kinds below;
// transports map kinds to status codes without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Check with errors.Is.
var (
	// ErrValidation — malformed or out-of-range input (past event date,
	// deadline after the event, weak password).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound — the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden — authenticated but not permitted to act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized — missing, invalid, expired or revoked credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict — the resource state already satisfies the requested
	// transition, e.g. approving an approved event.
	ErrConflict = errors.New("conflict")

	// ErrCapacityExceeded — approving the registration would exceed the
	// event's participant limit. A specialization of conflict kept distinct
	// because callers surface a different message.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrBadRequest — a business rule violation not covered by the kinds
	// above, e.g. unregistering from an event that already started.
	ErrBadRequest = errors.New("bad request")
)

// New wraps kind with a caller-facing message. The result satisfies
// errors.Is(err, kind).
func New(kind error, msg string) error {
	return fmt.Errorf("%s: %w", msg, kind)
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...any) error {
	return New(kind, fmt.Sprintf(format, args...))
}
