package event

import "time"

// Status is the event approval lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Event is a volunteer event. ApprovedAt/ApprovedBy are set if and only if
// Status is approved.
type Event struct {
	ID                   string
	Title                string
	Description          string
	Location             string
	StartsAt             time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	Status               Status
	CreatorID            string
	ApprovedBy           string
	ApprovedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Draft carries the caller-supplied fields for a new event.
type Draft struct {
	Title                string
	Description          string
	Location             string
	StartsAt             time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
}

// Patch carries optional updates; nil fields are left unchanged.
type Patch struct {
	Title                *string
	Description          *string
	Location             *string
	StartsAt             *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
}

// CanAcceptRegistrations is the pure registration-window predicate: the
// event is approved, the deadline (if any) has not passed, and the freshly
// read approved count leaves a free slot. The count is a parameter rather
// than a cached field so callers cannot mask the approval race with stale
// data.
func CanAcceptRegistrations(ev *Event, approvedCount int, now time.Time) bool {
	if ev.Status != StatusApproved {
		return false
	}
	if ev.RegistrationDeadline != nil && !now.Before(*ev.RegistrationDeadline) {
		return false
	}
	if ev.MaxParticipants != nil && approvedCount >= *ev.MaxParticipants {
		return false
	}
	return true
}
