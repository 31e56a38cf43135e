package registration

import "context"

// Filter narrows list results. Zero values mean "any".
type Filter struct {
	Status Status
	Offset int
	Limit  int
}

// Store persists registrations.
type Store interface {
	Create(ctx context.Context, reg *Registration) error
	Find(ctx context.Context, id string) (*Registration, error)
	// FindByUserAndEvent returns the user's non-cancelled registration for
	// the event, or ErrNotFound. Rejected rows count: they keep blocking
	// re-registration until withdrawn.
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*Registration, error)
	ListByEvent(ctx context.Context, eventID string, f Filter) ([]*Registration, int, error)
	ListByUser(ctx context.Context, userID string, f Filter) ([]*Registration, int, error)
	// ListApprovedByUser returns every approved registration of the user,
	// unpaged. The history projection orders and pages it by event date.
	ListApprovedByUser(ctx context.Context, userID string) ([]*Registration, error)
	// CountApprovedByEvent is the fresh count the capacity check reads while
	// holding the per-event lock.
	CountApprovedByEvent(ctx context.Context, eventID string) (int, error)
	Update(ctx context.Context, reg *Registration) error
	Delete(ctx context.Context, id string) error
	// DeleteByEvent removes every registration of an event and returns how
	// many were removed. Used by the event delete cascade.
	DeleteByEvent(ctx context.Context, eventID string) (int, error)
}
