package event

import "context"

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status    Status
	CreatorID string
	Offset    int
	Limit     int
}

// Store persists events.
type Store interface {
	Create(ctx context.Context, ev *Event) error
	Find(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, ev *Event) error
	Delete(ctx context.Context, id string) error
	// List returns a page ordered by start time plus the total match count.
	List(ctx context.Context, f Filter) ([]*Event, int, error)
}

// RegistrationCollaborator is the slice of the registration subsystem the
// event manager needs: fresh approved counts for the capacity predicate and
// the ordered cascade when an event is deleted.
type RegistrationCollaborator interface {
	CountApprovedByEvent(ctx context.Context, eventID string) (int, error)
	DeleteByEvent(ctx context.Context, eventID string) (int, error)
}
