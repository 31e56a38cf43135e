// Package registration owns the volunteer signup lifecycle: volunteers
// register for approved events, organizers and admins decide, and the
// per-event capacity limit is enforced at decision time.
package registration

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/event"
	"github.com/Calmero107/volunteer/internal/ids"
	"github.com/Calmero107/volunteer/internal/locks"
	"github.com/Calmero107/volunteer/internal/obs"
)

// EventSource is the slice of the event subsystem the registration manager
// reads: current event state for window checks and authorization.
type EventSource interface {
	Find(ctx context.Context, id string) (*event.Event, error)
}

// Service is the registration lifecycle manager.
//
// Approvals for one event are serialized through a keyed mutex so the
// capacity check and the status write form one atomic step. The stores
// stay lock-free for everything else.
type Service struct {
	store      Store
	events     EventSource
	log        *zap.Logger
	now        func() time.Time
	eventLocks *locks.Keyed
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the registration lifecycle manager.
func NewService(store Store, events EventSource, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:      store,
		events:     events,
		log:        log,
		now:        time.Now,
		eventLocks: locks.NewKeyed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending registration for the caller. The event must be
// approved, inside its registration window, and not already full. Every
// register-path failure is a bad request; the capacity error kind is
// reserved for approval, where the invariant is actually enforced.
func (s *Service) Register(ctx context.Context, actor auth.Actor, eventID, notes string) (*Registration, error) {
	ev, err := s.events.Find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if ev.Status != event.StatusApproved {
		return nil, apperr.New(apperr.ErrBadRequest, "event is not open for registration")
	}
	if ev.RegistrationDeadline != nil && !now.Before(*ev.RegistrationDeadline) {
		return nil, apperr.New(apperr.ErrBadRequest, "registration deadline has passed")
	}
	if !ev.StartsAt.After(now) {
		return nil, apperr.New(apperr.ErrBadRequest, "event has already started")
	}
	if ev.MaxParticipants != nil {
		count, err := s.store.CountApprovedByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if count >= *ev.MaxParticipants {
			return nil, apperr.New(apperr.ErrBadRequest, "event is full")
		}
	}
	// A rejected row blocks too: at most one non-cancelled registration
	// per user and event.
	if _, err := s.store.FindByUserAndEvent(ctx, actor.ID, eventID); err == nil {
		return nil, apperr.New(apperr.ErrBadRequest, "already registered for this event")
	}

	reg := &Registration{
		ID:        ids.New(),
		EventID:   eventID,
		UserID:    actor.ID,
		Notes:     notes,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", eventID),
		zap.String("user_id", actor.ID))
	return reg, nil
}

// Unregister deletes the registration. The owner may withdraw until the
// event starts; admins may remove any registration at any time.
func (s *Service) Unregister(ctx context.Context, actor auth.Actor, registrationID string) error {
	reg, err := s.store.Find(ctx, registrationID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.New(apperr.ErrBadRequest, "no registration to withdraw")
	}
	if err != nil {
		return err
	}
	if !auth.CanActOn(actor, reg.UserID) {
		return apperr.New(apperr.ErrForbidden, "not your registration")
	}
	if !actor.IsAdmin() {
		if reg.Completed {
			return apperr.New(apperr.ErrBadRequest, "attendance is already recorded")
		}
		ev, err := s.events.Find(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if !ev.StartsAt.After(s.now().UTC()) {
			return apperr.New(apperr.ErrBadRequest, "event has already started")
		}
	}
	if err := s.store.Delete(ctx, registrationID); err != nil {
		return err
	}
	s.log.Info("registration removed",
		zap.String("registration_id", registrationID),
		zap.String("actor_id", actor.ID))
	return nil
}

// Approve moves a pending registration to approved. The capacity check and
// the status write happen under the event's lock, so no interleaving of
// concurrent approvals can push the approved count past MaxParticipants.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, registrationID string) (*Registration, error) {
	reg, err := s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	ev, err := s.events.Find(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return nil, apperr.New(apperr.ErrForbidden, "not the event organizer")
	}

	s.eventLocks.Lock(ev.ID)
	defer s.eventLocks.Unlock(ev.ID)

	// Re-read under the lock: the row may have been decided while we waited.
	reg, err = s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status == StatusApproved {
		return nil, apperr.New(apperr.ErrConflict, "registration is already approved")
	}
	if reg.Status != StatusPending {
		return nil, apperr.New(apperr.ErrConflict, "only pending registrations can be approved")
	}
	if ev.MaxParticipants != nil {
		count, err := s.store.CountApprovedByEvent(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		if count >= *ev.MaxParticipants {
			obs.CapacityRejections.Inc()
			return nil, apperr.New(apperr.ErrCapacityExceeded, "event is full")
		}
	}

	now := s.now().UTC()
	reg.Status = StatusApproved
	reg.DecidedBy = actor.ID
	reg.DecidedAt = &now
	reg.UpdatedAt = now
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, err
	}
	obs.RegistrationsApproved.Inc()
	s.log.Info("registration approved",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", ev.ID),
		zap.String("actor_id", actor.ID))
	return reg, nil
}

// Reject moves a pending or approved registration to rejected. Rejecting an
// approved registration frees a capacity slot, so it also runs under the
// event lock.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, registrationID string) (*Registration, error) {
	reg, err := s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	ev, err := s.events.Find(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return nil, apperr.New(apperr.ErrForbidden, "not the event organizer")
	}

	s.eventLocks.Lock(ev.ID)
	defer s.eventLocks.Unlock(ev.ID)

	reg, err = s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Completed {
		return nil, apperr.New(apperr.ErrConflict, "completed registrations cannot be rejected")
	}
	if reg.Status == StatusRejected {
		return reg, nil
	}

	now := s.now().UTC()
	reg.Status = StatusRejected
	reg.DecidedBy = actor.ID
	reg.DecidedAt = &now
	reg.UpdatedAt = now
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info("registration rejected",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", ev.ID),
		zap.String("actor_id", actor.ID))
	return reg, nil
}

// MarkCompleted records attendance on an approved registration. The flag
// is monotonic, so repeating the call is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, actor auth.Actor, registrationID string) (*Registration, error) {
	reg, err := s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	ev, err := s.events.Find(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return nil, apperr.New(apperr.ErrForbidden, "not the event organizer")
	}
	if reg.Status != StatusApproved {
		return nil, apperr.New(apperr.ErrConflict, "only approved registrations can be completed")
	}
	if reg.Completed {
		return reg, nil
	}

	now := s.now().UTC()
	reg.Completed = true
	reg.CompletedAt = &now
	reg.UpdatedAt = now
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info("registration completed",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", ev.ID))
	return reg, nil
}

// Get returns a registration visible to its owner, the event creator, or an
// admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, registrationID string) (*Registration, error) {
	reg, err := s.store.Find(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if auth.CanActOn(actor, reg.UserID) {
		return reg, nil
	}
	ev, err := s.events.Find(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != actor.ID {
		return nil, apperr.New(apperr.ErrForbidden, "not your registration")
	}
	return reg, nil
}

// ListByEvent returns an event's registrations for its creator or an admin.
func (s *Service) ListByEvent(ctx context.Context, actor auth.Actor, eventID string, f Filter) ([]*Registration, int, error) {
	ev, err := s.events.Find(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return nil, 0, apperr.New(apperr.ErrForbidden, "not the event organizer")
	}
	return s.store.ListByEvent(ctx, eventID, normalize(f))
}

// ListMine returns the caller's registrations.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor, f Filter) ([]*Registration, int, error) {
	return s.store.ListByUser(ctx, actor.ID, normalize(f))
}

// History returns the caller's approved registrations, most recent event
// first. Completed attendance stays in the history because completion never
// changes the approved status.
func (s *Service) History(ctx context.Context, actor auth.Actor, f Filter) ([]*Registration, int, error) {
	regs, err := s.store.ListApprovedByUser(ctx, actor.ID)
	if err != nil {
		return nil, 0, err
	}
	starts := make(map[string]time.Time, len(regs))
	for _, reg := range regs {
		ev, err := s.events.Find(ctx, reg.EventID)
		if err != nil {
			return nil, 0, err
		}
		starts[reg.EventID] = ev.StartsAt
	}
	sort.Slice(regs, func(i, j int) bool {
		return starts[regs[i].EventID].After(starts[regs[j].EventID])
	})

	f = normalize(f)
	total := len(regs)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return regs[f.Offset:end], total, nil
}

// CountApprovedByEvent exposes the fresh approved count to the event
// manager's capacity predicate.
func (s *Service) CountApprovedByEvent(ctx context.Context, eventID string) (int, error) {
	return s.store.CountApprovedByEvent(ctx, eventID)
}

// DeleteByEvent removes an event's registrations as part of the event
// delete cascade.
func (s *Service) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	s.eventLocks.Lock(eventID)
	defer s.eventLocks.Unlock(eventID)
	return s.store.DeleteByEvent(ctx, eventID)
}

func normalize(f Filter) Filter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
