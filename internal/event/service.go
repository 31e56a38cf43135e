// Package event owns the event approval state machine: organizers propose,
// admins approve or reject, and approved events accept registrations until
// their deadline or capacity is hit.
package event

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/ids"
	"github.com/Calmero107/volunteer/internal/obs"
)

// Service is the event lifecycle manager.
type Service struct {
	store Store
	regs  RegistrationCollaborator
	log   *zap.Logger
	now   func() time.Time
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

// NewService constructs the event lifecycle manager.
func NewService(store Store, regs RegistrationCollaborator, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, regs: regs, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Propose creates a pending event. Only organizers and admins may propose.
func (s *Service) Propose(ctx context.Context, actor auth.Actor, draft Draft) (*Event, error) {
	if actor.Role != auth.RoleOrganizer && actor.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.ErrForbidden, "organizer role required")
	}
	now := s.now().UTC()
	if err := validateDraft(draft, now); err != nil {
		return nil, err
	}

	ev := &Event{
		ID:                   ids.New(),
		Title:                strings.TrimSpace(draft.Title),
		Description:          draft.Description,
		Location:             strings.TrimSpace(draft.Location),
		StartsAt:             draft.StartsAt,
		RegistrationDeadline: draft.RegistrationDeadline,
		MaxParticipants:      draft.MaxParticipants,
		Status:               StatusPending,
		CreatorID:            actor.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event proposed", zap.String("event_id", ev.ID), zap.String("creator_id", actor.ID))
	obs.EventTransitions.WithLabelValues(string(StatusPending)).Inc()
	return ev, nil
}

// Approve moves a pending or rejected event to approved. Approving an
// already approved event is a conflict, never a silent no-op.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, eventID string) (*Event, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "admin role required")
	}
	ev, err := s.store.Find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status == StatusApproved {
		return nil, apperr.New(apperr.ErrConflict, "event is already approved")
	}

	now := s.now().UTC()
	ev.Status = StatusApproved
	ev.ApprovedBy = actor.ID
	ev.ApprovedAt = &now
	ev.UpdatedAt = now
	if err := s.store.Update(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event approved", zap.String("event_id", ev.ID), zap.String("admin_id", actor.ID))
	obs.EventTransitions.WithLabelValues(string(StatusApproved)).Inc()
	return ev, nil
}

// Reject moves an event to rejected unconditionally, matching the original
// policy: rejecting an already approved event demotes it. Demotions are
// logged at warn level so they are visible to operators.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, eventID string) (*Event, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "admin role required")
	}
	ev, err := s.store.Find(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if ev.Status == StatusApproved {
		s.log.Warn("approved event demoted to rejected",
			zap.String("event_id", ev.ID), zap.String("admin_id", actor.ID))
	}
	ev.Status = StatusRejected
	ev.ApprovedBy = ""
	ev.ApprovedAt = nil
	ev.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event rejected", zap.String("event_id", ev.ID), zap.String("admin_id", actor.ID))
	obs.EventTransitions.WithLabelValues(string(StatusRejected)).Inc()
	return ev, nil
}

// Update edits event fields. The creator may edit their own pending or
// rejected events; approved events are editable by admins only.
func (s *Service) Update(ctx context.Context, actor auth.Actor, eventID string, patch Patch) (*Event, error) {
	ev, err := s.store.Find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return nil, apperr.New(apperr.ErrForbidden, "not the event creator")
	}
	if ev.Status == StatusApproved && !actor.IsAdmin() {
		return nil, apperr.New(apperr.ErrBadRequest, "approved events can only be changed by an admin")
	}

	now := s.now().UTC()
	if patch.Title != nil {
		ev.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Location != nil {
		ev.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.StartsAt != nil {
		if !patch.StartsAt.After(now) {
			return nil, apperr.New(apperr.ErrValidation, "event date must be in the future")
		}
		ev.StartsAt = *patch.StartsAt
	}
	if patch.RegistrationDeadline != nil {
		ev.RegistrationDeadline = patch.RegistrationDeadline
	}
	if patch.MaxParticipants != nil {
		ev.MaxParticipants = patch.MaxParticipants
	}
	if ev.RegistrationDeadline != nil && ev.RegistrationDeadline.After(ev.StartsAt) {
		return nil, apperr.New(apperr.ErrValidation, "registration deadline must be before the event date")
	}

	ev.UpdatedAt = now
	if err := s.store.Update(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event updated", zap.String("event_id", ev.ID), zap.String("actor_id", actor.ID))
	return ev, nil
}

// Delete removes an event and, first, its registrations — an explicit
// ordered cascade. Non-admin creators cannot delete events that already
// have approved registrations.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, eventID string) error {
	ev, err := s.store.Find(ctx, eventID)
	if err != nil {
		return err
	}
	if !auth.CanActOn(actor, ev.CreatorID) {
		return apperr.New(apperr.ErrForbidden, "not the event creator")
	}
	if !actor.IsAdmin() {
		count, err := s.regs.CountApprovedByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.ErrBadRequest, "event has approved registrations")
		}
	}

	// Dependents first, then the event itself.
	removed, err := s.regs.DeleteByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, eventID); err != nil {
		return err
	}
	s.log.Info("event deleted",
		zap.String("event_id", eventID),
		zap.String("actor_id", actor.ID),
		zap.Int("registrations_removed", removed))
	return nil
}

// Get returns an event by id.
func (s *Service) Get(ctx context.Context, eventID string) (*Event, error) {
	return s.store.Find(ctx, eventID)
}

// List returns a filtered page of events plus the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]*Event, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// AcceptsRegistrations evaluates the registration window against a fresh
// approved count.
func (s *Service) AcceptsRegistrations(ctx context.Context, ev *Event) (bool, error) {
	count := 0
	if ev.MaxParticipants != nil {
		var err error
		count, err = s.regs.CountApprovedByEvent(ctx, ev.ID)
		if err != nil {
			return false, err
		}
	}
	return CanAcceptRegistrations(ev, count, s.now().UTC()), nil
}

func validateDraft(draft Draft, now time.Time) error {
	if strings.TrimSpace(draft.Title) == "" {
		return apperr.New(apperr.ErrValidation, "title is required")
	}
	if strings.TrimSpace(draft.Location) == "" {
		return apperr.New(apperr.ErrValidation, "location is required")
	}
	if !draft.StartsAt.After(now) {
		return apperr.New(apperr.ErrValidation, "event date must be in the future")
	}
	if draft.RegistrationDeadline != nil && draft.RegistrationDeadline.After(draft.StartsAt) {
		return apperr.New(apperr.ErrValidation, "registration deadline must be before the event date")
	}
	if draft.MaxParticipants != nil && *draft.MaxParticipants <= 0 {
		return apperr.New(apperr.ErrValidation, "max participants must be positive")
	}
	return nil
}
