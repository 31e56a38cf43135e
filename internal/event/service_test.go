package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
)

type fakeRegs struct {
	approvedCount int
	deletedEvents []string
}

func (f *fakeRegs) CountApprovedByEvent(ctx context.Context, eventID string) (int, error) {
	return f.approvedCount, nil
}

func (f *fakeRegs) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	f.deletedEvents = append(f.deletedEvents, eventID)
	return f.approvedCount, nil
}

var (
	organizer = auth.Actor{ID: "org-1", Role: auth.RoleOrganizer}
	admin     = auth.Actor{ID: "adm-1", Role: auth.RoleAdmin}
	volunteer = auth.Actor{ID: "vol-1", Role: auth.RoleVolunteer}
)

func newTestService(t *testing.T) (*Service, *fakeRegs, time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	regs := &fakeRegs{}
	svc := NewService(NewInMemoryStore(), regs, zap.NewNop(), WithClock(func() time.Time { return now }))
	return svc, regs, now
}

func validDraft(now time.Time) Draft {
	return Draft{
		Title:    "Beach cleanup",
		Location: "Pier 4",
		StartsAt: now.Add(72 * time.Hour),
	}
}

func TestProposeCreatesPending(t *testing.T) {
	svc, _, now := newTestService(t)
	ev, err := svc.Propose(context.Background(), organizer, validDraft(now))
	require.NoError(t, err)
	require.Equal(t, StatusPending, ev.Status)
	require.Equal(t, organizer.ID, ev.CreatorID)
	require.Nil(t, ev.ApprovedAt)
	require.Empty(t, ev.ApprovedBy)
}

func TestProposeValidation(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()

	past := validDraft(now)
	past.StartsAt = now.Add(-time.Hour)
	_, err := svc.Propose(ctx, organizer, past)
	require.ErrorIs(t, err, apperr.ErrValidation)

	lateDeadline := validDraft(now)
	dl := lateDeadline.StartsAt.Add(time.Hour)
	lateDeadline.RegistrationDeadline = &dl
	_, err = svc.Propose(ctx, organizer, lateDeadline)
	require.ErrorIs(t, err, apperr.ErrValidation)

	zeroCap := validDraft(now)
	n := 0
	zeroCap.MaxParticipants = &n
	_, err = svc.Propose(ctx, organizer, zeroCap)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProposeRoleGate(t *testing.T) {
	svc, _, now := newTestService(t)
	_, err := svc.Propose(context.Background(), volunteer, validDraft(now))
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestApproveLifecycle(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	ev, err := svc.Propose(ctx, organizer, validDraft(now))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, organizer, ev.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	approved, err := svc.Approve(ctx, admin, ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, admin.ID, approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	// Second approval is an explicit conflict, not a silent no-op.
	_, err = svc.Approve(ctx, admin, ev.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Approve(ctx, admin, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRejectDemotesApproved(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	ev, err := svc.Propose(ctx, organizer, validDraft(now))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, ev.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, admin, ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	// approvedAt/approvedBy hold only while status is approved.
	require.Nil(t, rejected.ApprovedAt)
	require.Empty(t, rejected.ApprovedBy)

	// Rejecting again stays rejected without error.
	again, err := svc.Reject(ctx, admin, ev.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, again.Status)
}

func TestUpdateRules(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()
	ev, err := svc.Propose(ctx, organizer, validDraft(now))
	require.NoError(t, err)

	title := "Renamed"
	_, err = svc.Update(ctx, auth.Actor{ID: "other", Role: auth.RoleOrganizer}, ev.ID, Patch{Title: &title})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := svc.Update(ctx, organizer, ev.ID, Patch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)

	past := now.Add(-time.Hour)
	_, err = svc.Update(ctx, organizer, ev.ID, Patch{StartsAt: &past})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Approve(ctx, admin, ev.ID)
	require.NoError(t, err)

	// Approved events are frozen for the creator but not for admins.
	_, err = svc.Update(ctx, organizer, ev.ID, Patch{Title: &title})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = svc.Update(ctx, admin, ev.ID, Patch{Title: &title})
	require.NoError(t, err)
}

func TestDeleteCascade(t *testing.T) {
	svc, regs, now := newTestService(t)
	ctx := context.Background()
	ev, err := svc.Propose(ctx, organizer, validDraft(now))
	require.NoError(t, err)

	regs.approvedCount = 2
	err = svc.Delete(ctx, organizer, ev.ID)
	require.ErrorIs(t, err, apperr.ErrBadRequest, "creator cannot delete with approved registrations")

	require.NoError(t, svc.Delete(ctx, admin, ev.ID))
	require.Equal(t, []string{ev.ID}, regs.deletedEvents, "registrations removed before the event")
	_, err = svc.Get(ctx, ev.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListFiltersAndPages(t *testing.T) {
	svc, _, now := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		draft := validDraft(now)
		draft.StartsAt = now.Add(time.Duration(i+1) * 24 * time.Hour)
		_, err := svc.Propose(ctx, organizer, draft)
		require.NoError(t, err)
	}
	evs, total, err := svc.List(ctx, Filter{Status: StatusPending, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, evs, 2)
	require.True(t, evs[0].StartsAt.Before(evs[1].StartsAt))

	evs, total, err = svc.List(ctx, Filter{Status: StatusApproved})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, evs)
}

func TestAcceptsRegistrations(t *testing.T) {
	svc, regs, now := newTestService(t)
	ctx := context.Background()

	deadline := now.Add(24 * time.Hour)
	capacity := 2
	ev := &Event{
		ID:                   "ev-1",
		Status:               StatusApproved,
		StartsAt:             now.Add(48 * time.Hour),
		RegistrationDeadline: &deadline,
		MaxParticipants:      &capacity,
	}

	ok, err := svc.AcceptsRegistrations(ctx, ev)
	require.NoError(t, err)
	require.True(t, ok)

	regs.approvedCount = 2
	ok, err = svc.AcceptsRegistrations(ctx, ev)
	require.NoError(t, err)
	require.False(t, ok, "full event does not accept registrations")

	regs.approvedCount = 0
	ev.Status = StatusPending
	ok, err = svc.AcceptsRegistrations(ctx, ev)
	require.NoError(t, err)
	require.False(t, ok, "unapproved event does not accept registrations")
}

func TestCanAcceptRegistrationsDeadline(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	passed := now.Add(-time.Minute)
	ev := &Event{Status: StatusApproved, RegistrationDeadline: &passed}
	if CanAcceptRegistrations(ev, 0, now) {
		t.Fatal("deadline in the past must close registration")
	}
	ev.RegistrationDeadline = nil
	if !CanAcceptRegistrations(ev, 0, now) {
		t.Fatal("nil deadline keeps registration open")
	}
}
