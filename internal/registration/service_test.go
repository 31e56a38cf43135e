package registration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/event"
)

var (
	organizer = auth.Actor{ID: "org-1", Role: auth.RoleOrganizer}
	admin     = auth.Actor{ID: "adm-1", Role: auth.RoleAdmin}
)

type fixture struct {
	svc    *Service
	store  *InMemoryStore
	events *event.InMemoryStore
	now    time.Time
	seq    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	regs := NewInMemoryStore()
	events := event.NewInMemoryStore()
	svc := NewService(regs, events, zap.NewNop(), WithClock(func() time.Time { return now }))
	return &fixture{svc: svc, store: regs, events: events, now: now}
}

func (f *fixture) seedEvent(t *testing.T, status event.Status, max *int) *event.Event {
	t.Helper()
	f.seq++
	ev := &event.Event{
		ID:              fmt.Sprintf("ev-%d", f.seq),
		Title:           "Park restoration",
		Location:        "North gate",
		StartsAt:        f.now.Add(48 * time.Hour),
		MaxParticipants: max,
		Status:          status,
		CreatorID:       organizer.ID,
		CreatedAt:       f.now,
		UpdatedAt:       f.now,
	}
	require.NoError(t, f.events.Create(context.Background(), ev))
	return ev
}

func volunteerActor(i int) auth.Actor {
	return auth.Actor{ID: fmt.Sprintf("vol-%d", i), Role: auth.RoleVolunteer}
}

func TestRegisterCreatesPending(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvent(t, event.StatusApproved, nil)

	reg, err := f.svc.Register(context.Background(), volunteerActor(1), ev.ID, "bringing gloves")
	require.NoError(t, err)
	require.Equal(t, StatusPending, reg.Status)
	require.Equal(t, ev.ID, reg.EventID)
	require.Equal(t, "vol-1", reg.UserID)
	require.Equal(t, "bringing gloves", reg.Notes)
	require.False(t, reg.Completed)
}

func TestRegisterGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vol := volunteerActor(1)

	pending := f.seedEvent(t, event.StatusPending, nil)
	_, err := f.svc.Register(ctx, vol, pending.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest, "unapproved event")

	closed := f.seedEvent(t, event.StatusApproved, nil)
	passed := f.now.Add(-time.Hour)
	closed.RegistrationDeadline = &passed
	require.NoError(t, f.events.Update(ctx, closed))
	_, err = f.svc.Register(ctx, vol, closed.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest, "deadline passed")

	started := f.seedEvent(t, event.StatusApproved, nil)
	started.StartsAt = f.now.Add(-time.Hour)
	require.NoError(t, f.events.Update(ctx, started))
	_, err = f.svc.Register(ctx, vol, started.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest, "already started")

	_, err = f.svc.Register(ctx, vol, "missing", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)
	vol := volunteerActor(1)

	_, err := f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, vol, ev.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}

// A rejected row still occupies the one-registration-per-event slot: the
// volunteer has to withdraw it before registering again.
func TestRegisterBlockedWhileRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)
	vol := volunteerActor(1)

	reg, err := f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, organizer, reg.ID)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, vol, ev.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest)

	require.NoError(t, f.svc.Unregister(ctx, vol, reg.ID))
	_, err = f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)
}

func TestRegisterAfterUnregister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)
	vol := volunteerActor(1)

	reg, err := f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Unregister(ctx, vol, reg.ID))

	// Withdrawal deletes the row, so registering again is allowed.
	_, err = f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)
}

func TestRegisterFullEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	one := 1
	ev := f.seedEvent(t, event.StatusApproved, &one)

	first, err := f.svc.Register(ctx, volunteerActor(1), ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, organizer, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, volunteerActor(2), ev.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest, "register-path failures are bad requests")
}

func TestUnregisterGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)
	vol := volunteerActor(1)

	err := f.svc.Unregister(ctx, vol, "missing")
	require.ErrorIs(t, err, apperr.ErrBadRequest, "nothing to withdraw")

	reg, err := f.svc.Register(ctx, vol, ev.ID, "")
	require.NoError(t, err)

	err = f.svc.Unregister(ctx, volunteerActor(2), reg.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	ev.StartsAt = f.now.Add(-time.Hour)
	require.NoError(t, f.events.Update(ctx, ev))
	err = f.svc.Unregister(ctx, vol, reg.ID)
	require.ErrorIs(t, err, apperr.ErrBadRequest, "owner cannot withdraw after start")

	// An admin still can.
	require.NoError(t, f.svc.Unregister(ctx, admin, reg.ID))
	_, err = f.store.Find(ctx, reg.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApproveLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)

	reg, err := f.svc.Register(ctx, volunteerActor(1), ev.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, volunteerActor(1), reg.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	approved, err := f.svc.Approve(ctx, organizer, reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, organizer.ID, approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)

	_, err = f.svc.Approve(ctx, organizer, reg.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRejectFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	one := 1
	ev := f.seedEvent(t, event.StatusApproved, &one)

	first, err := f.svc.Register(ctx, volunteerActor(1), ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, organizer, first.ID)
	require.NoError(t, err)

	second, err := f.svc.Register(ctx, volunteerActor(2), ev.ID, "")
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	require.Nil(t, second)

	_, err = f.svc.Reject(ctx, organizer, first.ID)
	require.NoError(t, err)

	reg2, err := f.svc.Register(ctx, volunteerActor(2), ev.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, organizer, reg2.ID)
	require.NoError(t, err)
}

func TestMarkCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	one := 1
	ev := f.seedEvent(t, event.StatusApproved, &one)

	reg, err := f.svc.Register(ctx, volunteerActor(1), ev.ID, "")
	require.NoError(t, err)

	_, err = f.svc.MarkCompleted(ctx, organizer, reg.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "pending cannot complete")

	_, err = f.svc.Approve(ctx, organizer, reg.ID)
	require.NoError(t, err)

	done, err := f.svc.MarkCompleted(ctx, organizer, reg.ID)
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, StatusApproved, done.Status, "completion keeps the approved status")

	// Monotonic: repeating the call changes nothing.
	again, err := f.svc.MarkCompleted(ctx, organizer, reg.ID)
	require.NoError(t, err)
	require.Equal(t, done.CompletedAt, again.CompletedAt)

	// A completed registration keeps counting against capacity.
	count, err := f.store.CountApprovedByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = f.svc.Reject(ctx, organizer, reg.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "attendance is final")
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)

	for i := 1; i <= 3; i++ {
		_, err := f.svc.Register(ctx, volunteerActor(i), ev.ID, "")
		require.NoError(t, err)
	}

	_, _, err := f.svc.ListByEvent(ctx, volunteerActor(1), ev.ID, Filter{})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	regs, total, err := f.svc.ListByEvent(ctx, organizer, ev.ID, Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, regs, 3)

	mine, total, err := f.svc.ListMine(ctx, volunteerActor(2), Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "vol-2", mine[0].UserID)
}

// TestHistory checks the volunteer's approved-participation projection:
// approved rows only, newest event first, completed attendance included.
func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vol := volunteerActor(1)

	early := f.seedEvent(t, event.StatusApproved, nil)
	late := f.seedEvent(t, event.StatusApproved, nil)
	late.StartsAt = early.StartsAt.Add(24 * time.Hour)
	require.NoError(t, f.events.Update(ctx, late))
	skipped := f.seedEvent(t, event.StatusApproved, nil)

	regEarly, err := f.svc.Register(ctx, vol, early.ID, "")
	require.NoError(t, err)
	regLate, err := f.svc.Register(ctx, vol, late.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, vol, skipped.ID, "")
	require.NoError(t, err, "stays pending, must not appear in history")

	_, err = f.svc.Approve(ctx, organizer, regEarly.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, organizer, regLate.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkCompleted(ctx, organizer, regEarly.ID)
	require.NoError(t, err)

	history, total, err := f.svc.History(ctx, vol, Filter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, history, 2)
	require.Equal(t, late.ID, history[0].EventID, "most recent event first")
	require.Equal(t, early.ID, history[1].EventID)
	require.True(t, history[1].Completed)

	page, total, err := f.svc.History(ctx, vol, Filter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, page, 1)
	require.Equal(t, early.ID, page[0].EventID)
}

// TestConcurrentApprovalsRespectCapacity races many approvals for a small
// event and checks that the approved count never exceeds the limit, with
// every loser getting a capacity error.
func TestConcurrentApprovalsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const capacity = 3
	const contenders = 20
	max := capacity
	ev := f.seedEvent(t, event.StatusApproved, &max)

	regIDs := make([]string, 0, contenders)
	for i := 0; i < contenders; i++ {
		reg, err := f.svc.Register(ctx, volunteerActor(i), ev.ID, "")
		require.NoError(t, err)
		regIDs = append(regIDs, reg.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, id := range regIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, admin, id)
		}(i, id)
	}
	wg.Wait()

	var approved, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		default:
			require.ErrorIs(t, err, apperr.ErrCapacityExceeded)
			rejected++
		}
	}
	require.Equal(t, capacity, approved)
	require.Equal(t, contenders-capacity, rejected)

	count, err := f.store.CountApprovedByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, capacity, count)
}

// TestFullLifecycleScenario walks the end-to-end path: register, approve,
// event happens, attendance recorded.
func TestFullLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	two := 2
	ev := f.seedEvent(t, event.StatusApproved, &two)
	vol := volunteerActor(7)

	reg, err := f.svc.Register(ctx, vol, ev.ID, "first time volunteering")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, organizer, reg.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, vol, reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
	require.Equal(t, "first time volunteering", got.Notes)

	done, err := f.svc.MarkCompleted(ctx, admin, reg.ID)
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.Equal(t, StatusApproved, done.Status)
}

func TestDeleteByEventCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvent(t, event.StatusApproved, nil)

	for i := 0; i < 4; i++ {
		_, err := f.svc.Register(ctx, volunteerActor(i), ev.ID, "")
		require.NoError(t, err)
	}
	removed, err := f.svc.DeleteByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, 4, removed)

	_, total, err := f.svc.ListByEvent(ctx, organizer, ev.ID, Filter{})
	require.NoError(t, err)
	require.Zero(t, total)
}
