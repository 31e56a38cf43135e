package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
	"github.com/Calmero107/volunteer/internal/event"
	"github.com/Calmero107/volunteer/internal/registration"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestUserStoreFindByEmail(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "role", "active", "locked", "created_at", "updated_at"}).
		AddRow("u-1", "Ada Volunteer", "ada@example.org", "hash", "volunteer", true, false, now, now)
	mock.ExpectQuery("select id, full_name, email, password_hash, role, active, locked, created_at, updated_at from users where email").
		WithArgs("ada@example.org").WillReturnRows(rows)

	u, err := store.Users().FindByEmail(context.Background(), "ada@example.org")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.Role != auth.RoleVolunteer || u.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreFindNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select .* from users where id").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().Find(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefreshTokenStoreSweep(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("delete from refresh_tokens where revoked or expires_at").
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RefreshTokens().DeleteExpiredAndRevoked(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpiredAndRevoked: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows swept, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventStoreList(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`select count\(\*\) from events where status`).
		WithArgs("approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "location", "starts_at", "registration_deadline",
		"max_participants", "status", "creator_id", "approved_by", "approved_at", "created_at", "updated_at",
	}).AddRow("ev-1", "Cleanup", "", "Pier 4", now.Add(time.Hour), nil, nil, "approved", "org-1", "adm-1", now, now, now)
	mock.ExpectQuery("select id, title, description, location, starts_at, registration_deadline").
		WithArgs("approved", 20, 0).WillReturnRows(rows)

	evs, total, err := store.Events().List(context.Background(), event.Filter{Status: event.StatusApproved, Limit: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(evs) != 1 || evs[0].ApprovedBy != "adm-1" {
		t.Fatalf("unexpected result: total=%d evs=%+v", total, evs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventStoreUpdateMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update events set").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Events().Update(context.Background(), &event.Event{ID: "ev-x", Status: event.StatusPending})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistrationStoreCountApproved(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`select count\(\*\) from registrations where event_id=\$1 and status='approved'`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := store.Registrations().CountApprovedByEvent(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("CountApprovedByEvent: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
}

func TestRegistrationStoreFindByUserAndEvent(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "event_id", "user_id", "notes", "status", "decided_by", "decided_at",
		"completed", "completed_at", "created_at", "updated_at",
	}).AddRow("r-1", "ev-1", "u-1", "bringing gloves", "pending", nil, nil, false, nil, now, now)
	mock.ExpectQuery("select id, event_id, user_id, notes, status, decided_by, decided_at, completed, completed_at, created_at, updated_at from registrations").
		WithArgs("u-1", "ev-1").WillReturnRows(rows)

	reg, err := store.Registrations().FindByUserAndEvent(context.Background(), "u-1", "ev-1")
	if err != nil {
		t.Fatalf("FindByUserAndEvent: %v", err)
	}
	if reg.Status != registration.StatusPending || reg.DecidedBy != "" || reg.Notes != "bringing gloves" {
		t.Fatalf("unexpected registration: %+v", reg)
	}
}

func TestRegistrationStoreListApprovedByUser(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "event_id", "user_id", "notes", "status", "decided_by", "decided_at",
		"completed", "completed_at", "created_at", "updated_at",
	}).
		AddRow("r-1", "ev-1", "u-1", "", "approved", "org-1", now, true, now, now, now).
		AddRow("r-2", "ev-2", "u-1", "", "approved", "org-1", now, false, nil, now, now)
	mock.ExpectQuery(`from registrations where user_id=\$1 and status='approved'`).
		WithArgs("u-1").WillReturnRows(rows)

	regs, err := store.Registrations().ListApprovedByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListApprovedByUser: %v", err)
	}
	if len(regs) != 2 || !regs[0].Completed || regs[1].Completed {
		t.Fatalf("unexpected registrations: %+v", regs)
	}
}

func TestRegistrationStoreDeleteByEvent(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from registrations where event_id").
		WithArgs("ev-1").WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := store.Registrations().DeleteByEvent(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("DeleteByEvent: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 removed, got %d", n)
	}
}
