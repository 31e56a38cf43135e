package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/registration"
)

var _ registration.Store = (*RegistrationStore)(nil)

// RegistrationStore implements registration.Store on PostgreSQL. A partial
// unique index on (user_id, event_id) over non-cancelled statuses backs the
// one-registration-per-event rule at the schema level.
type RegistrationStore struct{ db *sql.DB }

const regColumns = `id, event_id, user_id, notes, status, decided_by, decided_at, completed, completed_at, created_at, updated_at`

func (s *RegistrationStore) Create(ctx context.Context, reg *registration.Registration) error {
	_, err := s.db.ExecContext(ctx,
		`insert into registrations(`+regColumns+`) values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		reg.ID, reg.EventID, reg.UserID, reg.Notes, string(reg.Status),
		nullString(reg.DecidedBy), reg.DecidedAt, reg.Completed, reg.CompletedAt,
		reg.CreatedAt, reg.UpdatedAt,
	)
	return err
}

func (s *RegistrationStore) Find(ctx context.Context, id string) (*registration.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+regColumns+` from registrations where id=$1`, id)
	reg, err := scanRegistration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "registration "+id)
	}
	return reg, err
}

func (s *RegistrationStore) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*registration.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+regColumns+` from registrations
		 where user_id=$1 and event_id=$2 and status <> 'cancelled'`,
		userID, eventID)
	reg, err := scanRegistration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "no registration")
	}
	return reg, err
}

func (s *RegistrationStore) ListApprovedByUser(ctx context.Context, userID string) ([]*registration.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+regColumns+` from registrations where user_id=$1 and status='approved'`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*registration.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, reg)
	}
	return res, rows.Err()
}

func (s *RegistrationStore) ListByEvent(ctx context.Context, eventID string, f registration.Filter) ([]*registration.Registration, int, error) {
	return s.list(ctx, "event_id", eventID, f)
}

func (s *RegistrationStore) ListByUser(ctx context.Context, userID string, f registration.Filter) ([]*registration.Registration, int, error) {
	return s.list(ctx, "user_id", userID, f)
}

func (s *RegistrationStore) list(ctx context.Context, keyCol, keyVal string, f registration.Filter) ([]*registration.Registration, int, error) {
	where := ` where ` + keyCol + `=$1`
	args := []any{keyVal}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += ` and status=$2`
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from registrations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `select ` + regColumns + ` from registrations` + where +
		` order by created_at asc limit $` + strconv.Itoa(len(args)+1) +
		` offset $` + strconv.Itoa(len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []*registration.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, reg)
	}
	return res, total, rows.Err()
}

func (s *RegistrationStore) CountApprovedByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from registrations where event_id=$1 and status='approved'`,
		eventID).Scan(&n)
	return n, err
}

func (s *RegistrationStore) Update(ctx context.Context, reg *registration.Registration) error {
	res, err := s.db.ExecContext(ctx,
		`update registrations set status=$2, decided_by=$3, decided_at=$4, completed=$5, completed_at=$6, updated_at=$7 where id=$1`,
		reg.ID, string(reg.Status), nullString(reg.DecidedBy), reg.DecidedAt,
		reg.Completed, reg.CompletedAt, reg.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "registration "+reg.ID)
}

func (s *RegistrationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from registrations where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "registration "+id)
}

func (s *RegistrationStore) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from registrations where event_id=$1`, eventID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanRegistration(scan func(...any) error) (*registration.Registration, error) {
	var (
		reg       registration.Registration
		status    string
		decidedBy sql.NullString
	)
	err := scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Notes, &status,
		&decidedBy, &reg.DecidedAt, &reg.Completed, &reg.CompletedAt,
		&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Status = registration.Status(status)
	reg.DecidedBy = decidedBy.String
	return &reg, nil
}
