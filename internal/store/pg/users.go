package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
)

var _ auth.IdentityStore = (*UserStore)(nil)

// UserStore implements auth.IdentityStore on PostgreSQL.
type UserStore struct{ db *sql.DB }

const userColumns = `id, full_name, email, password_hash, role, active, locked, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(`+userColumns+`) values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, string(u.Role),
		u.Active, u.Locked, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *UserStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email=$1)`, email).Scan(&exists)
	return exists, err
}

func (s *UserStore) Update(ctx context.Context, u *auth.User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set full_name=$2, email=$3, password_hash=$4, role=$5,
		 active=$6, locked=$7, updated_at=$8 where id=$1`,
		u.ID, u.FullName, u.Email, u.PasswordHash, string(u.Role),
		u.Active, u.Locked, u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "user "+u.ID)
}

func (s *UserStore) scanOne(row *sql.Row) (*auth.User, error) {
	var u auth.User
	var role string
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &role,
		&u.Active, &u.Locked, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "user")
	}
	if err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.ErrNotFound, what)
	}
	return nil
}
