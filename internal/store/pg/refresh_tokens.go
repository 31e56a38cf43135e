package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/auth"
)

var _ auth.RefreshTokenStore = (*RefreshTokenStore)(nil)

// RefreshTokenStore implements auth.RefreshTokenStore on PostgreSQL. Rows
// hold the SHA-256 hash of the opaque token, never the token itself.
type RefreshTokenStore struct{ db *sql.DB }

const tokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked`

func (s *RefreshTokenStore) Save(ctx context.Context, tok *auth.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(`+tokenColumns+`) values($1,$2,$3,$4,$5,$6)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt, tok.Revoked,
	)
	return err
}

func (s *RefreshTokenStore) FindByHash(ctx context.Context, hash string) (*auth.RefreshToken, error) {
	var tok auth.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`select `+tokenColumns+` from refresh_tokens where token_hash=$1`, hash,
	).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "refresh token")
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "refresh token "+id)
}

func (s *RefreshTokenStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from refresh_tokens where user_id=$1`, userID)
	return err
}

func (s *RefreshTokenStore) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked=true where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "refresh token "+id)
}

func (s *RefreshTokenStore) DeleteExpiredAndRevoked(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where revoked or expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
