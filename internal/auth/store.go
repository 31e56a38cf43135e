package auth

import (
	"context"
	"time"
)

// IdentityStore persists user accounts.
type IdentityStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *User) error
}

// RefreshTokenStore persists refresh credential records, keyed by the
// SHA-256 hash of the opaque token string.
type RefreshTokenStore interface {
	Save(ctx context.Context, tok *RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
	MarkRevoked(ctx context.Context, id string) error
	DeleteExpiredAndRevoked(ctx context.Context, now time.Time) (int, error)
}
