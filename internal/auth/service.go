// Package auth owns identity and the credential lifecycle: bcrypt-hashed
// accounts, short-lived JWT access tokens and persisted single-session
// refresh tokens with revocation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/ids"
	"github.com/Calmero107/volunteer/internal/locks"
	"github.com/Calmero107/volunteer/internal/obs"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Service issues, verifies, refreshes and revokes credential pairs, and
// carries the admin operations on user accounts.
type Service struct {
	users  IdentityStore
	tokens RefreshTokenStore
	log    *zap.Logger
	now    func() time.Time

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// userLocks serializes issuance per user so two concurrent logins cannot
	// both leave a live session behind.
	userLocks *locks.Keyed
}

// Option configures Service.
type Option func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the credential service. secret signs access tokens
// and must not be empty.
func NewService(users IdentityStore, tokens RefreshTokenStore, secret string, log *zap.Logger, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		users:      users,
		tokens:     tokens,
		log:        log,
		now:        time.Now,
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		userLocks:  locks.NewKeyed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup creates an account and issues its first credential pair. The admin
// role cannot be self-assigned.
func (s *Service) Signup(ctx context.Context, fullName, email, password string, role Role) (*User, TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if role != RoleVolunteer && role != RoleOrganizer {
		return nil, TokenPair{}, apperr.Newf(apperr.ErrValidation, "cannot sign up with role %q", role)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, TokenPair{}, apperr.New(apperr.ErrValidation, "full name is required")
	}

	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if taken {
		return nil, TokenPair{}, apperr.New(apperr.ErrBadRequest, "email address already in use")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		Locked:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.Issue(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	obs.TokensIssued.WithLabelValues("signup").Inc()
	return user, pair, nil
}

// Login authenticates credentials and issues a fresh pair. Prior refresh
// records for the user are invalidated.
func (s *Service) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, TokenPair{}, apperr.New(apperr.ErrUnauthorized, "invalid credentials")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, TokenPair{}, apperr.New(apperr.ErrUnauthorized, "invalid credentials")
		}
		return nil, TokenPair{}, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, TokenPair{}, apperr.New(apperr.ErrUnauthorized, "invalid credentials")
	}
	if user.Locked {
		return nil, TokenPair{}, apperr.New(apperr.ErrUnauthorized, "account is locked")
	}
	if !user.Active {
		return nil, TokenPair{}, apperr.New(apperr.ErrUnauthorized, "account is inactive")
	}

	pair, err := s.Issue(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID))
	obs.TokensIssued.WithLabelValues("login").Inc()
	return user, pair, nil
}

// Issue mints an access/refresh pair for the user. Any previously valid
// refresh record for the same user is deleted first; the two steps run under
// a per-user lock so concurrent logins end with exactly one live session.
func (s *Service) Issue(ctx context.Context, user *User) (TokenPair, error) {
	now := s.now().UTC()
	access, accessExp, err := s.signAccessToken(user.ID, user.Role, now)
	if err != nil {
		return TokenPair{}, err
	}

	plain, rec, err := s.generateRefreshToken(user.ID, now)
	if err != nil {
		return TokenPair{}, err
	}

	s.userLocks.Lock(user.ID)
	defer s.userLocks.Unlock(user.ID)

	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Save(ctx, rec); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     plain,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Refresh mints a new access token against a valid refresh token. The
// refresh token itself is not rotated: callers keep using the same string
// until it expires or is revoked. Replay containment relies on the
// single-session invariant enforced by Issue.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	rec, err := s.tokens.FindByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return TokenPair{}, apperr.New(apperr.ErrUnauthorized, "unknown refresh token")
		}
		return TokenPair{}, err
	}
	if s.now().UTC().After(rec.ExpiresAt) {
		// Opportunistic cleanup; validity does not depend on it.
		_ = s.tokens.Delete(ctx, rec.ID)
		return TokenPair{}, apperr.New(apperr.ErrUnauthorized, "refresh token expired")
	}
	if rec.Revoked {
		return TokenPair{}, apperr.New(apperr.ErrUnauthorized, "refresh token revoked")
	}

	user, err := s.users.Find(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return TokenPair{}, apperr.New(apperr.ErrUnauthorized, "unknown refresh token")
		}
		return TokenPair{}, err
	}

	now := s.now().UTC()
	access, accessExp, err := s.signAccessToken(user.ID, user.Role, now)
	if err != nil {
		return TokenPair{}, err
	}
	obs.TokensIssued.WithLabelValues("refresh").Inc()
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Revoke marks the matching refresh record revoked. Logout is idempotent:
// an unknown token is not an error.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	rec, err := s.tokens.FindByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.tokens.MarkRevoked(ctx, rec.ID); err != nil {
		return err
	}
	s.log.Info("refresh token revoked", zap.String("user_id", rec.UserID))
	obs.TokensRevoked.Inc()
	return nil
}

// SweepExpired deletes expired and revoked refresh records. Housekeeping
// only: Refresh re-validates expiry and revocation independently.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.tokens.DeleteExpiredAndRevoked(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("swept refresh tokens", zap.Int("deleted", n))
	}
	return n, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	rec := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		Revoked:   false,
	}
	return plain, rec, nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", apperr.New(apperr.ErrValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.New(apperr.ErrValidation, "invalid email format")
	}
	return strings.ToLower(email), nil
}
