package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Calmero107/volunteer/internal/apperr"
)

const issuer = "volunteer-api"

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) signAccessToken(userID string, role Role, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess validates an access token and returns the authenticated actor.
func (s *Service) VerifyAccess(token string) (Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "missing token")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, apperr.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	if err := s.validateClaims(claims); err != nil {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Actor{}, apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	return Actor{ID: claims.Subject, Role: role}, nil
}

func (s *Service) validateClaims(claims *Claims) error {
	if claims.Issuer != issuer {
		return apperr.Newf(apperr.ErrUnauthorized, "unexpected issuer %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return apperr.New(apperr.ErrUnauthorized, "subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return apperr.New(apperr.ErrUnauthorized, "timestamps missing")
	}
	now := s.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return apperr.New(apperr.ErrUnauthorized, "token expired")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return apperr.New(apperr.ErrUnauthorized, "token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return apperr.New(apperr.ErrUnauthorized, "token expiry precedes issued-at")
	}
	return nil
}
