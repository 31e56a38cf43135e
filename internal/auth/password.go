package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Calmero107/volunteer/internal/apperr"
)

const minPasswordLength = 8

// HashPassword hashes a plaintext password with bcrypt after checking the
// minimum-length policy.
func HashPassword(password string) (string, error) {
	if len([]rune(password)) < minPasswordLength {
		return "", apperr.Newf(apperr.ErrValidation, "password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
