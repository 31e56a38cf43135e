package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/Calmero107/volunteer/internal/apperr"
)

// Admin operations on accounts. All of them require the admin role; admin
// accounts themselves cannot be locked or deactivated.

// GetUser returns a user by id for an admin actor.
func (s *Service) GetUser(ctx context.Context, actor Actor, userID string) (*User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "admin role required")
	}
	return s.users.Find(ctx, userID)
}

// LockUser blocks the user from logging in.
func (s *Service) LockUser(ctx context.Context, actor Actor, userID string) (*User, error) {
	return s.setAccountFlag(ctx, actor, userID, func(u *User) error {
		if u.Role == RoleAdmin {
			return apperr.New(apperr.ErrBadRequest, "admin accounts cannot be locked")
		}
		u.Locked = true
		return nil
	}, "user locked")
}

// UnlockUser lifts a lock.
func (s *Service) UnlockUser(ctx context.Context, actor Actor, userID string) (*User, error) {
	return s.setAccountFlag(ctx, actor, userID, func(u *User) error {
		u.Locked = false
		return nil
	}, "user unlocked")
}

// DeactivateUser disables the account.
func (s *Service) DeactivateUser(ctx context.Context, actor Actor, userID string) (*User, error) {
	return s.setAccountFlag(ctx, actor, userID, func(u *User) error {
		if u.Role == RoleAdmin {
			return apperr.New(apperr.ErrBadRequest, "admin accounts cannot be deactivated")
		}
		u.Active = false
		return nil
	}, "user deactivated")
}

// ActivateUser re-enables the account.
func (s *Service) ActivateUser(ctx context.Context, actor Actor, userID string) (*User, error) {
	return s.setAccountFlag(ctx, actor, userID, func(u *User) error {
		u.Active = true
		return nil
	}, "user activated")
}

func (s *Service) setAccountFlag(ctx context.Context, actor Actor, userID string, mutate func(*User) error, msg string) (*User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "admin role required")
	}
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(user); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info(msg, zap.String("user_id", user.ID), zap.String("admin_id", actor.ID))
	return user, nil
}
