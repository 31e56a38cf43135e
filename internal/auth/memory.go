package auth

import (
	"context"
	"sync"
	"time"

	"github.com/Calmero107/volunteer/internal/apperr"
)

// InMemoryIdentityStore implements IdentityStore with in-process
// concurrency safety. Used for local development and tests.
type InMemoryIdentityStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ IdentityStore = (*InMemoryIdentityStore)(nil)

// NewInMemoryIdentityStore creates an empty store.
func NewInMemoryIdentityStore() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{users: make(map[string]*User)}
}

func (s *InMemoryIdentityStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.New(apperr.ErrConflict, "email already exists")
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryIdentityStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "user "+id)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryIdentityStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "user "+email)
}

func (s *InMemoryIdentityStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryIdentityStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return apperr.New(apperr.ErrNotFound, "user "+u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// InMemoryRefreshTokenStore implements RefreshTokenStore in process.
type InMemoryRefreshTokenStore struct {
	mu     sync.RWMutex
	byID   map[string]*RefreshToken
	byHash map[string]string // hash -> id
}

var _ RefreshTokenStore = (*InMemoryRefreshTokenStore)(nil)

// NewInMemoryRefreshTokenStore creates an empty store.
func NewInMemoryRefreshTokenStore() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{
		byID:   make(map[string]*RefreshToken),
		byHash: make(map[string]string),
	}
}

func (s *InMemoryRefreshTokenStore) Save(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.byID[tok.ID] = &cp
	s.byHash[tok.TokenHash] = tok.ID
	return nil
}

func (s *InMemoryRefreshTokenStore) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "refresh token")
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryRefreshTokenStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
	return nil
}

func (s *InMemoryRefreshTokenStore) DeleteByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tok := range s.byID {
		if tok.UserID == userID {
			s.deleteLocked(id)
		}
	}
	return nil
}

func (s *InMemoryRefreshTokenStore) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byID[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "refresh token "+id)
	}
	tok.Revoked = true
	return nil
}

func (s *InMemoryRefreshTokenStore) DeleteExpiredAndRevoked(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, tok := range s.byID {
		if tok.Revoked || now.After(tok.ExpiresAt) {
			s.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryRefreshTokenStore) deleteLocked(id string) {
	if tok, ok := s.byID[id]; ok {
		delete(s.byHash, tok.TokenHash)
		delete(s.byID, id)
	}
}
