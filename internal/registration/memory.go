package registration

import (
	"context"
	"sort"
	"sync"

	"github.com/Calmero107/volunteer/internal/apperr"
)

// InMemoryStore implements Store with in-process concurrency safety.
type InMemoryStore struct {
	mu   sync.RWMutex
	regs map[string]*Registration
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{regs: make(map[string]*Registration)}
}

func (s *InMemoryStore) Create(ctx context.Context, reg *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *reg
	s.regs[reg.ID] = &cp
	return nil
}

func (s *InMemoryStore) Find(ctx context.Context, id string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "registration "+id)
	}
	cp := *reg
	return &cp, nil
}

func (s *InMemoryStore) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reg := range s.regs {
		if reg.UserID == userID && reg.EventID == eventID && reg.Blocks() {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "no registration")
}

func (s *InMemoryStore) ListByEvent(ctx context.Context, eventID string, f Filter) ([]*Registration, int, error) {
	return s.list(func(r *Registration) bool { return r.EventID == eventID }, f)
}

func (s *InMemoryStore) ListByUser(ctx context.Context, userID string, f Filter) ([]*Registration, int, error) {
	return s.list(func(r *Registration) bool { return r.UserID == userID }, f)
}

func (s *InMemoryStore) list(match func(*Registration) bool, f Filter) ([]*Registration, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Registration
	for _, reg := range s.regs {
		if !match(reg) {
			continue
		}
		if f.Status != "" && reg.Status != f.Status {
			continue
		}
		matched = append(matched, reg)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	page := make([]*Registration, 0, end-f.Offset)
	for _, reg := range matched[f.Offset:end] {
		cp := *reg
		page = append(page, &cp)
	}
	return page, total, nil
}

func (s *InMemoryStore) ListApprovedByUser(ctx context.Context, userID string) ([]*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Registration
	for _, reg := range s.regs {
		if reg.UserID == userID && reg.Status == StatusApproved {
			cp := *reg
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *InMemoryStore) CountApprovedByEvent(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.Status == StatusApproved {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Update(ctx context.Context, reg *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[reg.ID]; !ok {
		return apperr.New(apperr.ErrNotFound, "registration "+reg.ID)
	}
	cp := *reg
	s.regs[reg.ID] = &cp
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[id]; !ok {
		return apperr.New(apperr.ErrNotFound, "registration "+id)
	}
	delete(s.regs, id)
	return nil
}

func (s *InMemoryStore) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, reg := range s.regs {
		if reg.EventID == eventID {
			delete(s.regs, id)
			n++
		}
	}
	return n, nil
}
