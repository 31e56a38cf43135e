package event

import (
	"context"
	"sort"
	"sync"

	"github.com/Calmero107/volunteer/internal/apperr"
)

// InMemoryStore implements Store with in-process concurrency safety.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]*Event
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]*Event)}
}

func (s *InMemoryStore) Create(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

func (s *InMemoryStore) Find(ctx context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "event "+id)
	}
	cp := *ev
	return &cp, nil
}

func (s *InMemoryStore) Update(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; !ok {
		return apperr.New(apperr.ErrNotFound, "event "+ev.ID)
	}
	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return apperr.New(apperr.ErrNotFound, "event "+id)
	}
	delete(s.events, id)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, f Filter) ([]*Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Event
	for _, ev := range s.events {
		if f.Status != "" && ev.Status != f.Status {
			continue
		}
		if f.CreatorID != "" && ev.CreatorID != f.CreatorID {
			continue
		}
		matched = append(matched, ev)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartsAt.Before(matched[j].StartsAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	page := make([]*Event, 0, end-f.Offset)
	for _, ev := range matched[f.Offset:end] {
		cp := *ev
		page = append(page, &cp)
	}
	return page, total, nil
}
