package ledger

import (
	"context"
	"sync"
	"time"

	dom "agencydesk/pkg/domain"
)

// InMemoryStore keeps reveal entitlements in a mutex-guarded map of sets.
type InMemoryStore struct {
	mu      sync.RWMutex
	reveals map[dom.UserID]map[dom.ContactID]time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{reveals: make(map[dom.UserID]map[dom.ContactID]time.Time)}
}

func (s *InMemoryStore) Has(_ context.Context, userID dom.UserID, contactID dom.ContactID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.reveals[userID][contactID]
	return ok, nil
}

func (s *InMemoryStore) Record(_ context.Context, userID dom.UserID, contactID dom.ContactID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, ok := s.reveals[userID]
	if !ok {
		pairs = make(map[dom.ContactID]time.Time)
		s.reveals[userID] = pairs
	}
	if _, exists := pairs[contactID]; exists {
		return false, nil
	}
	pairs[contactID] = at
	return true, nil
}

func (s *InMemoryStore) Revealed(_ context.Context, userID dom.UserID, ids []dom.ContactID) (map[dom.ContactID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[dom.ContactID]struct{})
	pairs := s.reveals[userID]
	for _, id := range ids {
		if _, ok := pairs[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}
