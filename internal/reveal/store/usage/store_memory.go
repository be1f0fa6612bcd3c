package usage

import (
	"context"
	"sync"

	"agencydesk/internal/reveal/models"
	dom "agencydesk/pkg/domain"
)

// InMemoryStore keeps usage counters in a mutex-guarded map. Suitable for
// development and tests; production deployments use the PostgreSQL store.
type InMemoryStore struct {
	mu    sync.RWMutex
	usage map[dom.UserID]*models.Usage
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{usage: make(map[dom.UserID]*models.Usage)}
}

func (s *InMemoryStore) Get(_ context.Context, userID dom.UserID) (*models.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.usage[userID]
	if !exists {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) IncrementIfUnder(_ context.Context, userID dom.UserID, day models.Day, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usage[userID]
	if !exists {
		u = &models.Usage{UserID: userID, Count: 0, WindowDate: day}
		s.usage[userID] = u
	}

	if u.WindowDate != day {
		u.Count = 0
		u.WindowDate = day
	}

	if u.Count >= limit {
		return u.Count, false, nil
	}

	u.Count++
	return u.Count, true, nil
}
