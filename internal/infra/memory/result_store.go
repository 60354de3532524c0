package memory

import (
	"context"
	"sync"

	"examprep-engine/internal/domain"
)

// ResultStore keeps submission results per user, append-only.
type ResultStore struct {
	mu      sync.RWMutex
	byUser  map[string][]domain.Result
	allSeen int
}

func NewResultStore() *ResultStore {
	return &ResultStore{byUser: make(map[string][]domain.Result)}
}

func (s *ResultStore) Save(_ context.Context, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[r.UserID] = append(s.byUser[r.UserID], r)
	s.allSeen++
	return nil
}

// Recent returns up to limit results for the user, newest first.
func (s *ResultStore) Recent(_ context.Context, userID string, limit int) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byUser[userID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	out := make([]domain.Result, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

// Count reports how many results have ever been saved.
func (s *ResultStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allSeen
}
