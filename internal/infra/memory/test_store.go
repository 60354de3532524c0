package memory

import (
	"context"
	"sync"

	"examprep-engine/internal/domain"
)

type slotKey struct {
	kind     domain.TestKind
	examType domain.ExamType
}

// TestStore is an in-memory implementation of app.TestStore. One mutex
// covers both the id index and the active-slot index, so the conditional
// insert and the swap are atomic under concurrent callers.
type TestStore struct {
	mu     sync.Mutex
	byID   map[string]domain.AssembledTest
	active map[slotKey]string // slot -> active test id
}

func NewTestStore() *TestStore {
	return &TestStore{
		byID:   make(map[string]domain.AssembledTest),
		active: make(map[slotKey]string),
	}
}

func (s *TestStore) Get(_ context.Context, id string) (domain.AssembledTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return domain.AssembledTest{}, domain.ErrTestNotFound
	}
	return t, nil
}

func (s *TestStore) Save(_ context.Context, t domain.AssembledTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = t
	return nil
}

func (s *TestStore) FindActive(_ context.Context, kind domain.TestKind, examType domain.ExamType) (domain.AssembledTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findActiveLocked(kind, examType)
}

func (s *TestStore) CreateIfAbsent(_ context.Context, t domain.AssembledTest) (domain.AssembledTest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{kind: t.Kind, examType: t.ExamType}
	if existing, err := s.findActiveLocked(t.Kind, t.ExamType); err == nil {
		return existing, false, nil
	}

	t.Active = true
	s.byID[t.ID] = t
	s.active[key] = t.ID
	return t, true, nil
}

func (s *TestStore) SwapActive(_ context.Context, t domain.AssembledTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{kind: t.Kind, examType: t.ExamType}
	if oldID, ok := s.active[key]; ok {
		old := s.byID[oldID]
		old.Active = false
		s.byID[oldID] = old
	}

	t.Active = true
	s.byID[t.ID] = t
	s.active[key] = t.ID
	return nil
}

func (s *TestStore) findActiveLocked(kind domain.TestKind, examType domain.ExamType) (domain.AssembledTest, error) {
	id, ok := s.active[slotKey{kind: kind, examType: examType}]
	if !ok {
		return domain.AssembledTest{}, domain.ErrNoActiveTest
	}
	return s.byID[id], nil
}
