package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"examprep-engine/internal/domain"
)

// QuestionBank is an in-memory question repository (unit tests, demo mode).
// Sampling is uniform without replacement via a shuffled index permutation.
type QuestionBank struct {
	mu        sync.RWMutex
	rnd       *rand.Rand
	questions map[string]domain.Question
	order     []string // stable iteration order for deterministic seeded runs
}

func NewQuestionBank(questions ...domain.Question) *QuestionBank {
	b := &QuestionBank{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]domain.Question),
	}
	b.Add(questions...)
	return b
}

// NewSeededQuestionBank pins the sampling source for deterministic tests.
func NewSeededQuestionBank(seed int64, questions ...domain.Question) *QuestionBank {
	b := NewQuestionBank(questions...)
	b.rnd = rand.New(rand.NewSource(seed))
	return b
}

// Add inserts or replaces bank entries.
func (b *QuestionBank) Add(questions ...domain.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range questions {
		if _, exists := b.questions[q.ID]; !exists {
			b.order = append(b.order, q.ID)
		}
		b.questions[q.ID] = q
	}
}

// Len reports the number of stored questions.
func (b *QuestionBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

func (b *QuestionBank) Sample(_ context.Context, f domain.QuestionFilter, n int, exclude map[string]struct{}) ([]domain.Question, error) {
	if n <= 0 {
		return nil, nil
	}

	b.mu.RLock()
	candidates := make([]domain.Question, 0, len(b.order))
	for _, id := range b.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		q := b.questions[id]
		if f.Matches(q) {
			candidates = append(candidates, q)
		}
	}
	b.mu.RUnlock()

	b.mu.Lock()
	perm := b.rnd.Perm(len(candidates))
	b.mu.Unlock()

	if n > len(candidates) {
		n = len(candidates)
	}
	picked := make([]domain.Question, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, candidates[idx])
	}
	return picked, nil
}

func (b *QuestionBank) ByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := b.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
