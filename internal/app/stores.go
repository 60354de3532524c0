package app

import (
	"context"

	"examprep-engine/internal/domain"
)

// QuestionRepository abstracts the question bank (in-memory, Postgres, etc).
type QuestionRepository interface {
	// Sample returns up to n questions matching f, drawn uniformly at random,
	// never returning an id present in exclude. Fewer than n results is not
	// an error at this layer; shortfall policy lives in the Sampler.
	Sample(ctx context.Context, f domain.QuestionFilter, n int, exclude map[string]struct{}) ([]domain.Question, error)
	// ByIDs fetches questions by id. Missing ids are silently skipped; order
	// of the returned slice is unspecified.
	ByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// TestStore persists assembled tests and owns the active-singleton slot
// per (kind, examType).
type TestStore interface {
	Get(ctx context.Context, id string) (domain.AssembledTest, error)
	Save(ctx context.Context, t domain.AssembledTest) error
	// FindActive returns the active singleton for the slot, or
	// domain.ErrNoActiveTest.
	FindActive(ctx context.Context, kind domain.TestKind, examType domain.ExamType) (domain.AssembledTest, error)
	// CreateIfAbsent atomically installs t as the slot's active singleton.
	// If another test already holds the slot, the existing one is returned
	// with created=false; the caller adopts it instead of erroring.
	CreateIfAbsent(ctx context.Context, t domain.AssembledTest) (winner domain.AssembledTest, created bool, err error)
	// SwapActive atomically replaces the slot's active singleton with t.
	// The previous holder, if any, is deactivated in the same step.
	SwapActive(ctx context.Context, t domain.AssembledTest) error
}

// ResultStore persists submission outcomes and serves the analyzer's
// recent-history reads.
type ResultStore interface {
	Save(ctx context.Context, r domain.Result) error
	// Recent returns up to limit results for the user, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]domain.Result, error)
}
