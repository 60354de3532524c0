package app

import (
	"context"
	"fmt"
	"time"

	"examprep-engine/internal/domain"
)

// Engine is the façade the transport layer talks to. It wires the sampler,
// assembler, scorer, analyzer and selector over the three store interfaces;
// everything outside (auth, payments, uploads) stays outside.
type Engine struct {
	questions QuestionRepository
	tests     TestStore
	results   ResultStore
	assembler *Assembler
	analyzer  *Analyzer
	selector  *Selector
	clock     func() time.Time
	newID     func() string
}

func NewEngine(questions QuestionRepository, tests TestStore, results ResultStore, historyWindow int) *Engine {
	return &Engine{
		questions: questions,
		tests:     tests,
		results:   results,
		assembler: NewAssembler(questions, tests),
		analyzer:  NewAnalyzer(results, historyWindow),
		selector:  NewSelector(questions),
		clock:     time.Now,
		newID:     randomID,
	}
}

// NewEngineWithClock is test-only for deterministic timestamps and ids.
func NewEngineWithClock(questions QuestionRepository, tests TestStore, results ResultStore, historyWindow int, now func() time.Time, newID func() string) *Engine {
	e := NewEngine(questions, tests, results, historyWindow)
	e.clock = now
	e.newID = newID
	e.assembler = NewAssemblerWithClock(questions, tests, now, newID)
	return e
}

// Assemble builds and persists a test for the named pattern.
func (e *Engine) Assemble(ctx context.Context, patternName string, kind domain.TestKind) (domain.AssembledTest, error) {
	test, err := e.assembler.Assemble(ctx, patternName, kind)
	if err != nil {
		return domain.AssembledTest{}, err
	}
	if err := e.tests.Save(ctx, test); err != nil {
		return domain.AssembledTest{}, fmt.Errorf("save assembled test: %w", err)
	}
	return test, nil
}

// ActiveDemo returns the active demo singleton for the exam flavor,
// assembling one atomically if the slot is empty.
func (e *Engine) ActiveDemo(ctx context.Context, examType domain.ExamType) (domain.AssembledTest, error) {
	return e.assembler.GetOrCreateActive(ctx, examType)
}

// RegenerateDemo rebuilds the demo singleton via stage-validate-swap.
func (e *Engine) RegenerateDemo(ctx context.Context, examType domain.ExamType) (domain.AssembledTest, error) {
	return e.assembler.Regenerate(ctx, examType)
}

// Submit scores a raw answer payload against the referenced test and
// persists the resulting record. Malformed answers degrade to unattempted;
// the submission as a whole never fails on bad values.
func (e *Engine) Submit(ctx context.Context, testID, userID string, raw RawAnswers, timeTaken int) (domain.Result, error) {
	test, err := e.tests.Get(ctx, testID)
	if err != nil {
		return domain.Result{}, err
	}

	questions, err := e.questionsInOrder(ctx, test.QuestionIDs)
	if err != nil {
		return domain.Result{}, err
	}

	result := Evaluate(test, questions, raw, userID, timeTaken, e.clock(), e.newID())
	if err := e.results.Save(ctx, result); err != nil {
		return domain.Result{}, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

// AnalyzePerformance reports weak topics and revisitable question ids for
// one user and subject.
func (e *Engine) AnalyzePerformance(ctx context.Context, userID, subject string) (PerformanceReport, error) {
	return e.analyzer.Analyze(ctx, userID, subject)
}

// GenerateAITest runs the full personalization pipeline: analyze history,
// select by priority tier, wrap in a test, persist.
func (e *Engine) GenerateAITest(ctx context.Context, userID string, examType domain.ExamType, subject string, count int) (domain.AssembledTest, []domain.Question, error) {
	report, err := e.analyzer.Analyze(ctx, userID, subject)
	if err != nil {
		return domain.AssembledTest{}, nil, err
	}

	selected, err := e.selector.SelectPriority(ctx, report, examType, subject, count)
	if err != nil {
		return domain.AssembledTest{}, nil, err
	}

	test := BuildAITest(e.newID(), examType, selected, e.clock())
	if err := e.tests.Save(ctx, test); err != nil {
		return domain.AssembledTest{}, nil, fmt.Errorf("save ai test: %w", err)
	}
	return test, selected, nil
}

// Test fetches a stored test by id.
func (e *Engine) Test(ctx context.Context, id string) (domain.AssembledTest, error) {
	return e.tests.Get(ctx, id)
}

// questionsInOrder resolves ids to questions preserving test order, which
// the scorer needs for positional-fallback answer keys.
func (e *Engine) questionsInOrder(ctx context.Context, ids []string) ([]domain.Question, error) {
	fetched, err := e.questions.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(fetched))
	for _, q := range fetched {
		byID[q.ID] = q
	}
	ordered := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, id)
		}
		ordered = append(ordered, q)
	}
	return ordered, nil
}
