package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"examprep-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Assembler composes sampler draws into pattern-shaped tests and owns the
// active-singleton lifecycle for demo slots.
type Assembler struct {
	sampler *Sampler
	tests   TestStore
	sf      singleflight.Group
	clock   func() time.Time
	newID   func() string
}

func NewAssembler(repo QuestionRepository, tests TestStore) *Assembler {
	return &Assembler{
		sampler: NewSampler(repo),
		tests:   tests,
		clock:   time.Now,
		newID:   randomID,
	}
}

// NewAssemblerWithClock is test-only for deterministic timestamps and ids.
func NewAssemblerWithClock(repo QuestionRepository, tests TestStore, now func() time.Time, newID func() string) *Assembler {
	a := NewAssembler(repo, tests)
	a.clock = now
	a.newID = newID
	return a
}

// Assemble draws a complete test for the named pattern. Draws run strictly
// sequentially over one used-id set, so no question appears twice anywhere
// in the result. Shortfall anywhere fails the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, patternName string, kind domain.TestKind) (domain.AssembledTest, error) {
	p, err := PatternByName(patternName)
	if err != nil {
		return domain.AssembledTest{}, err
	}

	test := domain.AssembledTest{
		ID:         a.newID(),
		Kind:       kind,
		ExamType:   p.ExamType,
		Pattern:    p.Name,
		Duration:   p.Duration,
		TotalMarks: p.TotalMarks,
		CreatedAt:  a.clock(),
	}
	if p.Matrix {
		test.Structure = make(map[string]domain.SectionSplit, len(p.Subjects))
	}

	used := NewUsedSet()
	for _, sq := range p.Subjects {
		filterA := domain.QuestionFilter{
			ExamType: p.ExamType,
			Subject:  sq.Subject,
			Type:     p.SectionType,
		}
		if p.Matrix {
			filterA.Section = domain.SectionA
		}
		drawnA, err := a.sampler.Draw(ctx, filterA, sq.SectionA, used)
		if err != nil {
			return domain.AssembledTest{}, err
		}

		var drawnB []domain.Question
		if sq.SectionB > 0 {
			filterB := domain.QuestionFilter{
				ExamType: p.ExamType,
				Subject:  sq.Subject,
				Type:     p.SectionB,
				Section:  domain.SectionB,
			}
			drawnB, err = a.sampler.Draw(ctx, filterB, sq.SectionB, used)
			if err != nil {
				return domain.AssembledTest{}, err
			}
		}

		if p.Matrix {
			test.Structure[sq.Subject] = domain.SectionSplit{
				SectionA: questionIDs(drawnA),
				SectionB: questionIDs(drawnB),
			}
		}
		test.QuestionIDs = append(test.QuestionIDs, questionIDs(drawnA)...)
		test.QuestionIDs = append(test.QuestionIDs, questionIDs(drawnB)...)
	}

	if err := validateAgainstPattern(test, p); err != nil {
		return domain.AssembledTest{}, err
	}
	return test, nil
}

// GetOrCreateActive returns the active demo singleton for the exam flavor,
// assembling one if the slot is empty. Concurrent first requests are
// collapsed in-process by singleflight; across processes the store's
// conditional insert decides a single winner and losers adopt its test.
func (a *Assembler) GetOrCreateActive(ctx context.Context, examType domain.ExamType) (domain.AssembledTest, error) {
	patternName, kind := demoPattern(examType)

	existing, err := a.tests.FindActive(ctx, kind, examType)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNoActiveTest) {
		return domain.AssembledTest{}, err
	}

	key := string(kind) + ":" + string(examType)
	v, err, _ := a.sf.Do(key, func() (interface{}, error) {
		if t, err := a.tests.FindActive(ctx, kind, examType); err == nil {
			return t, nil
		}
		assembled, err := a.Assemble(ctx, patternName, kind)
		if err != nil {
			return nil, err
		}
		assembled.Active = true
		winner, _, err := a.tests.CreateIfAbsent(ctx, assembled)
		if err != nil {
			return nil, err
		}
		return winner, nil
	})
	if err != nil {
		return domain.AssembledTest{}, err
	}
	return v.(domain.AssembledTest), nil
}

// Regenerate rebuilds the active demo singleton. The fresh test is assembled
// and validated as a staging copy first; only then is the active pointer
// swapped, so a shortfall never leaves the slot empty.
func (a *Assembler) Regenerate(ctx context.Context, examType domain.ExamType) (domain.AssembledTest, error) {
	patternName, kind := demoPattern(examType)

	staged, err := a.Assemble(ctx, patternName, kind)
	if err != nil {
		return domain.AssembledTest{}, err
	}
	staged.Active = true
	if err := a.tests.SwapActive(ctx, staged); err != nil {
		return domain.AssembledTest{}, err
	}
	return staged, nil
}

func validateAgainstPattern(test domain.AssembledTest, p Pattern) error {
	seen := make(map[string]struct{}, len(test.QuestionIDs))
	for _, id := range test.QuestionIDs {
		if _, dup := seen[id]; dup {
			return &domain.PatternMismatchError{Pattern: p.Name, Detail: "duplicate question " + id}
		}
		seen[id] = struct{}{}
	}
	if got, want := len(test.QuestionIDs), p.TotalQuestions(); got != want {
		return &domain.PatternMismatchError{Pattern: p.Name, Detail: fmt.Sprintf("question count %d, want %d", got, want)}
	}
	if p.Matrix {
		for _, sq := range p.Subjects {
			split, ok := test.Structure[sq.Subject]
			if !ok {
				return &domain.PatternMismatchError{Pattern: p.Name, Detail: "missing subject " + sq.Subject}
			}
			if len(split.SectionA) != sq.SectionA || len(split.SectionB) != sq.SectionB {
				return &domain.PatternMismatchError{
					Pattern: p.Name,
					Detail: fmt.Sprintf("%s sections %d/%d, want %d/%d",
						sq.Subject, len(split.SectionA), len(split.SectionB), sq.SectionA, sq.SectionB),
				}
			}
		}
	}
	if test.Duration != p.Duration {
		return &domain.PatternMismatchError{Pattern: p.Name, Detail: fmt.Sprintf("duration %d, want %d", test.Duration, p.Duration)}
	}
	if test.TotalMarks != p.TotalMarks {
		return &domain.PatternMismatchError{Pattern: p.Name, Detail: fmt.Sprintf("total marks %d, want %d", test.TotalMarks, p.TotalMarks)}
	}
	return nil
}

func questionIDs(qs []domain.Question) []string {
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}

func randomID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
