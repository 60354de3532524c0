package app

import (
	"context"

	"examprep-engine/internal/domain"
)

// UsedSet accumulates question ids already placed in an assembly. It is
// threaded explicitly through every draw so assembly stays reentrant and
// testable; nothing here is shared across requests.
type UsedSet struct {
	ids map[string]struct{}
}

func NewUsedSet() *UsedSet {
	return &UsedSet{ids: make(map[string]struct{})}
}

func (u *UsedSet) Add(id string) { u.ids[id] = struct{}{} }

func (u *UsedSet) Has(id string) bool {
	_, ok := u.ids[id]
	return ok
}

func (u *UsedSet) Len() int { return len(u.ids) }

// Snapshot exposes the underlying set for repository exclude parameters.
// Callers must not mutate the returned map.
func (u *UsedSet) Snapshot() map[string]struct{} { return u.ids }

// Sampler draws questions for assemblies. Draws within one assembly must run
// sequentially: each depends on the used set accumulated by all prior draws.
type Sampler struct {
	repo QuestionRepository
}

func NewSampler(repo QuestionRepository) *Sampler {
	return &Sampler{repo: repo}
}

// Draw returns exactly n questions matching f, excluding everything in used.
// If the primary filter runs short, one fallback draw relaxes the section
// constraint for the remainder. A combined shortfall is a hard failure; no
// partial draw is ever returned.
func (s *Sampler) Draw(ctx context.Context, f domain.QuestionFilter, n int, used *UsedSet) ([]domain.Question, error) {
	if n <= 0 {
		return nil, nil
	}

	picked, err := s.repo.Sample(ctx, f, n, used.Snapshot())
	if err != nil {
		return nil, err
	}
	for _, q := range picked {
		used.Add(q.ID)
	}

	if missing := n - len(picked); missing > 0 && f.Section != "" {
		relaxed := f
		relaxed.Section = ""
		extra, err := s.repo.Sample(ctx, relaxed, missing, used.Snapshot())
		if err != nil {
			return nil, err
		}
		for _, q := range extra {
			used.Add(q.ID)
		}
		picked = append(picked, extra...)
	}

	if len(picked) < n {
		return nil, &domain.ShortfallError{
			Subject:   f.Subject,
			Section:   f.Section,
			Requested: n,
			Got:       len(picked),
		}
	}
	return picked, nil
}
