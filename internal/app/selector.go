package app

import (
	"context"
	"sort"
	"time"

	"examprep-engine/internal/domain"
)

const (
	// firstPassPerTopic caps the new questions one weak topic contributes
	// before every weak topic has had a turn.
	firstPassPerTopic = 3
	// secondPassPerTopic is the per-topic cap once prior-wrong and
	// prior-unattempted questions are exhausted.
	secondPassPerTopic = 5
	// maxAIDuration caps a generated test's duration in minutes.
	maxAIDuration = 60
)

// Selector builds personalized question sets from performance signals using
// five strict priority tiers.
type Selector struct {
	repo QuestionRepository
}

func NewSelector(repo QuestionRepository) *Selector {
	return &Selector{repo: repo}
}

// SelectPriority returns min(n, available) distinct questions for the
// subject, filling tiers in order: new questions from weak topics, prior
// wrong, prior unattempted, a deeper weak-topic pass, then subject filler.
// The final set is sorted once by difficulty ascending. Zero candidates is
// domain.ErrNoCandidates.
func (s *Selector) SelectPriority(ctx context.Context, report PerformanceReport, examType domain.ExamType, subject string, n int) ([]domain.Question, error) {
	if n <= 0 {
		return nil, domain.ErrNoCandidates
	}

	acc := newPickAccumulator(n, report.Attempted)

	// Tier 1: new questions from weak topics, weakest first.
	if err := s.fillFromWeakTopics(ctx, acc, report.WeakTopics, examType, subject, firstPassPerTopic); err != nil {
		return nil, err
	}

	// Tier 2: the exact questions previously answered wrong.
	if err := s.fillFromIDs(ctx, acc, report.WrongIDs, examType, subject); err != nil {
		return nil, err
	}

	// Tier 3: the exact questions previously left blank.
	if err := s.fillFromIDs(ctx, acc, report.UnattemptedIDs, examType, subject); err != nil {
		return nil, err
	}

	// Tier 4: second weak-topic pass with a higher per-topic cap.
	if err := s.fillFromWeakTopics(ctx, acc, report.WeakTopics, examType, subject, secondPassPerTopic); err != nil {
		return nil, err
	}

	// Tier 5: any remaining subject questions as filler. Unlike the new-
	// question tiers, previously attempted questions are fair game here.
	if acc.remaining() > 0 {
		filler, err := s.repo.Sample(ctx, domain.QuestionFilter{ExamType: examType, Subject: subject}, acc.remaining(), acc.pickedIDs)
		if err != nil {
			return nil, err
		}
		for _, q := range filler {
			acc.add(q)
		}
	}

	if len(acc.picked) == 0 {
		return nil, domain.ErrNoCandidates
	}

	// One reordering at the end, never per tier.
	sort.SliceStable(acc.picked, func(i, j int) bool {
		return acc.picked[i].Difficulty.Rank() < acc.picked[j].Difficulty.Rank()
	})
	return acc.picked, nil
}

// BuildAITest wraps a selected question set in an assembled test with the
// derived duration and marks for personalized tests.
func BuildAITest(id string, examType domain.ExamType, questions []domain.Question, createdAt time.Time) domain.AssembledTest {
	count := len(questions)
	duration := 2 * count
	if duration > maxAIDuration {
		duration = maxAIDuration
	}
	return domain.AssembledTest{
		ID:          id,
		Kind:        domain.KindAI,
		ExamType:    examType,
		Pattern:     "AI",
		Duration:    duration,
		TotalMarks:  count * 4,
		QuestionIDs: questionIDs(questions),
		CreatedAt:   createdAt,
	}
}

func (s *Selector) fillFromWeakTopics(ctx context.Context, acc *pickAccumulator, topics []domain.TopicPerformance, examType domain.ExamType, subject string, perTopic int) error {
	for _, topic := range topics {
		if acc.remaining() == 0 {
			return nil
		}
		if topic.Subject != subject {
			continue
		}
		want := perTopic
		if r := acc.remaining(); want > r {
			want = r
		}
		candidates, err := s.repo.Sample(ctx, filterForTopic(examType, topic.TopicKey), want, acc.seen())
		if err != nil {
			return err
		}
		for _, q := range candidates {
			acc.add(q)
		}
	}
	return nil
}

func (s *Selector) fillFromIDs(ctx context.Context, acc *pickAccumulator, ids []string, examType domain.ExamType, subject string) error {
	if acc.remaining() == 0 || len(ids) == 0 {
		return nil
	}
	questions, err := s.repo.ByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if acc.remaining() == 0 {
			return nil
		}
		if q.Subject != subject || (examType != "" && q.ExamType != examType) {
			continue
		}
		// Revisiting history is the point of these tiers; only dedupe applies.
		acc.add(q)
	}
	return nil
}

// filterForTopic turns a topic key back into a bank filter; "General"
// placeholders widen back to wildcards.
func filterForTopic(examType domain.ExamType, key domain.TopicKey) domain.QuestionFilter {
	f := domain.QuestionFilter{ExamType: examType, Subject: key.Subject}
	if key.Chapter != generalLabel {
		f.Chapter = key.Chapter
	}
	if key.Topic != generalLabel {
		f.Topic = key.Topic
	}
	return f
}

// pickAccumulator tracks the growing selection plus an exclusion set that
// covers both picked ids and (for the new-question tiers) prior attempts.
type pickAccumulator struct {
	quota     int
	picked    []domain.Question
	pickedIDs map[string]struct{}
	exclude   map[string]struct{}
}

func newPickAccumulator(quota int, attempted map[string]struct{}) *pickAccumulator {
	acc := &pickAccumulator{
		quota:     quota,
		pickedIDs: make(map[string]struct{}),
		exclude:   make(map[string]struct{}, len(attempted)),
	}
	for id := range attempted {
		acc.exclude[id] = struct{}{}
	}
	return acc
}

func (a *pickAccumulator) remaining() int { return a.quota - len(a.picked) }

// seen is the exclusion set for new-question draws: everything attempted
// plus everything already picked.
func (a *pickAccumulator) seen() map[string]struct{} { return a.exclude }

func (a *pickAccumulator) add(q domain.Question) {
	if _, dup := a.pickedIDs[q.ID]; dup || a.remaining() == 0 {
		return
	}
	a.picked = append(a.picked, q)
	a.pickedIDs[q.ID] = struct{}{}
	a.exclude[q.ID] = struct{}{}
}
