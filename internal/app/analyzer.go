package app

import (
	"context"
	"sort"

	"examprep-engine/internal/domain"
)

const (
	// DefaultHistoryWindow bounds how many recent results feed the analyzer.
	DefaultHistoryWindow = 20
	// masteryThreshold is the product-wide accuracy bar below which a topic
	// counts as weak. Dashboards and AI generation share this number.
	masteryThreshold = 0.90
	// minTopicSample excludes topics with too little history to judge.
	minTopicSample = 2
	// generalLabel substitutes for missing taxonomy fields.
	generalLabel = "General"
)

// PerformanceReport is the analyzer's output for one user and subject.
// Empty slices are valid steady states for new users, not errors.
type PerformanceReport struct {
	Subject        string
	WeakTopics     []domain.TopicPerformance
	WrongIDs       []string
	UnattemptedIDs []string
	// Attempted holds every question id seen anywhere in the history window;
	// the selector uses it to recognize never-attempted questions.
	Attempted map[string]struct{}
}

// Analyzer folds recent results into per-topic accuracy signals.
type Analyzer struct {
	results ResultStore
	window  int
}

func NewAnalyzer(results ResultStore, window int) *Analyzer {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Analyzer{results: results, window: window}
}

// Analyze reads the user's recent results and reports weak topics for the
// subject (worst accuracy first) plus the distinct wrong and unattempted
// question ids within that subject.
func (a *Analyzer) Analyze(ctx context.Context, userID, subject string) (PerformanceReport, error) {
	report := PerformanceReport{
		Subject:   subject,
		Attempted: make(map[string]struct{}),
	}

	history, err := a.results.Recent(ctx, userID, a.window)
	if err != nil {
		return PerformanceReport{}, err
	}

	byTopic := make(map[domain.TopicKey]*domain.TopicPerformance)
	wrong := make(map[string]struct{})
	unattempted := make(map[string]struct{})

	for _, result := range history {
		for _, ans := range result.Answers {
			report.Attempted[ans.QuestionID] = struct{}{}

			key := topicKeyFor(ans)
			perf, ok := byTopic[key]
			if !ok {
				perf = &domain.TopicPerformance{TopicKey: key}
				byTopic[key] = perf
			}
			perf.Total++
			switch ans.Status {
			case domain.StatusCorrect:
				perf.Correct++
			case domain.StatusIncorrect:
				perf.Incorrect++
				if ans.Subject == subject {
					wrong[ans.QuestionID] = struct{}{}
				}
			default:
				perf.Unattempted++
				if ans.Subject == subject {
					unattempted[ans.QuestionID] = struct{}{}
				}
			}
		}
	}

	for _, perf := range byTopic {
		perf.Accuracy = float64(perf.Correct) / float64(perf.Total)
		if subject != "" && perf.Subject != subject {
			continue
		}
		if perf.Total >= minTopicSample && perf.Accuracy < masteryThreshold {
			report.WeakTopics = append(report.WeakTopics, *perf)
		}
	}
	sort.Slice(report.WeakTopics, func(i, j int) bool {
		a, b := report.WeakTopics[i], report.WeakTopics[j]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy < b.Accuracy
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.TopicKey != b.TopicKey && lessTopicKey(a.TopicKey, b.TopicKey)
	})

	report.WrongIDs = sortedKeys(wrong)
	report.UnattemptedIDs = sortedKeys(unattempted)
	return report, nil
}

func topicKeyFor(ans domain.EvaluatedAnswer) domain.TopicKey {
	key := domain.TopicKey{Subject: ans.Subject, Chapter: ans.Chapter, Topic: ans.Topic}
	if key.Subject == "" {
		key.Subject = generalLabel
	}
	if key.Chapter == "" {
		key.Chapter = generalLabel
	}
	if key.Topic == "" {
		key.Topic = generalLabel
	}
	return key
}

func lessTopicKey(a, b domain.TopicKey) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Chapter != b.Chapter {
		return a.Chapter < b.Chapter
	}
	return a.Topic < b.Topic
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
