package app

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"examprep-engine/internal/domain"
)

// RawAnswers is the client-submitted answer payload as decoded from JSON:
// values may be strings ("A", "3.5"), numbers, arrays of either, or nil.
// Keys are question ids, with zero-based positional indices ("0", "1", ...)
// accepted as a fallback for older clients.
type RawAnswers map[string]any

// defaultTolerance is the acceptance band for numerical answers when the
// question declares no explicit range.
const defaultTolerance = 0.01

// Evaluate scores a submission against the test's question set and returns a
// self-contained Result. Questions must follow test.QuestionIDs order.
// Malformed answers are classified Unattempted rather than failing the whole
// submission, and the running score is never clamped at zero.
func Evaluate(test domain.AssembledTest, questions []domain.Question, raw RawAnswers, userID string, timeTaken int, now time.Time, resultID string) domain.Result {
	result := domain.Result{
		ID:         resultID,
		UserID:     userID,
		TestID:     test.ID,
		TotalMarks: test.TotalMarks,
		TimeTaken:  timeTaken,
		Answers:    make([]domain.EvaluatedAnswer, 0, len(questions)),
		CreatedAt:  now,
	}

	for i, q := range questions {
		value, ok := raw[q.ID]
		if !ok {
			value, ok = raw[strconv.Itoa(i)]
		}

		ev := evaluateOne(q, value, ok)
		result.Score += ev.MarksAwarded
		switch ev.Status {
		case domain.StatusCorrect:
			result.Correct++
		case domain.StatusIncorrect:
			result.Incorrect++
		default:
			result.Unattempted++
		}
		result.Answers = append(result.Answers, ev)
	}

	if result.TotalMarks != 0 {
		result.Percentage = float64(result.Score) / float64(result.TotalMarks) * 100
	}
	return result
}

// evaluateOne runs the per-question state machine: attempted check, type
// normalization, correctness, marking. Display fields are snapshotted here
// so the Result survives later edits to the bank entry.
func evaluateOne(q domain.Question, value any, present bool) domain.EvaluatedAnswer {
	ev := domain.EvaluatedAnswer{
		QuestionID:    q.ID,
		Status:        domain.StatusUnattempted,
		QuestionText:  q.Text,
		Options:       append([]string(nil), q.Options...),
		ImageURLs:     append([]string(nil), q.ImageURLs...),
		CorrectAnswer: q.CorrectAnswer(),
		Explanation:   q.Explanation,
		Subject:       q.Subject,
		Chapter:       q.Chapter,
		Topic:         q.Topic,
	}

	// A missing key, nil, or empty string is unattempted. A zero (0 or "0")
	// is a real attempt; do not confuse the two.
	if !present || isBlank(value) {
		return ev
	}

	normalized, correct, ok := checkAnswer(q, value)
	if !ok {
		// Malformed answer: recover as unattempted so one bad value cannot
		// abort scoring of the rest of the submission.
		return ev
	}

	ev.UserAnswer = normalized
	if correct {
		ev.Status = domain.StatusCorrect
		ev.MarksAwarded = q.MarksOrDefault()
		return ev
	}

	ev.Status = domain.StatusIncorrect
	if q.Negative() {
		ev.MarksAwarded = q.NegativeOrDefault()
	}
	return ev
}

// checkAnswer normalizes value per question type and compares against the
// canonical correct answer. ok=false means the value could not be normalized.
func checkAnswer(q domain.Question, value any) (normalized any, correct bool, ok bool) {
	switch q.Type {
	case domain.TypeMultiple:
		set, ok := toIndexSet(value)
		if !ok {
			return nil, false, false
		}
		return setSlice(set), indexSetsEqual(set, q.CorrectSet), true

	case domain.TypeNumerical:
		v, ok := toFloat(value)
		if !ok {
			return nil, false, false
		}
		if q.Range != nil {
			return v, v >= q.Range.Min && v <= q.Range.Max, true
		}
		return v, math.Abs(v-q.CorrectValue) < defaultTolerance, true

	default: // single
		idx, ok := toIndex(value)
		if !ok {
			return nil, false, false
		}
		// Legacy bank rows sometimes encode the single correct index as a
		// one-element array; accept membership there too.
		if len(q.CorrectSet) > 0 {
			return idx, containsInt(q.CorrectSet, idx), true
		}
		return idx, idx == q.CorrectIndex, true
	}
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	s, isString := value.(string)
	return isString && s == ""
}

// toIndex converts an option reference to a zero-based index: a single
// letter maps via its distance from 'A', numeric strings parse, and JSON
// numbers pass through when integral.
func toIndex(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		if len(v) == 1 {
			c := v[0]
			if c >= 'A' && c <= 'Z' {
				return int(c - 'A'), true
			}
			if c >= 'a' && c <= 'z' {
				return int(c - 'a'), true
			}
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	case float64:
		n := int(v)
		if float64(n) != v || n < 0 {
			return 0, false
		}
		return n, true
	case int:
		if v < 0 {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toIndexSet accepts an array of option references (or a bare scalar, as a
// one-element set) and normalizes to a set of indices.
func toIndexSet(value any) (map[int]struct{}, bool) {
	items, isArray := value.([]any)
	if !isArray {
		items = []any{value}
	}
	set := make(map[int]struct{}, len(items))
	for _, item := range items {
		idx, ok := toIndex(item)
		if !ok {
			return nil, false
		}
		set[idx] = struct{}{}
	}
	return set, true
}

// indexSetsEqual requires identical membership, not list order.
func indexSetsEqual(got map[int]struct{}, want []int) bool {
	wantSet := make(map[int]struct{}, len(want))
	for _, idx := range want {
		wantSet[idx] = struct{}{}
	}
	if len(got) != len(wantSet) {
		return false
	}
	for idx := range got {
		if _, ok := wantSet[idx]; !ok {
			return false
		}
	}
	return true
}

func setSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out) // stable normalized form for snapshots
	return out
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
