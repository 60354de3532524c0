package domain

import "time"

// ExamType identifies which national exam a question or test targets.
type ExamType string

const (
	ExamJEE  ExamType = "JEE"
	ExamNEET ExamType = "NEET"
)

// QuestionType discriminates how a question is answered and scored.
type QuestionType string

const (
	TypeSingle    QuestionType = "single"
	TypeMultiple  QuestionType = "multiple"
	TypeNumerical QuestionType = "numerical"
)

// Section is the JEE Main sub-section: A is negative-marked MCQ, B is
// non-negative numerical. NEET reuses the labels but marks both negatively.
type Section string

const (
	SectionA Section = "A"
	SectionB Section = "B"
)

// Difficulty orders questions for personalized tests. An empty value is
// treated as medium.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Rank maps difficulty to a sortable weight (easy < medium < hard).
func (d Difficulty) Rank() int {
	switch d {
	case Easy:
		return 0
	case Hard:
		return 2
	default:
		return 1
	}
}

// NumericalRange is an inclusive acceptance band for numerical answers.
type NumericalRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Question is a single bank entry. The correct answer is stored in exactly
// one canonical form per type: CorrectIndex for single, CorrectSet for
// multiple, CorrectValue for numerical. Legacy array-of-one encodings for
// single questions are accepted only at the normalizer boundary.
type Question struct {
	ID            string          `json:"id"`
	ExamType      ExamType        `json:"examType"`
	Subject       string          `json:"subject"`
	Chapter       string          `json:"chapter,omitempty"`
	Topic         string          `json:"topic,omitempty"`
	Type          QuestionType    `json:"questionType"`
	Section       Section         `json:"section,omitempty"`
	Text          string          `json:"text"`
	Options       []string        `json:"options,omitempty"`
	ImageURLs     []string        `json:"imageUrls,omitempty"`
	CorrectIndex  int             `json:"correctIndex,omitempty"`
	CorrectSet    []int           `json:"correctIndices,omitempty"`
	CorrectValue  float64         `json:"correctValue,omitempty"`
	Range         *NumericalRange `json:"numericalRange,omitempty"`
	Marks         int             `json:"marks,omitempty"`
	NegativeMarks int             `json:"negativeMarks,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Difficulty    Difficulty      `json:"difficulty,omitempty"`
}

// MarksOrDefault returns the positive marks for a correct answer (default 4).
func (q Question) MarksOrDefault() int {
	if q.Marks != 0 {
		return q.Marks
	}
	return 4
}

// NegativeOrDefault returns the penalty for a wrong answer (default -1).
// Callers must still gate on Negative() before applying it.
func (q Question) NegativeOrDefault() int {
	if q.NegativeMarks != 0 {
		return q.NegativeMarks
	}
	return -1
}

// Negative reports whether wrong answers to this question are penalized.
// NEET marks every question negatively; JEE penalizes section A only.
func (q Question) Negative() bool {
	if q.ExamType == ExamNEET {
		return true
	}
	return q.Section != SectionB
}

// CorrectAnswer returns the canonical correct answer as a display value.
func (q Question) CorrectAnswer() any {
	switch q.Type {
	case TypeMultiple:
		return q.CorrectSet
	case TypeNumerical:
		return q.CorrectValue
	default:
		return q.CorrectIndex
	}
}

// QuestionFilter narrows bank queries. Zero-valued fields are wildcards.
type QuestionFilter struct {
	ExamType ExamType
	Subject  string
	Chapter  string
	Topic    string
	Type     QuestionType
	Section  Section
}

// Matches reports whether q satisfies every non-zero constraint in f.
func (f QuestionFilter) Matches(q Question) bool {
	if f.ExamType != "" && q.ExamType != f.ExamType {
		return false
	}
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.Chapter != "" && q.Chapter != f.Chapter {
		return false
	}
	if f.Topic != "" && q.Topic != f.Topic {
		return false
	}
	if f.Type != "" && q.Type != f.Type {
		return false
	}
	if f.Section != "" && q.Section != f.Section {
		return false
	}
	return true
}

// TestKind tags the role an assembled test plays. One tagged type replaces
// the four parallel entities the product grew historically.
type TestKind string

const (
	KindPractice  TestKind = "practice"
	KindDemo      TestKind = "demo"
	KindNEETDemo  TestKind = "neet_demo"
	KindScheduled TestKind = "scheduled"
	KindAI        TestKind = "ai"
)

// SectionSplit holds the per-section question ids for one subject of a
// matrix-shaped (JEE Main) test.
type SectionSplit struct {
	SectionA []string `json:"sectionA"`
	SectionB []string `json:"sectionB"`
}

// AssembledTest is a frozen set of question references plus pattern metadata.
// Structure is populated for matrix patterns; QuestionIDs always carries the
// flat ordering used for submission.
type AssembledTest struct {
	ID          string                  `json:"id"`
	Kind        TestKind                `json:"kind"`
	ExamType    ExamType                `json:"examType"`
	Pattern     string                  `json:"pattern"`
	Duration    int                     `json:"duration"` // minutes
	TotalMarks  int                     `json:"totalMarks"`
	QuestionIDs []string                `json:"questionIds"`
	Structure   map[string]SectionSplit `json:"structure,omitempty"`
	Active      bool                    `json:"active"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// AnswerStatus is the terminal classification of one submitted answer.
type AnswerStatus string

const (
	StatusCorrect     AnswerStatus = "correct"
	StatusIncorrect   AnswerStatus = "incorrect"
	StatusUnattempted AnswerStatus = "unattempted"
)

// EvaluatedAnswer records the outcome for one question together with a
// snapshot of the question's display fields, so a Result stays readable even
// if the bank entry is edited later.
type EvaluatedAnswer struct {
	QuestionID    string       `json:"questionId"`
	UserAnswer    any          `json:"userAnswer,omitempty"` // normalized; nil when unattempted
	Status        AnswerStatus `json:"status"`
	MarksAwarded  int          `json:"marksAwarded"`
	QuestionText  string       `json:"questionText"`
	Options       []string     `json:"options,omitempty"`
	ImageURLs     []string     `json:"imageUrls,omitempty"`
	CorrectAnswer any          `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Subject       string       `json:"subject"`
	Chapter       string       `json:"chapter,omitempty"`
	Topic         string       `json:"topic,omitempty"`
}

// Result is the immutable outcome of one submission. Score and Percentage
// may be negative; the engine never clamps them.
type Result struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId,omitempty"` // empty for anonymous demo takers
	TestID      string            `json:"testId"`
	Score       int               `json:"score"`
	TotalMarks  int               `json:"totalMarks"`
	Percentage  float64           `json:"percentage"`
	Correct     int               `json:"correctAnswers"`
	Incorrect   int               `json:"incorrectAnswers"`
	Unattempted int               `json:"unattempted"`
	TimeTaken   int               `json:"timeTaken"` // seconds
	Answers     []EvaluatedAnswer `json:"answers"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// TopicKey identifies a performance bucket. Missing taxonomy fields fall
// back to "General" before keying.
type TopicKey struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
	Topic   string `json:"topic"`
}

// TopicPerformance accumulates a user's recent history for one topic.
// Invariant: Total == Correct + Incorrect + Unattempted.
type TopicPerformance struct {
	TopicKey
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Unattempted int     `json:"unattempted"`
	Total       int     `json:"total"`
	Accuracy    float64 `json:"accuracy"`
}
