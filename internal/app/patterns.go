package app

import "examprep-engine/internal/domain"

// SubjectQuota declares how many questions of each section one subject
// contributes. Flat (non-matrix) patterns put the whole count in SectionA
// and leave SectionB zero.
type SubjectQuota struct {
	Subject  string
	SectionA int
	SectionB int
}

// Pattern declares the exact shape an assembled test must have. Validation
// after assembly compares against these fields; any mismatch fails the
// whole assembly.
type Pattern struct {
	Name        string
	ExamType    domain.ExamType
	Subjects    []SubjectQuota
	Matrix      bool // true: per-subject section A/B structure (JEE Main)
	SectionType domain.QuestionType
	SectionB    domain.QuestionType // question type for section B draws
	Duration    int                 // minutes
	TotalMarks  int
}

// TotalQuestions is the declared question count across subjects and sections.
func (p Pattern) TotalQuestions() int {
	total := 0
	for _, sq := range p.Subjects {
		total += sq.SectionA + sq.SectionB
	}
	return total
}

const (
	PatternJEEMain = "JEE Main"
	PatternNEET    = "NEET"
)

// patterns is the registry of supported exam shapes. Subjects iterate in
// declared order so draws stay deterministic with a seeded bank.
var patterns = map[string]Pattern{
	PatternJEEMain: {
		Name:     PatternJEEMain,
		ExamType: domain.ExamJEE,
		Subjects: []SubjectQuota{
			{Subject: "Physics", SectionA: 20, SectionB: 5},
			{Subject: "Chemistry", SectionA: 20, SectionB: 5},
			{Subject: "Mathematics", SectionA: 20, SectionB: 5},
		},
		Matrix:      true,
		SectionType: domain.TypeSingle,
		SectionB:    domain.TypeNumerical,
		Duration:    180,
		TotalMarks:  300,
	},
	PatternNEET: {
		Name:     PatternNEET,
		ExamType: domain.ExamNEET,
		Subjects: []SubjectQuota{
			{Subject: "Physics", SectionA: 45},
			{Subject: "Chemistry", SectionA: 45},
			{Subject: "Biology", SectionA: 90},
		},
		SectionType: domain.TypeSingle,
		Duration:    200,
		TotalMarks:  720,
	},
}

// PatternByName looks up a registered pattern.
func PatternByName(name string) (Pattern, error) {
	p, ok := patterns[name]
	if !ok {
		return Pattern{}, domain.ErrUnknownPattern
	}
	return p, nil
}

// demoPattern maps an exam flavor to the pattern and kind served from the
// active demo slot.
func demoPattern(examType domain.ExamType) (string, domain.TestKind) {
	if examType == domain.ExamNEET {
		return PatternNEET, domain.KindNEETDemo
	}
	return PatternJEEMain, domain.KindDemo
}
