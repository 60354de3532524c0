package app_test

import (
	"context"
	"fmt"
	"testing"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
	"examprep-engine/internal/infra/memory"
)

func newTestEngine(bank *memory.QuestionBank) (*app.Engine, *memory.TestStore, *memory.ResultStore) {
	tests := memory.NewTestStore()
	results := memory.NewResultStore()
	engine := app.NewEngineWithClock(bank, tests, results, 20, testClock(), sequentialIDs("id"))
	return engine, tests, results
}

func TestEngineSubmitPersistsResult(t *testing.T) {
	ctx := context.Background()
	bank := memory.NewSeededQuestionBank(3)
	questions := make([]string, 5)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("q%d", i+1)
		q := physicsQuestion(id, "Kinematics", "Vectors", domain.Medium)
		q.CorrectIndex = 1
		bank.Add(q)
		questions[i] = id
	}
	engine, tests, results := newTestEngine(bank)

	test := domain.AssembledTest{
		ID: "exam-1", Kind: domain.KindPractice, ExamType: domain.ExamJEE,
		Duration: 10, TotalMarks: 20, QuestionIDs: questions,
	}
	if err := tests.Save(ctx, test); err != nil {
		t.Fatalf("save test: %v", err)
	}

	result, err := engine.Submit(ctx, "exam-1", "u1", app.RawAnswers{
		"q1": "B", "q2": "A", "q4": "B", "q5": "C",
	}, 420)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Score != 6 || result.Percentage != 30.0 {
		t.Fatalf("expected 6 marks at 30%%, got %d at %v", result.Score, result.Percentage)
	}
	if result.TimeTaken != 420 {
		t.Fatalf("expected time taken 420s, got %d", result.TimeTaken)
	}
	if results.Count() != 1 {
		t.Fatalf("expected result persisted, store has %d", results.Count())
	}
}

func TestEngineResultSurvivesBankEdits(t *testing.T) {
	ctx := context.Background()
	bank := memory.NewSeededQuestionBank(3)
	q := physicsQuestion("q1", "Kinematics", "Vectors", domain.Medium)
	bank.Add(q)
	engine, tests, results := newTestEngine(bank)

	_ = tests.Save(ctx, domain.AssembledTest{ID: "exam-1", TotalMarks: 4, QuestionIDs: []string{"q1"}})
	if _, err := engine.Submit(ctx, "exam-1", "u1", app.RawAnswers{"q1": "A"}, 30); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// An admin edit to the bank must not rewrite history.
	q.Text = "rewritten"
	bank.Add(q)

	history, err := results.Recent(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if history[0].Answers[0].QuestionText != "q1" {
		t.Fatalf("stored snapshot changed after bank edit: %q", history[0].Answers[0].QuestionText)
	}
}

func TestEngineAIGenerationPipeline(t *testing.T) {
	ctx := context.Background()
	bank := memory.NewSeededQuestionBank(3)
	for i := 0; i < 12; i++ {
		bank.Add(physicsQuestion(fmt.Sprintf("new-%d", i), "Kinematics", "Vectors", domain.Medium))
	}
	for i := 0; i < 3; i++ {
		bank.Add(physicsQuestion(fmt.Sprintf("seen-%d", i), "Kinematics", "Vectors", domain.Easy))
	}
	engine, tests, results := newTestEngine(bank)

	// History: a weak Vectors topic with three wrong answers.
	var answers []domain.EvaluatedAnswer
	for i := 0; i < 3; i++ {
		answers = append(answers, domain.EvaluatedAnswer{
			QuestionID: fmt.Sprintf("seen-%d", i),
			Status:     domain.StatusIncorrect,
			Subject:    "Physics", Chapter: "Kinematics", Topic: "Vectors",
		})
	}
	_ = results.Save(ctx, domain.Result{ID: "r0", UserID: "u1", TestID: "t0", Answers: answers})

	test, questions, err := engine.GenerateAITest(ctx, "u1", domain.ExamJEE, "Physics", 8)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 8 || len(test.QuestionIDs) != 8 {
		t.Fatalf("expected 8 questions, got %d/%d", len(questions), len(test.QuestionIDs))
	}
	if test.Kind != domain.KindAI || test.TotalMarks != 32 || test.Duration != 16 {
		t.Fatalf("unexpected derived test fields: %+v", test)
	}

	// The wrong questions must be revisited ahead of extra topic fill.
	picked := map[string]bool{}
	for _, q := range questions {
		picked[q.ID] = true
	}
	for i := 0; i < 3; i++ {
		if !picked[fmt.Sprintf("seen-%d", i)] {
			t.Fatalf("previously wrong question seen-%d missing from AI test", i)
		}
	}

	// The generated test is persisted and retrievable.
	stored, err := tests.Get(ctx, test.ID)
	if err != nil {
		t.Fatalf("stored ai test: %v", err)
	}
	if len(stored.QuestionIDs) != 8 {
		t.Fatalf("stored test truncated: %d ids", len(stored.QuestionIDs))
	}
}
