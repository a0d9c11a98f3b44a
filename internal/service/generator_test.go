package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
)

func generatedElement(difficulty int) string {
	return fmt.Sprintf(`{
		"question": "Pick the honorific form.",
		"options": {"A": "먹다", "B": "드시다", "C": "먹었다", "D": "먹는다"},
		"correct_answer": "B",
		"explanation": "드시다 is the honorific of 먹다.",
		"difficulty": %d,
		"topic": "grammar",
		"question_type": "multiple-choice"
	}`, difficulty)
}

func baseGenerationRequest(count int, difficulty string) GenerationRequest {
	return GenerationRequest{
		Subject:       "korean",
		Topic:         "grammar",
		Count:         count,
		Difficulty:    difficulty,
		Reference:     "Honorific verbs replace plain verbs when the subject is respected.",
		QuestionTypes: []string{"multiple-choice", "fill-in-the-blank"},
	}
}

func TestGeneratorService_GeneratesBatch(t *testing.T) {
	llm := &stubCompleter{response: "[" + generatedElement(1) + "," + generatedElement(2) + "]"}
	generator := NewGeneratorService(llm, newTestLogger())

	got, err := generator.Generate(context.Background(), baseGenerationRequest(2, DifficultyEasy))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].CorrectAnswer != "B" {
		t.Errorf("expected correct answer B, got %q", got[0].CorrectAnswer)
	}

	// The prompt must carry the difficulty directive and the reference.
	if !strings.Contains(llm.lastReq.User, "EASY") {
		t.Error("expected the easy difficulty directive in the prompt")
	}
	if !strings.Contains(llm.lastReq.User, "Honorific verbs") {
		t.Error("expected the reference body in the prompt")
	}
}

func TestGeneratorService_DifficultyDirectives(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{DifficultyEasy, "EASY"},
		{DifficultyMedium, "MEDIUM"},
		{DifficultyHard, "HARD"},
		{DifficultyMixed, "MIXED"},
		{"", "MIXED"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			instruction, err := difficultyInstruction(tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(instruction, tt.want) {
				t.Errorf("expected directive to mention %s, got %q", tt.want, instruction)
			}
		})
	}

	if _, err := difficultyInstruction("brutal"); err == nil {
		t.Error("expected error for unknown difficulty mode")
	}
}

func TestGeneratorService_EnforcesCount(t *testing.T) {
	llm := &stubCompleter{response: "[" + generatedElement(1) + "," + generatedElement(2) + "," + generatedElement(1) + "]"}
	generator := NewGeneratorService(llm, newTestLogger())

	if _, err := generator.Generate(context.Background(), baseGenerationRequest(2, DifficultyEasy)); err == nil {
		t.Error("expected error when the batch size misses the target count")
	}
}

func TestGeneratorService_EnforcesDifficultyRange(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		difficulty int
		wantErr    bool
	}{
		{"easy in range", DifficultyEasy, 2, false},
		{"easy out of range", DifficultyEasy, 3, true},
		{"medium exact", DifficultyMedium, 3, false},
		{"medium out of range", DifficultyMedium, 4, true},
		{"hard in range", DifficultyHard, 5, false},
		{"hard out of range", DifficultyHard, 2, true},
		{"mixed accepts any", DifficultyMixed, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubCompleter{response: "[" + generatedElement(tt.difficulty) + "]"}
			generator := NewGeneratorService(llm, newTestLogger())

			_, err := generator.Generate(context.Background(), baseGenerationRequest(1, tt.mode))
			if tt.wantErr && err == nil {
				t.Error("expected a range violation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGeneratorService_AtomicBatch(t *testing.T) {
	// One invalid element fails the whole batch; no partial result.
	bad := strings.Replace(generatedElement(1), `"correct_answer": "B"`, `"correct_answer": "E"`, 1)
	llm := &stubCompleter{response: "[" + generatedElement(1) + "," + bad + "]"}
	generator := NewGeneratorService(llm, newTestLogger())

	got, err := generator.Generate(context.Background(), baseGenerationRequest(2, DifficultyEasy))
	if err == nil {
		t.Error("expected the batch to fail")
	}
	if got != nil {
		t.Errorf("expected no partial batch, got %d questions", len(got))
	}
}

func TestGeneratorService_RequiresReference(t *testing.T) {
	generator := NewGeneratorService(&stubCompleter{}, newTestLogger())

	req := baseGenerationRequest(1, DifficultyMixed)
	req.Reference = ""
	if _, err := generator.Generate(context.Background(), req); err == nil {
		t.Error("expected error without reference material")
	}
}

func TestGeneratedQuestion_ToDomain(t *testing.T) {
	g := GeneratedQuestion{
		Question:      "Pick the honorific form.",
		Options:       map[string]string{"A": "먹다", "B": "드시다", "C": "먹었다", "D": "먹는다"},
		CorrectAnswer: "B",
		Explanation:   "드시다 is the honorific of 먹다.",
		Difficulty:    2,
		Topic:         "grammar",
		QuestionType:  "multiple-choice",
	}

	q := g.ToDomain("korean", "qt-1", "test-model")

	if q.ID == "" {
		t.Error("expected a generated ID")
	}
	if q.Origin != domain.OriginGenerated {
		t.Errorf("expected origin generated, got %q", q.Origin)
	}
	if q.Answer != "드시다" {
		t.Errorf("expected the answer to carry the correct option text, got %q", q.Answer)
	}
	if q.Difficulty == nil || *q.Difficulty != 2 {
		t.Error("expected difficulty 2")
	}
	if q.QuestionTypeID != "qt-1" {
		t.Errorf("expected resolved type ID, got %q", q.QuestionTypeID)
	}
	if len(q.Options) != 4 || !strings.HasPrefix(q.Options[0], "A.") {
		t.Errorf("expected labeled options in A-D order, got %v", q.Options)
	}
	if q.Metadata["generation_model"] != "test-model" {
		t.Error("expected the generation model in metadata")
	}
}
