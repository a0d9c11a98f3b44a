package report

import (
	"os"
	"strings"
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestRender(t *testing.T) {
	questions := []domain.Question{
		{
			Question:       "Which particle completes the sentence?",
			Answer:         "eun",
			Explanation:    "Topic particle after a consonant.",
			Topic:          "grammar",
			QuestionTypeID: "qt-1",
			Difficulty:     intPtr(2),
			Origin:         domain.OriginExtracted,
			Options:        domain.StringArray{"A. eun", "B. neun"},
		},
		{
			Question:       "Translate the idiom.",
			Topic:          "vocabulary",
			QuestionTypeID: "qt-2",
			Origin:         domain.OriginGenerated,
		},
	}

	text := Render("Extraction review (korean)", questions)

	if !strings.Contains(text, "Extraction review (korean)") {
		t.Error("expected the title in the report")
	}
	if !strings.Contains(text, "Questions: 2") {
		t.Error("expected the question count in the header")
	}
	if !strings.Contains(text, "[1] Which particle completes the sentence?") {
		t.Error("expected the first question numbered")
	}
	if !strings.Contains(text, "    A. eun") {
		t.Error("expected indented options")
	}
	if !strings.Contains(text, "Difficulty: 2") {
		t.Error("expected the explicit difficulty")
	}
	if !strings.Contains(text, "Difficulty: unknown") {
		t.Error("expected nil difficulty rendered as unknown")
	}
	if !strings.Contains(text, "Origin: generated") {
		t.Error("expected the origin of the second question")
	}
}

func TestWriter_WriteQuestions(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	path, err := writer.WriteQuestions("extract", "Review", []domain.Question{
		{Question: "q", Topic: "t", QuestionTypeID: "qt"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(path, dir) {
		t.Errorf("report written outside the target directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(data), "Review") {
		t.Error("expected the report title in the file")
	}
}

func TestWriter_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/reports"
	writer := NewWriter(dir)

	if _, err := writer.WriteQuestions("sample", "Review", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
