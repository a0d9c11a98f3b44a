// Package report writes plain-text review files for curated questions. A
// report is produced before persistence so a reviewer can inspect what a run
// is about to commit to the bank.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minkyu/hagwon/internal/domain"
)

// Writer renders review reports into a target directory.
type Writer struct {
	dir string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteQuestions renders the questions into a timestamped review file.
// Parameters:
//   - prefix: file name prefix, typically the run mode.
//   - title: human-readable report heading.
//   - questions: questions to render, in the order given.
//
// Returns:
//   - string: path of the written file.
//   - error: non-nil if the directory or file cannot be written.
func (w *Writer) WriteQuestions(prefix, title string, questions []domain.Question) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.txt", prefix, time.Now().Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, []byte(Render(title, questions)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Render produces the report text.
func Render(title string, questions []domain.Question) string {
	var sb strings.Builder

	rule := strings.Repeat("=", 72)
	sb.WriteString(rule + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Questions: %d\n", len(questions)))
	sb.WriteString(rule + "\n\n")

	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, q.Question))
		if len(q.Options) > 0 {
			for _, opt := range q.Options {
				sb.WriteString("    " + opt + "\n")
			}
		}
		if q.Answer != "" {
			sb.WriteString("Answer: " + q.Answer + "\n")
		}
		if q.Explanation != "" {
			sb.WriteString("Explanation: " + q.Explanation + "\n")
		}
		sb.WriteString(fmt.Sprintf("Topic: %s | Type: %s | Difficulty: %s | Origin: %s\n",
			q.Topic, q.QuestionTypeID, difficultyLabel(q.Difficulty), q.Origin))
		sb.WriteString(strings.Repeat("-", 72) + "\n")
	}

	return sb.String()
}

func difficultyLabel(d *int) string {
	if d == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *d)
}
