package service

import (
	"context"
	"strings"
	"testing"
)

// stubCompleter returns a canned response and records the last request.
type stubCompleter struct {
	response string
	err      error
	lastReq  CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.lastReq = req
	return s.response, s.err
}

func (s *stubCompleter) Model() string {
	return "stub-model"
}

var testVocabulary = ExtractionVocabulary{
	Subject:       "korean",
	Topics:        []string{"grammar", "vocabulary"},
	QuestionTypes: []string{"fill-in-the-blank", "multiple-choice"},
}

const validElement = `{
	"topic": "grammar",
	"question": "Which particle completes the sentence?",
	"answer": "eun",
	"question_number": 1,
	"year": 2024,
	"subject": "korean",
	"explanation": "Topic particle after a consonant.",
	"difficulty": 2,
	"grade_level": "intermediate",
	"question_type": "fill-in-the-blank"
}`

func TestExtractorService_ParsesCandidates(t *testing.T) {
	llm := &stubCompleter{response: "[" + validElement + "]"}
	extractor := NewExtractorService(llm, newTestLogger())

	candidates, err := extractor.ExtractPage(context.Background(), []byte("img"), "png", testVocabulary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Err != nil {
		t.Fatalf("unexpected candidate error: %v", candidates[0].Err)
	}

	q := candidates[0].Question
	if q.Topic != "grammar" {
		t.Errorf("expected topic grammar, got %q", q.Topic)
	}
	if q.Difficulty != 2 {
		t.Errorf("expected difficulty 2, got %d", q.Difficulty)
	}
	if q.QuestionType != "fill-in-the-blank" {
		t.Errorf("expected question type fill-in-the-blank, got %q", q.QuestionType)
	}

	// Vocabulary labels must reach the prompt.
	if !strings.Contains(llm.lastReq.User, "vocabulary") || !strings.Contains(llm.lastReq.User, "multiple-choice") {
		t.Error("expected the prompt to list the allowed labels")
	}
	if len(llm.lastReq.ImageData) == 0 {
		t.Error("expected the page image to be attached")
	}
}

func TestExtractorService_IsolatesInvalidCandidates(t *testing.T) {
	tests := []struct {
		name       string
		badElement string
	}{
		{"invented topic", strings.Replace(validElement, `"grammar"`, `"history"`, 1)},
		{"invented question type", strings.Replace(validElement, `"fill-in-the-blank"`, `"essay"`, 1)},
		{"difficulty out of range", strings.Replace(validElement, `"difficulty": 2`, `"difficulty": 9`, 1)},
		{"missing question", strings.Replace(validElement, `"question":`, `"ignored":`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubCompleter{response: "[" + validElement + "," + tt.badElement + "," + validElement + "]"}
			extractor := NewExtractorService(llm, newTestLogger())

			candidates, err := extractor.ExtractPage(context.Background(), []byte("img"), "png", testVocabulary)
			if err != nil {
				t.Fatalf("unexpected page error: %v", err)
			}
			if len(candidates) != 3 {
				t.Fatalf("expected 3 candidates, got %d", len(candidates))
			}

			good, bad := 0, 0
			for _, c := range candidates {
				if c.Err != nil {
					bad++
				} else {
					good++
				}
			}
			if good != 2 || bad != 1 {
				t.Errorf("expected 2 valid and 1 rejected candidate, got %d valid, %d rejected", good, bad)
			}
		})
	}
}

func TestExtractorService_StripsCodeFences(t *testing.T) {
	llm := &stubCompleter{response: "```json\n[" + validElement + "]\n```"}
	extractor := NewExtractorService(llm, newTestLogger())

	candidates, err := extractor.ExtractPage(context.Background(), []byte("img"), "jpg", testVocabulary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Err != nil {
		t.Errorf("expected 1 valid candidate from fenced output")
	}
}

func TestExtractorService_RejectsNonArrayOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"object output", validElement},
		{"prose output", "I could not read the page."},
		{"empty output", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubCompleter{response: tt.response}
			extractor := NewExtractorService(llm, newTestLogger())

			if _, err := extractor.ExtractPage(context.Background(), []byte("img"), "png", testVocabulary); err == nil {
				t.Error("expected an error for non-array output")
			}
		})
	}
}

func TestExtractorService_EmptyPage(t *testing.T) {
	llm := &stubCompleter{response: "[]"}
	extractor := NewExtractorService(llm, newTestLogger())

	candidates, err := extractor.ExtractPage(context.Background(), []byte("img"), "png", testVocabulary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}
