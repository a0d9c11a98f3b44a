package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/prompts"
	"github.com/xeipuuv/gojsonschema"
)

// ExtractionVocabulary carries the closed label sets rendered into the
// extraction prompt and enforced by schema validation.
type ExtractionVocabulary struct {
	Subject       string
	Topics        []string
	QuestionTypes []string
}

// ExtractedQuestion is one structured question candidate parsed from a page.
type ExtractedQuestion struct {
	Topic          string `json:"topic"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	QuestionNumber int    `json:"question_number"`
	Year           int    `json:"year"`
	Subject        string `json:"subject"`
	Explanation    string `json:"explanation"`
	Difficulty     int    `json:"difficulty"`
	GradeLevel     string `json:"grade_level"`
	QuestionType   string `json:"question_type"`
}

// Candidate is the per-element outcome of validating one extracted question.
// Err is non-nil when the element failed schema validation; the rest of the
// page's candidates are unaffected.
type Candidate struct {
	Question ExtractedQuestion
	Err      error
}

// ExtractorService converts scanned exam pages into structured question
// candidates via a vision-capable chat model. The model's output is validated
// element by element against a JSON schema carrying the vocabulary enums, so
// one malformed candidate never sinks the rest of the page.
type ExtractorService struct {
	llm    Completer
	logger *logger.Logger
}

// NewExtractorService creates a new extraction engine.
// Parameters:
//   - llm: chat completions collaborator (must support image input).
//   - log: structured logger.
//
// Returns:
//   - *ExtractorService: initialized extractor.
func NewExtractorService(llm Completer, log *logger.Logger) *ExtractorService {
	return &ExtractorService{llm: llm, logger: log}
}

// Model returns the underlying model name, for provenance metadata.
func (s *ExtractorService) Model() string {
	return s.llm.Model()
}

// ExtractPage sends one page image through the model and returns the parsed
// candidates.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw page image bytes.
//   - format: image format extension (jpg, png, gif, webp).
//   - vocab: closed topic and question type vocabularies for the subject.
//
// Returns:
//   - []Candidate: one entry per array element in the model output; elements
//     that fail validation carry a non-nil Err.
//   - error: non-nil if the API call fails or the output is not a JSON array.
func (s *ExtractorService) ExtractPage(ctx context.Context, imageData []byte, format string, vocab ExtractionVocabulary) ([]Candidate, error) {
	user, err := renderExtractionPrompt(vocab)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, CompletionRequest{
		System:      prompts.ExtractionSystemPrompt,
		User:        user,
		ImageData:   imageData,
		ImageFormat: format,
		MaxTokens:   8000,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	return parseCandidates(raw, vocab)
}

func renderExtractionPrompt(vocab ExtractionVocabulary) (string, error) {
	var sb strings.Builder
	if err := prompts.ExtractionUserPromptTmpl.Execute(&sb, vocab); err != nil {
		return "", fmt.Errorf("failed to render extraction prompt: %w", err)
	}
	return sb.String(), nil
}

// parseCandidates decodes the model output into an array of raw elements and
// validates each one independently against the item schema.
func parseCandidates(raw string, vocab ExtractionVocabulary) ([]Candidate, error) {
	cleaned := stripCodeFences(raw)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elements); err != nil {
		return nil, fmt.Errorf("model output is not a JSON array: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(extractionItemSchema(vocab)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction schema: %w", err)
	}

	candidates := make([]Candidate, 0, len(elements))
	for i, element := range elements {
		var c Candidate
		if err := validateElement(schema, element); err != nil {
			c.Err = fmt.Errorf("candidate %d: %w", i, err)
		} else if err := json.Unmarshal(element, &c.Question); err != nil {
			c.Err = fmt.Errorf("candidate %d: %w", i, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func validateElement(schema *gojsonschema.Schema, element json.RawMessage) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(element))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid candidate: %s", strings.Join(msgs, "; "))
}

// extractionItemSchema builds the per-element schema. Topic and question type
// are closed enums over the subject's vocabulary, so an invented label fails
// the element at the boundary instead of surfacing as a dangling reference.
func extractionItemSchema(vocab ExtractionVocabulary) map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"topic", "question", "answer", "subject", "difficulty", "question_type"},
		"properties": map[string]interface{}{
			"topic": map[string]interface{}{
				"type": "string",
				"enum": vocab.Topics,
			},
			"question": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"answer":          map[string]interface{}{"type": "string"},
			"question_number": map[string]interface{}{"type": "integer"},
			"year":            map[string]interface{}{"type": "integer"},
			"subject":         map[string]interface{}{"type": "string"},
			"explanation":     map[string]interface{}{"type": "string"},
			"difficulty": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 5,
			},
			"grade_level": map[string]interface{}{"type": "string"},
			"question_type": map[string]interface{}{
				"type": "string",
				"enum": vocab.QuestionTypes,
			},
		},
	}
}
