package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/prompts"
	"github.com/xeipuuv/gojsonschema"
)

// Difficulty modes accepted by the generation engine.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyMixed  = "mixed"
)

var optionLabels = []string{"A", "B", "C", "D"}

// GenerationRequest describes one generation batch. Reference is the grounding
// material body; Exemplars calibrate style and difficulty. QuestionTypes holds
// the allowed type names for the subject.
type GenerationRequest struct {
	Subject       string
	Topic         string
	Count         int
	Difficulty    string
	Reference     string
	Exemplars     []domain.Question
	QuestionTypes []string
}

// GeneratedQuestion is one model-authored multiple-choice question.
type GeneratedQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
	Difficulty    int               `json:"difficulty"`
	Topic         string            `json:"topic"`
	QuestionType  string            `json:"question_type"`
}

// GeneratorService authors new questions grounded in reference material.
// A generation batch is atomic: the whole response validates or the whole
// call fails. Nothing is persisted here; callers decide what to do with the
// returned batch.
type GeneratorService struct {
	llm    Completer
	logger *logger.Logger
}

// NewGeneratorService creates a new generation engine.
// Parameters:
//   - llm: chat completions collaborator.
//   - log: structured logger.
//
// Returns:
//   - *GeneratorService: initialized generator.
func NewGeneratorService(llm Completer, log *logger.Logger) *GeneratorService {
	return &GeneratorService{llm: llm, logger: log}
}

// Model returns the underlying model name, for provenance metadata.
func (s *GeneratorService) Model() string {
	return s.llm.Model()
}

// Generate authors req.Count new questions for the topic.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: generation parameters; Reference must be non-empty.
//
// Returns:
//   - []GeneratedQuestion: exactly req.Count validated questions.
//   - error: non-nil if the call fails or any part of the response violates
//     the schema, the target count, or the difficulty range. No partial batch
//     is ever returned.
func (s *GeneratorService) Generate(ctx context.Context, req GenerationRequest) ([]GeneratedQuestion, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("generate: count must be positive")
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("generate: reference material is required")
	}

	instruction, err := difficultyInstruction(req.Difficulty)
	if err != nil {
		return nil, err
	}

	user, err := renderGenerationPrompt(req, instruction)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Complete(ctx, CompletionRequest{
		System:    prompts.GenerationSystemPrompt,
		User:      user,
		MaxTokens: 8000,
	})
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	return parseGenerated(raw, req)
}

// exemplarView flattens an exemplar for template rendering; the difficulty
// pointer becomes a plain value so the template prints a number.
type exemplarView struct {
	Question    string
	Answer      string
	Explanation string
	Difficulty  int
}

func renderGenerationPrompt(req GenerationRequest, instruction string) (string, error) {
	exemplars := make([]exemplarView, 0, len(req.Exemplars))
	for i := range req.Exemplars {
		q := &req.Exemplars[i]
		exemplars = append(exemplars, exemplarView{
			Question:    q.Question,
			Answer:      q.Answer,
			Explanation: q.Explanation,
			Difficulty:  q.DifficultyOrValue(0),
		})
	}

	data := struct {
		Count                 int
		Topic                 string
		Subject               string
		DifficultyInstruction string
		QuestionTypes         []string
		Reference             string
		Exemplars             []exemplarView
	}{
		Count:                 req.Count,
		Topic:                 req.Topic,
		Subject:               req.Subject,
		DifficultyInstruction: instruction,
		QuestionTypes:         req.QuestionTypes,
		Reference:             req.Reference,
		Exemplars:             exemplars,
	}

	var sb strings.Builder
	if err := prompts.GenerationUserPromptTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render generation prompt: %w", err)
	}
	return sb.String(), nil
}

// parseGenerated validates and decodes the full batch. Unlike extraction,
// one bad element rejects the whole response.
func parseGenerated(raw string, req GenerationRequest) ([]GeneratedQuestion, error) {
	cleaned := stripCodeFences(raw)

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(generationSchema(req)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid generation batch: %s", strings.Join(msgs, "; "))
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("failed to decode generation batch: %w", err)
	}

	if len(questions) != req.Count {
		return nil, fmt.Errorf("generation batch has %d questions, expected %d", len(questions), req.Count)
	}

	lo, hi, _ := difficultyRange(req.Difficulty)
	for i := range questions {
		if questions[i].Topic == "" {
			questions[i].Topic = req.Topic
		}
		if d := questions[i].Difficulty; d < lo || d > hi {
			return nil, fmt.Errorf("question %d has difficulty %d outside the %s range [%d, %d]",
				i, d, req.Difficulty, lo, hi)
		}
	}

	return questions, nil
}

// generationSchema builds the whole-batch schema with closed enums on option
// labels, answer label, and question type.
func generationSchema(req GenerationRequest) map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type":     "object",
			"required": []string{"question", "options", "correct_answer", "difficulty", "topic", "question_type"},
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":      "string",
					"minLength": 1,
				},
				"options": map[string]interface{}{
					"type":     "object",
					"required": optionLabels,
					"properties": map[string]interface{}{
						"A": map[string]interface{}{"type": "string"},
						"B": map[string]interface{}{"type": "string"},
						"C": map[string]interface{}{"type": "string"},
						"D": map[string]interface{}{"type": "string"},
					},
					"additionalProperties": false,
				},
				"correct_answer": map[string]interface{}{
					"type": "string",
					"enum": optionLabels,
				},
				"explanation": map[string]interface{}{"type": "string"},
				"difficulty": map[string]interface{}{
					"type":    "integer",
					"minimum": 1,
					"maximum": 5,
				},
				"topic": map[string]interface{}{"type": "string"},
				"question_type": map[string]interface{}{
					"type": "string",
					"enum": req.QuestionTypes,
				},
			},
		},
	}
}

// difficultyInstruction maps a difficulty mode to its prompt directive.
func difficultyInstruction(mode string) (string, error) {
	switch mode {
	case DifficultyEasy:
		return prompts.DifficultyInstructionEasy, nil
	case DifficultyMedium:
		return prompts.DifficultyInstructionMedium, nil
	case DifficultyHard:
		return prompts.DifficultyInstructionHard, nil
	case DifficultyMixed, "":
		return prompts.DifficultyInstructionMixed, nil
	default:
		return "", fmt.Errorf("unknown difficulty mode %q", mode)
	}
}

// difficultyRange maps a difficulty mode to its accepted integer range.
func difficultyRange(mode string) (int, int, error) {
	switch mode {
	case DifficultyEasy:
		return 1, 2, nil
	case DifficultyMedium:
		return 3, 3, nil
	case DifficultyHard:
		return 4, 5, nil
	case DifficultyMixed, "":
		return domain.DifficultyMin, domain.DifficultyMax, nil
	default:
		return 0, 0, fmt.Errorf("unknown difficulty mode %q", mode)
	}
}

// ToDomain converts a generated question into a bank record. The question
// type label stays raw in metadata; the resolved ID is supplied by the
// caller, which owns the vocabulary.
func (g GeneratedQuestion) ToDomain(subject, questionTypeID, model string) domain.Question {
	difficulty := g.Difficulty

	labels := make([]string, 0, len(g.Options))
	for label := range g.Options {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	options := make(domain.StringArray, 0, len(labels))
	for _, label := range labels {
		options = append(options, fmt.Sprintf("%s. %s", label, g.Options[label]))
	}

	now := time.Now()
	return domain.Question{
		ID:             uuid.New().String(),
		Subject:        subject,
		Topic:          g.Topic,
		Question:       g.Question,
		Answer:         g.Options[g.CorrectAnswer],
		Options:        options,
		CorrectAnswer:  g.CorrectAnswer,
		Explanation:    g.Explanation,
		Difficulty:     &difficulty,
		QuestionTypeID: questionTypeID,
		Origin:         domain.OriginGenerated,
		Metadata: domain.Metadata{
			"question_type_label": g.QuestionType,
			"generation_model":    model,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
