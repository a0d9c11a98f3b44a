package prompts

import "text/template"

// ============================================================================
// Extraction Prompts (scanned exam page -> structured question records)
// ============================================================================

// ExtractionSystemPrompt defines the role and rules for structured question
// extraction from a scanned exam page.
const ExtractionSystemPrompt = `You are an exam digitization specialist for language-learning test preparation. You convert scanned exam pages into structured question records.

Rules:
- Extract every complete question visible on the page. Partial or cut-off questions must be skipped, not guessed.
- Copy question text, answers and explanations faithfully. Do not paraphrase, translate or correct the source.
- Classify each question using ONLY the allowed topic and question type labels provided by the user. Never invent a label.
- Difficulty is an integer from 1 (easiest) to 5 (hardest), judged from the question's level markers or complexity.
- Respond with a JSON array only. No markdown fences, no commentary outside the JSON.`

// ExtractionUserPromptTmpl renders the per-page extraction instruction with
// the closed vocabularies for the subject.
var ExtractionUserPromptTmpl = template.Must(template.New("extraction").Parse(`Extract all questions from this scanned exam page.

Subject: {{.Subject}}

Allowed topic labels (choose exactly one per question):
{{range .Topics}}- {{.}}
{{end}}
Allowed question type labels (choose exactly one per question):
{{range .QuestionTypes}}- {{.}}
{{end}}
Each array element must contain exactly these fields:
{"topic": "...", "question": "...", "answer": "...", "question_number": 1, "year": 2024, "subject": "{{.Subject}}", "explanation": "...", "difficulty": 3, "grade_level": "...", "question_type": "..."}

Output the JSON array now:`))

// ============================================================================
// Generation Prompts (reference material + exemplars -> new questions)
// ============================================================================

// GenerationSystemPrompt defines the role and rules for grounded question
// generation.
const GenerationSystemPrompt = `You are an exam question author for language-learning test preparation. You write new practice questions grounded strictly in the reference material provided.

Rules:
- Every question must be answerable from the reference material alone.
- Use the exemplar questions for style, format and difficulty calibration only. Never copy an exemplar.
- Each question has exactly four options labeled A, B, C, D and one correct answer label.
- Classify each question using ONLY the allowed question type labels. Never invent a label.
- Respond with a JSON array only. No markdown fences, no commentary outside the JSON.`

// GenerationUserPromptTmpl renders the generation instruction with reference
// body, exemplars, target count and difficulty directive.
var GenerationUserPromptTmpl = template.Must(template.New("generation").Parse(`Write exactly {{.Count}} new multiple-choice questions for topic "{{.Topic}}" ({{.Subject}}).

{{.DifficultyInstruction}}

Allowed question type labels (choose exactly one per question):
{{range .QuestionTypes}}- {{.}}
{{end}}
Reference material:
---
{{.Reference}}
---
{{if .Exemplars}}
Exemplar questions (style and difficulty calibration only, do not copy):
{{range .Exemplars}}---
Question: {{.Question}}
Answer: {{.Answer}}
Explanation: {{.Explanation}}
Difficulty: {{.Difficulty}}
{{end}}---
{{end}}
Each array element must contain exactly these fields:
{"question": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "correct_answer": "A", "explanation": "...", "difficulty": 2, "topic": "{{.Topic}}", "question_type": "..."}

Output the JSON array of {{.Count}} questions now:`))

// Difficulty-mode instructions mapped to target integer ranges.
const (
	DifficultyInstructionEasy   = `Difficulty target: EASY. Every question must have difficulty 1 or 2.`
	DifficultyInstructionMedium = `Difficulty target: MEDIUM. Every question must have difficulty exactly 3.`
	DifficultyInstructionHard   = `Difficulty target: HARD. Every question must have difficulty 4 or 5.`
	DifficultyInstructionMixed  = `Difficulty target: MIXED. Spread difficulty in a balanced way across the full 1-5 range.`
)
