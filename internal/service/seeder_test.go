package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
)

type stubVocabWriter struct {
	types  []domain.QuestionType
	topics []domain.Topic
}

func (s *stubVocabWriter) EnsureQuestionType(_ context.Context, term *domain.QuestionType) error {
	s.types = append(s.types, *term)
	return nil
}

func (s *stubVocabWriter) EnsureTopic(_ context.Context, term *domain.Topic) error {
	s.topics = append(s.topics, *term)
	return nil
}

type stubReferenceWriter struct {
	refs []domain.ReferenceMaterial
}

func (s *stubReferenceWriter) Upsert(_ context.Context, ref *domain.ReferenceMaterial) error {
	s.refs = append(s.refs, *ref)
	return nil
}

func TestSeederService_SeedFromFile(t *testing.T) {
	seedYAML := `subject: korean
topics:
  - grammar
  - vocabulary
question_types:
  - multiple-choice
references:
  - topic: grammar
    body: Honorific verbs replace plain verbs.
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	vocab := &stubVocabWriter{}
	refs := &stubReferenceWriter{}
	seeder := NewSeederService(vocab, refs, newTestLogger())

	if err := seeder.SeedFromFile(context.Background(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vocab.topics) != 2 {
		t.Errorf("expected 2 topics, got %d", len(vocab.topics))
	}
	if len(vocab.types) != 1 {
		t.Errorf("expected 1 question type, got %d", len(vocab.types))
	}
	if len(refs.refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs.refs))
	}
	if refs.refs[0].Subject != "korean" || refs.refs[0].Topic != "grammar" {
		t.Errorf("reference scoped wrong: %+v", refs.refs[0])
	}
	for _, term := range vocab.topics {
		if term.ID == "" || term.Subject != "korean" {
			t.Errorf("topic term missing ID or subject: %+v", term)
		}
	}
}

func TestSeederService_Validation(t *testing.T) {
	seeder := NewSeederService(&stubVocabWriter{}, &stubReferenceWriter{}, newTestLogger())

	if err := seeder.Seed(context.Background(), &SeedFile{}); err == nil {
		t.Error("expected error for missing subject")
	}

	err := seeder.Seed(context.Background(), &SeedFile{
		Subject:    "korean",
		References: []SeedReference{{Topic: "grammar"}},
	})
	if err == nil {
		t.Error("expected error for reference without body")
	}
}
