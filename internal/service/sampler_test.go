package service

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/repository"
)

func newTestLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

// stubQuestionStore filters an in-memory slice the way the real store does.
type stubQuestionStore struct {
	questions []domain.Question
}

func (s *stubQuestionStore) List(_ context.Context, filter repository.QuestionFilter) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range s.questions {
		if filter.Subject != "" && q.Subject != filter.Subject {
			continue
		}
		if filter.Topic != "" && q.Topic != filter.Topic {
			continue
		}
		if len(filter.QuestionTypeIDs) > 0 && !containsString(filter.QuestionTypeIDs, q.QuestionTypeID) {
			continue
		}
		if len(filter.Difficulties) > 0 {
			if q.Difficulty == nil || !containsInt(filter.Difficulties, *q.Difficulty) {
				continue
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}

type stubVocabStore struct {
	types  []domain.QuestionType
	topics []domain.Topic
}

func (s *stubVocabStore) ListQuestionTypes(_ context.Context, _ string) ([]domain.QuestionType, error) {
	return s.types, nil
}

func (s *stubVocabStore) ListTopics(_ context.Context, _ string) ([]domain.Topic, error) {
	return s.topics, nil
}

func question(id string, difficulty int) domain.Question {
	q := domain.Question{ID: id, Subject: "korean", QuestionTypeID: "qt-1"}
	if difficulty > 0 {
		q.Difficulty = &difficulty
	}
	return q
}

func newSampler(questions []domain.Question, seed int64) *SamplerService {
	store := &stubQuestionStore{questions: questions}
	vocab := &stubVocabStore{
		types: []domain.QuestionType{{ID: "qt-1", Name: "multiple-choice", Subject: "korean"}},
	}
	return NewSamplerService(store, vocab, rand.New(rand.NewSource(seed)), newTestLogger())
}

func TestSamplerService_FlatDraw(t *testing.T) {
	pool := []domain.Question{
		question("q1", 1), question("q2", 2), question("q3", 3),
		question("q4", 4), question("q5", 5),
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"fewer than available", 3, 3},
		{"exactly available", 5, 5},
		{"more than available", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := newSampler(pool, 42)
			got, err := sampler.Sample(context.Background(), SampleRequest{Subject: "korean", Limit: tt.limit})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d questions, got %d", tt.want, len(got))
			}

			seen := map[string]bool{}
			for _, q := range got {
				if seen[q.ID] {
					t.Errorf("question %s sampled twice", q.ID)
				}
				seen[q.ID] = true
			}
		})
	}
}

func TestSamplerService_SeededDeterminism(t *testing.T) {
	pool := []domain.Question{
		question("q1", 1), question("q2", 2), question("q3", 3),
		question("q4", 4), question("q5", 5), question("q6", 1),
	}

	first, err := newSampler(pool, 7).Sample(context.Background(), SampleRequest{Subject: "korean", Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := newSampler(pool, 7).Sample(context.Background(), SampleRequest{Subject: "korean", Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs returned different sizes: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("position %d differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestSamplerService_Stratified(t *testing.T) {
	pool := []domain.Question{
		question("e1", 1), question("e2", 2), question("e3", 1),
		question("m1", 3),
		question("h1", 4),
	}
	sampler := newSampler(pool, 1)

	got, err := sampler.Sample(context.Background(), SampleRequest{
		Subject:      "korean",
		Distribution: &Distribution{Easy: 2, Medium: 1, Hard: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got))
	}

	// Result concatenates bands in easy, medium, hard order.
	for i := 0; i < 2; i++ {
		if d := *got[i].Difficulty; d != 1 && d != 2 {
			t.Errorf("position %d: expected easy difficulty, got %d", i, d)
		}
	}
	if d := *got[2].Difficulty; d != 3 {
		t.Errorf("expected medium difficulty at position 2, got %d", d)
	}
}

func TestSamplerService_StratifiedShortfall(t *testing.T) {
	pool := []domain.Question{
		question("e1", 1),
		question("h1", 5),
	}
	sampler := newSampler(pool, 1)

	got, err := sampler.Sample(context.Background(), SampleRequest{
		Subject:      "korean",
		Distribution: &Distribution{Easy: 3, Medium: 2, Hard: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bands yield what exists, never padded from other bands.
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if *got[0].Difficulty != 1 {
		t.Errorf("expected the easy question first, got difficulty %d", *got[0].Difficulty)
	}
	if *got[1].Difficulty != 5 {
		t.Errorf("expected the hard question last, got difficulty %d", *got[1].Difficulty)
	}
}

func TestSamplerService_NoMatches(t *testing.T) {
	sampler := newSampler(nil, 1)

	_, err := sampler.Sample(context.Background(), SampleRequest{Subject: "korean", Limit: 5})
	if !errors.Is(err, ErrNoMatches) {
		t.Errorf("expected ErrNoMatches, got %v", err)
	}
}

func TestSamplerService_TypeFilter(t *testing.T) {
	pool := []domain.Question{question("q1", 2)}
	sampler := newSampler(pool, 1)

	got, err := sampler.Sample(context.Background(), SampleRequest{
		Subject:       "korean",
		QuestionTypes: []string{"multiple-choice"},
		Limit:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 question, got %d", len(got))
	}

	_, err = sampler.Sample(context.Background(), SampleRequest{
		Subject:       "korean",
		QuestionTypes: []string{"listening"},
		Limit:         5,
	})
	if err == nil {
		t.Error("expected error for unknown question type name")
	}
}
