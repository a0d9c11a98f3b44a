package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/report"
	"github.com/minkyu/hagwon/internal/repository"
	"github.com/minkyu/hagwon/internal/source"
)

type stubQuestionWriter struct {
	created  []domain.Question
	deleted  []string
	existing map[string]bool
	failOn   string // question text that triggers a create failure
}

func (s *stubQuestionWriter) Create(_ context.Context, q *domain.Question) error {
	if s.failOn != "" && q.Question == s.failOn {
		return errors.New("insert failed")
	}
	s.created = append(s.created, *q)
	return nil
}

func (s *stubQuestionWriter) ExistsBySourceHash(_ context.Context, hash string) (bool, error) {
	return s.existing[hash], nil
}

func (s *stubQuestionWriter) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubVectorIndex struct {
	upserted []string
	deleted  []string
}

func (s *stubVectorIndex) Upsert(_ context.Context, pointID string, _ []float32, _ *repository.QuestionPayload) error {
	s.upserted = append(s.upserted, pointID)
	return nil
}

func (s *stubVectorIndex) Delete(_ context.Context, pointID string) error {
	s.deleted = append(s.deleted, pointID)
	return nil
}

type stubExtractor struct {
	candidates []Candidate
	calls      int
}

func (s *stubExtractor) ExtractPage(_ context.Context, _ []byte, _ string, _ ExtractionVocabulary) ([]Candidate, error) {
	s.calls++
	return s.candidates, nil
}

func (s *stubExtractor) Model() string { return "stub-extractor" }

type stubEmbedder struct {
	failOn string // text fragment that triggers an embedding failure
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, errors.New("embedding failed")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) GetModel() string { return "stub-embedder" }

func validCandidate(text string) Candidate {
	return Candidate{Question: ExtractedQuestion{
		Topic:        "grammar",
		Question:     text,
		Answer:       "a",
		Subject:      "korean",
		Difficulty:   2,
		QuestionType: "multiple-choice",
	}}
}

func writeTestPage(t *testing.T, name string) source.Page {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return source.Page{Name: name, Path: path, Format: "png"}
}

func newTestCurator(t *testing.T, store *stubQuestionWriter, vectors *stubVectorIndex, extractor *stubExtractor, embedder *stubEmbedder) *CuratorService {
	t.Helper()
	vocab := &stubVocabStore{
		types:  []domain.QuestionType{{ID: "qt-1", Name: "multiple-choice", Subject: "korean"}},
		topics: []domain.Topic{{ID: "tp-1", Name: "grammar", Subject: "korean"}},
	}
	reports := report.NewWriter(t.TempDir())
	return NewCuratorService(store, vocab, vectors, nil, extractor, embedder, reports, newTestLogger())
}

func TestCuratorService_PartialFailureIsolation(t *testing.T) {
	store := &stubQuestionWriter{existing: map[string]bool{}}
	vectors := &stubVectorIndex{}
	extractor := &stubExtractor{candidates: []Candidate{
		validCandidate("first question"),
		{Err: errors.New("invalid candidate")},
		validCandidate("third question"),
	}}
	curator := newTestCurator(t, store, vectors, extractor, &stubEmbedder{})

	page := writeTestPage(t, "page1.png")
	stats, persisted, err := curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Succeeded != 2 {
		t.Errorf("expected 2 successes, got %d", stats.Succeeded)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", stats.Failed)
	}
	if len(persisted) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(persisted))
	}
	if len(store.created) != 2 {
		t.Errorf("expected 2 store inserts, got %d", len(store.created))
	}
}

func TestCuratorService_EmbeddingFailureIsPerCandidate(t *testing.T) {
	store := &stubQuestionWriter{existing: map[string]bool{}}
	extractor := &stubExtractor{candidates: []Candidate{
		validCandidate("embeds fine"),
		validCandidate("poison text"),
	}}
	curator := newTestCurator(t, store, &stubVectorIndex{}, extractor, &stubEmbedder{failOn: "poison"})

	page := writeTestPage(t, "page1.png")
	stats, persisted, err := curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("expected 1 success and 1 failure, got %d and %d", stats.Succeeded, stats.Failed)
	}
	if len(persisted) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(persisted))
	}
}

func TestCuratorService_SkipsDuplicatePages(t *testing.T) {
	page := writeTestPage(t, "page1.png")
	data, err := page.Read()
	if err != nil {
		t.Fatal(err)
	}

	store := &stubQuestionWriter{existing: map[string]bool{calculateMD5(data): true}}
	extractor := &stubExtractor{candidates: []Candidate{validCandidate("q")}}
	curator := newTestCurator(t, store, &stubVectorIndex{}, extractor, &stubEmbedder{})

	stats, _, err := curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.PagesSkipped != 1 {
		t.Errorf("expected 1 skipped page, got %d", stats.PagesSkipped)
	}
	if extractor.calls != 0 {
		t.Error("expected no extraction call for a duplicate page")
	}

	// Force bypasses the hash check.
	stats, _, err = curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean", Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PagesSkipped != 0 || extractor.calls != 1 {
		t.Error("expected force to re-process the duplicate page")
	}
}

func TestCuratorService_RollsBackVectorOnStoreFailure(t *testing.T) {
	store := &stubQuestionWriter{existing: map[string]bool{}, failOn: "second question"}
	vectors := &stubVectorIndex{}
	extractor := &stubExtractor{candidates: []Candidate{
		validCandidate("first question"),
		validCandidate("second question"),
	}}
	curator := newTestCurator(t, store, vectors, extractor, &stubEmbedder{})

	page := writeTestPage(t, "page1.png")
	_, persisted, err := curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean"})
	if err == nil {
		t.Fatal("expected the run to abort on store failure")
	}

	if len(persisted) != 1 {
		t.Errorf("expected 1 record persisted before the failure, got %d", len(persisted))
	}
	if len(vectors.deleted) != 1 {
		t.Fatalf("expected 1 vector rollback, got %d", len(vectors.deleted))
	}
	// The rolled-back point belongs to the failed record, not a persisted one.
	if vectors.deleted[0] == persisted[0].ID {
		t.Error("rollback removed the wrong vector point")
	}
}

func TestCuratorService_RequiresVocabulary(t *testing.T) {
	store := &stubQuestionWriter{existing: map[string]bool{}}
	reports := report.NewWriter(t.TempDir())
	curator := NewCuratorService(store, &stubVocabStore{}, &stubVectorIndex{}, nil, &stubExtractor{}, &stubEmbedder{}, reports, newTestLogger())

	page := writeTestPage(t, "page1.png")
	_, _, err := curator.RunExtraction(context.Background(), []source.Page{page}, &ExtractOptions{Subject: "korean"})
	if err == nil {
		t.Error("expected error for a subject without vocabulary")
	}
}
