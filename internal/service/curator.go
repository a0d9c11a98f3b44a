package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/google/uuid"
	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/report"
	"github.com/minkyu/hagwon/internal/repository"
	"github.com/minkyu/hagwon/internal/source"
	"github.com/minkyu/hagwon/internal/storage"
	_ "golang.org/x/image/webp"
)

// questionStore is the write side of the question store used by the curator.
type questionStore interface {
	Create(ctx context.Context, question *domain.Question) error
	ExistsBySourceHash(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// vectorIndex mirrors question embeddings into the vector store.
type vectorIndex interface {
	Upsert(ctx context.Context, pointID string, vector []float32, payload *repository.QuestionPayload) error
	Delete(ctx context.Context, pointID string) error
}

// pageExtractor turns a page image into structured question candidates.
type pageExtractor interface {
	ExtractPage(ctx context.Context, imageData []byte, format string, vocab ExtractionVocabulary) ([]Candidate, error)
	Model() string
}

// embedder generates dense vectors for question text.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// CuratorService drives the extraction pipeline: scan results in, curated and
// persisted question records out. Pages are processed sequentially; one run
// touches external APIs, the relational store, and the vector mirror, and
// keeping the order deterministic makes failures attributable to a single
// page in the logs.
type CuratorService struct {
	questions questionStore
	vocab     vocabularyLister
	vectors   vectorIndex
	archive   storage.Archive
	extractor pageExtractor
	embedding embedder
	reports   *report.Writer
	logger    *logger.Logger
}

// NewCuratorService creates a new curator.
// Parameters:
//   - questions: question store write interface.
//   - vocab: vocabulary store for the subject's closed label sets.
//   - vectors: vector index mirror.
//   - archive: page archive; nil disables archival.
//   - extractor: structured extraction engine.
//   - embedding: embedding collaborator.
//   - reports: review report writer.
//   - log: structured logger.
//
// Returns:
//   - *CuratorService: initialized curator.
func NewCuratorService(
	questions questionStore,
	vocab vocabularyLister,
	vectors vectorIndex,
	archive storage.Archive,
	extractor pageExtractor,
	embedding embedder,
	reports *report.Writer,
	log *logger.Logger,
) *CuratorService {
	return &CuratorService{
		questions: questions,
		vocab:     vocab,
		vectors:   vectors,
		archive:   archive,
		extractor: extractor,
		embedding: embedding,
		reports:   reports,
		logger:    log,
	}
}

// log returns a logger from context if available, otherwise the default.
func (s *CuratorService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CurateStats holds the counters for one extraction run.
type CurateStats struct {
	PagesFound   int
	PagesSkipped int
	PagesFailed  int
	Candidates   int
	Succeeded    int
	Failed       int
	StartTime    time.Time
	EndTime      time.Time
}

// ExtractOptions holds options for an extraction run.
type ExtractOptions struct {
	Subject string
	Force   bool // re-process pages whose content hash is already in the bank
}

// errSkipDuplicate is a sentinel marking an already-curated page.
var errSkipDuplicate = fmt.Errorf("skipped: duplicate content hash")

// RunExtraction processes the pages through extraction, vocabulary
// resolution, and embedding, writes a review report, and persists the
// surviving records.
//
// Failures inside a page's candidate list are isolated: each failed candidate
// is counted and logged while the rest of the page proceeds. A page-level
// failure (unreadable file, API error, non-array output) fails that page and
// moves on. Store failures during the persistence phase abort the run.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pages: scanned pages to process.
//   - opts: run options; Subject selects the vocabulary.
//
// Returns:
//   - *CurateStats: run counters, also populated on error.
//   - []domain.Question: records persisted by this run.
//   - error: non-nil on vocabulary, report, or store failure.
func (s *CuratorService) RunExtraction(ctx context.Context, pages []source.Page, opts *ExtractOptions) (*CurateStats, []domain.Question, error) {
	if opts == nil || opts.Subject == "" {
		return nil, nil, fmt.Errorf("extraction requires a subject")
	}

	stats := &CurateStats{
		PagesFound: len(pages),
		StartTime:  time.Now(),
	}

	vocab, typeResolver, err := s.loadVocabulary(ctx, opts.Subject)
	if err != nil {
		return stats, nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		"pages":   len(pages),
		"subject": opts.Subject,
		"force":   opts.Force,
	}).Info("Starting extraction run")

	var curated []domain.Question
	for _, page := range pages {
		if ctx.Err() != nil {
			return stats, nil, ctx.Err()
		}

		pageCtx := logger.SetSource(ctx, page.Name)
		records, err := s.processPage(pageCtx, page, vocab, typeResolver, opts, stats)
		if err != nil {
			if err == errSkipDuplicate {
				stats.PagesSkipped++
				s.log(pageCtx).Debug("Page already curated, skipping")
				continue
			}
			stats.PagesFailed++
			s.log(pageCtx).WithError(err).Error("Failed to process page")
			continue
		}
		curated = append(curated, records...)
	}

	if len(curated) == 0 {
		s.logRunSummary(ctx, stats)
		return stats, nil, nil
	}

	// Review before commit: the report must exist before anything is
	// persisted, so a write failure here aborts the run.
	path, err := s.reports.WriteQuestions("extract", fmt.Sprintf("Extraction review (%s)", opts.Subject), curated)
	if err != nil {
		return stats, nil, fmt.Errorf("failed to write review report: %w", err)
	}
	s.log(ctx).WithField("report", path).Info("Review report written")

	persisted, err := s.PersistQuestions(ctx, curated)
	if err != nil {
		return stats, persisted, err
	}

	s.logRunSummary(ctx, stats)
	return stats, persisted, nil
}

func (s *CuratorService) logRunSummary(ctx context.Context, stats *CurateStats) {
	stats.EndTime = time.Now()
	s.log(ctx).WithFields(logger.Fields{
		"pages":      stats.PagesFound,
		"skipped":    stats.PagesSkipped,
		"failed":     stats.PagesFailed,
		"candidates": stats.Candidates,
		"succeeded":  stats.Succeeded,
		"rejected":   stats.Failed,
		"duration":   stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Extraction run completed")
}

// loadVocabulary fetches the subject's closed label sets and builds the
// resolver used for question type IDs.
func (s *CuratorService) loadVocabulary(ctx context.Context, subject string) (ExtractionVocabulary, *Resolver, error) {
	types, err := s.vocab.ListQuestionTypes(ctx, subject)
	if err != nil {
		return ExtractionVocabulary{}, nil, fmt.Errorf("failed to load question types: %w", err)
	}
	topics, err := s.vocab.ListTopics(ctx, subject)
	if err != nil {
		return ExtractionVocabulary{}, nil, fmt.Errorf("failed to load topics: %w", err)
	}
	if len(types) == 0 || len(topics) == 0 {
		return ExtractionVocabulary{}, nil, fmt.Errorf("subject %q has no vocabulary; seed question types and topics first", subject)
	}

	typeResolver := NewQuestionTypeResolver(types)
	topicResolver := NewTopicResolver(topics)

	vocab := ExtractionVocabulary{
		Subject:       subject,
		Topics:        topicResolver.Names(),
		QuestionTypes: typeResolver.Names(),
	}
	return vocab, typeResolver, nil
}

// processPage runs one page through extraction and candidate curation.
// Returned records carry their embeddings but are not yet persisted.
func (s *CuratorService) processPage(ctx context.Context, page source.Page, vocab ExtractionVocabulary, typeResolver *Resolver, opts *ExtractOptions, stats *CurateStats) ([]domain.Question, error) {
	data, err := page.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	hash := calculateMD5(data)
	if !opts.Force {
		exists, err := s.questions.ExistsBySourceHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check content hash: %w", err)
		}
		if exists {
			return nil, errSkipDuplicate
		}
	}

	width, height, err := getImageDimensions(data)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to get page dimensions")
		width, height = 0, 0
	}

	candidates, err := s.extractor.ExtractPage(ctx, data, page.Format, vocab)
	if err != nil {
		return nil, err
	}
	stats.Candidates += len(candidates)

	archiveURL := s.archivePage(ctx, page, data, hash)

	var records []domain.Question
	for _, candidate := range candidates {
		record, err := s.curateCandidate(ctx, candidate, page, hash, width, height, archiveURL, typeResolver)
		if err != nil {
			stats.Failed++
			s.log(ctx).WithError(err).Warn("Candidate rejected")
			continue
		}
		stats.Succeeded++
		records = append(records, *record)
	}
	return records, nil
}

// archivePage uploads the page image when archival is enabled. Archival is
// provenance, not pipeline state, so failures only warn.
func (s *CuratorService) archivePage(ctx context.Context, page source.Page, data []byte, hash string) string {
	if s.archive == nil {
		return ""
	}

	key := fmt.Sprintf("%s/%s.%s", hash[:2], hash, page.Format)
	exists, err := s.archive.Exists(ctx, key)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to check archive")
		return ""
	}
	if !exists {
		contentType := getContentType(page.Format)
		if err := s.archive.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to archive page")
			return ""
		}
	}
	return s.archive.GetURL(key)
}

// curateCandidate turns one extraction candidate into an embedded bank
// record. Any failure rejects this candidate only.
func (s *CuratorService) curateCandidate(ctx context.Context, candidate Candidate, page source.Page, hash string, width, height int, archiveURL string, typeResolver *Resolver) (*domain.Question, error) {
	if candidate.Err != nil {
		return nil, candidate.Err
	}

	extracted := candidate.Question
	typeID, ok := typeResolver.Resolve(extracted.QuestionType)
	if !ok {
		return nil, fmt.Errorf("unknown question type label %q", extracted.QuestionType)
	}

	difficulty := extracted.Difficulty
	question := domain.Question{
		ID:             uuid.New().String(),
		Subject:        extracted.Subject,
		Topic:          extracted.Topic,
		Question:       extracted.Question,
		Answer:         extracted.Answer,
		Explanation:    extracted.Explanation,
		Difficulty:     &difficulty,
		GradeLevel:     extracted.GradeLevel,
		QuestionTypeID: typeID,
		Origin:         domain.OriginExtracted,
		SourceHash:     hash,
		Metadata: domain.Metadata{
			"source_file":         page.Name,
			"extracted_at":        time.Now().UTC().Format(time.RFC3339),
			"question_type_label": extracted.QuestionType,
			"extraction_model":    s.extractor.Model(),
			"page_width":          width,
			"page_height":         height,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if extracted.QuestionNumber > 0 {
		question.Metadata["question_number"] = extracted.QuestionNumber
	}
	if extracted.Year > 0 {
		question.Metadata["year"] = extracted.Year
	}
	if archiveURL != "" {
		question.Metadata["archive_url"] = archiveURL
	}

	vector, err := s.embedding.Embed(ctx, EmbedText(&question))
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	question.Embedding = vector
	question.Metadata["embedding_model"] = s.embedding.GetModel()

	return &question, nil
}

// PersistQuestions writes the records to the vector mirror and the relational
// store. The relational store is the source of truth: if its insert fails the
// already-written vector point is rolled back and the run aborts, returning
// the records persisted so far.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - questions: embedded records to persist.
//
// Returns:
//   - []domain.Question: records fully persisted before any failure.
//   - error: non-nil on the first store failure.
func (s *CuratorService) PersistQuestions(ctx context.Context, questions []domain.Question) ([]domain.Question, error) {
	persisted := make([]domain.Question, 0, len(questions))

	for i := range questions {
		q := questions[i]

		if len(q.Embedding) == 0 {
			vector, err := s.embedding.Embed(ctx, EmbedText(&q))
			if err != nil {
				return persisted, fmt.Errorf("failed to embed question %s: %w", q.ID, err)
			}
			q.Embedding = vector
			if q.Metadata == nil {
				q.Metadata = domain.Metadata{}
			}
			q.Metadata["embedding_model"] = s.embedding.GetModel()
		}

		payload := &repository.QuestionPayload{
			QuestionID:     q.ID,
			Subject:        q.Subject,
			Topic:          q.Topic,
			QuestionTypeID: q.QuestionTypeID,
			Difficulty:     q.DifficultyOrValue(0),
			GradeLevel:     q.GradeLevel,
			Question:       q.Question,
		}

		if err := s.vectors.Upsert(ctx, q.ID, q.Embedding, payload); err != nil {
			return persisted, fmt.Errorf("failed to upsert vector for %s: %w", q.ID, err)
		}

		if err := s.questions.Create(ctx, &q); err != nil {
			// Roll back the vector point so the mirror never references a
			// record the source of truth does not hold.
			if delErr := s.vectors.Delete(ctx, q.ID); delErr != nil {
				s.log(ctx).WithField("question_id", q.ID).WithError(delErr).Error("Failed to roll back vector point")
			}
			return persisted, fmt.Errorf("failed to save question %s: %w", q.ID, err)
		}

		persisted = append(persisted, q)
	}

	return persisted, nil
}

func calculateMD5(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

func getImageDimensions(data []byte) (int, int, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

func getContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
