package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/repository"
)

// ErrNoMatches indicates that no question in the bank satisfies the sampling
// filters. Callers treat this as a clean empty result, not a failure.
var ErrNoMatches = errors.New("no questions match the sampling filters")

// Difficulty bands for stratified sampling.
var (
	bandEasy   = []int{1, 2}
	bandMedium = []int{3}
	bandHard   = []int{4, 5}
)

// questionLister is the read side of the question store used for sampling.
type questionLister interface {
	List(ctx context.Context, filter repository.QuestionFilter) ([]domain.Question, error)
}

// vocabularyLister fetches the closed classification vocabularies per subject.
type vocabularyLister interface {
	ListQuestionTypes(ctx context.Context, subject string) ([]domain.QuestionType, error)
	ListTopics(ctx context.Context, subject string) ([]domain.Topic, error)
}

// SamplerService selects random question subsets from the bank, either as a
// flat draw or stratified across difficulty bands. All randomness flows
// through the injected source so runs are reproducible under a fixed seed.
type SamplerService struct {
	questions questionLister
	vocab     vocabularyLister
	rng       *rand.Rand
	logger    *logger.Logger
}

// NewSamplerService creates a new sampler.
// Parameters:
//   - questions: question store read interface.
//   - vocab: vocabulary store for resolving type-name filters.
//   - rng: seeded random source; all selection randomness flows through it.
//   - log: structured logger.
//
// Returns:
//   - *SamplerService: initialized sampler.
func NewSamplerService(questions questionLister, vocab vocabularyLister, rng *rand.Rand, log *logger.Logger) *SamplerService {
	return &SamplerService{
		questions: questions,
		vocab:     vocab,
		rng:       rng,
		logger:    log,
	}
}

// SampleRequest describes one sampling draw. QuestionTypes holds type names;
// they are resolved to IDs against the subject's vocabulary before querying.
// Distribution selects the stratified path; nil means a flat draw of Limit.
type SampleRequest struct {
	Subject       string
	Topic         string
	QuestionTypes []string
	Limit         int
	Distribution  *Distribution
}

// Distribution is the per-band target count triple for stratified sampling.
// Easy draws from difficulty 1-2, Medium from 3, Hard from 4-5.
type Distribution struct {
	Easy   int
	Medium int
	Hard   int
}

// Sample draws questions matching the request filters.
//
// With a Distribution, each band is queried and sampled independently and the
// result concatenates easy, medium, hard. A band with fewer matches than
// requested yields what exists; the shortfall is logged, never padded from
// other bands. Without a Distribution a single flat draw of Limit is taken.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: sampling filters and target counts.
//
// Returns:
//   - []domain.Question: sampled questions, length min(requested, available).
//   - error: ErrNoMatches when nothing matches, otherwise store or
//     vocabulary resolution failure.
func (s *SamplerService) Sample(ctx context.Context, req SampleRequest) ([]domain.Question, error) {
	if req.Subject == "" {
		return nil, fmt.Errorf("sample: subject is required")
	}

	typeIDs, err := s.resolveTypeFilter(ctx, req.Subject, req.QuestionTypes)
	if err != nil {
		return nil, err
	}

	base := repository.QuestionFilter{
		Subject:         req.Subject,
		Topic:           req.Topic,
		QuestionTypeIDs: typeIDs,
	}

	if req.Distribution == nil {
		return s.sampleFlat(ctx, base, req.Limit)
	}
	return s.sampleStratified(ctx, base, *req.Distribution)
}

// resolveTypeFilter maps type names to IDs. An unknown name in a filter is a
// configuration error, not a per-item miss, so it fails the whole draw.
func (s *SamplerService) resolveTypeFilter(ctx context.Context, subject string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	types, err := s.vocab.ListQuestionTypes(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load question types: %w", err)
	}
	resolver := NewQuestionTypeResolver(types)

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := resolver.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("unknown question type %q for subject %q", name, subject)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SamplerService) sampleFlat(ctx context.Context, filter repository.QuestionFilter, limit int) ([]domain.Question, error) {
	pool, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoMatches
	}
	return s.draw(pool, limit), nil
}

func (s *SamplerService) sampleStratified(ctx context.Context, base repository.QuestionFilter, dist Distribution) ([]domain.Question, error) {
	bands := []struct {
		name         string
		difficulties []int
		want         int
	}{
		{"easy", bandEasy, dist.Easy},
		{"medium", bandMedium, dist.Medium},
		{"hard", bandHard, dist.Hard},
	}

	var result []domain.Question
	for _, band := range bands {
		if band.want <= 0 {
			continue
		}

		filter := base
		filter.Difficulties = band.difficulties
		pool, err := s.questions.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s band: %w", band.name, err)
		}

		picked := s.draw(pool, band.want)
		if len(picked) < band.want {
			s.logger.WithFields(logger.Fields{
				"band":      band.name,
				"requested": band.want,
				"available": len(pool),
			}).Warn("Band shortfall, returning what exists")
		}
		result = append(result, picked...)
	}

	if len(result) == 0 {
		return nil, ErrNoMatches
	}
	return result, nil
}

// draw selects min(n, len(pool)) questions without replacement via a partial
// Fisher-Yates shuffle over a copy of the pool.
func (s *SamplerService) draw(pool []domain.Question, n int) []domain.Question {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}

	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}
