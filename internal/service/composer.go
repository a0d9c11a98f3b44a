package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
)

// setWriter is the write side of the set store used by the composer.
type setWriter interface {
	CreateWithItems(ctx context.Context, set *domain.QuestionSet, items []domain.QuestionSetItem) error
}

// SetIdentity names the question set produced by one composition.
type SetIdentity struct {
	Topic       string
	Description string
	Subject     string
}

// ComposerService links curated questions into an ordered set. Membership is
// written in one transaction; a set either exists with its full contiguous
// ordering or not at all.
type ComposerService struct {
	sets   setWriter
	logger *logger.Logger
}

// NewComposerService creates a new composer.
// Parameters:
//   - sets: set store write interface.
//   - log: structured logger.
//
// Returns:
//   - *ComposerService: initialized composer.
func NewComposerService(sets setWriter, log *logger.Logger) *ComposerService {
	return &ComposerService{sets: sets, logger: log}
}

// Compose creates a set from the given questions, ordered easiest first.
// Questions with unknown difficulty sort after every explicit value; ties
// keep their incoming relative order. Order indexes are assigned 1..N with
// no gaps.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - identity: topic, description, and subject of the new set.
//   - questions: persisted questions to link.
//
// Returns:
//   - *domain.QuestionSet: the created set record.
//   - error: non-nil if questions is empty or persistence fails; nothing is
//     committed on failure.
func (s *ComposerService) Compose(ctx context.Context, identity SetIdentity, questions []domain.Question) (*domain.QuestionSet, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("compose: cannot create an empty set")
	}

	ordered := OrderByDifficulty(questions)

	set := &domain.QuestionSet{
		ID:          uuid.New().String(),
		Topic:       identity.Topic,
		Description: identity.Description,
		Subject:     identity.Subject,
		CreatedAt:   time.Now(),
	}

	items := make([]domain.QuestionSetItem, len(ordered))
	for i, q := range ordered {
		items[i] = domain.QuestionSetItem{
			SetID:      set.ID,
			QuestionID: q.ID,
			OrderIndex: i + 1,
		}
	}

	if err := s.sets.CreateWithItems(ctx, set, items); err != nil {
		return nil, fmt.Errorf("failed to persist set: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		"set_id": set.ID,
		"topic":  set.Topic,
		"count":  len(items),
	}).Info("Question set composed")

	return set, nil
}

// OrderByDifficulty returns a copy of questions sorted ascending by
// difficulty, with unknown (nil) difficulty last. The sort is stable so
// equal difficulties keep their incoming order.
func OrderByDifficulty(questions []domain.Question) []domain.Question {
	ordered := make([]domain.Question, len(questions))
	copy(ordered, questions)

	// nil difficulty sorts after DifficultyMax.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DifficultyOrValue(domain.DifficultyMax+1) <
			ordered[j].DifficultyOrValue(domain.DifficultyMax+1)
	})
	return ordered
}
