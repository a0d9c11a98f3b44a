package repository

import (
	"context"
	"fmt"

	"github.com/minkyu/hagwon/internal/domain"
	"gorm.io/gorm"
)

// VocabularyRepository handles controlled-vocabulary lookups for question
// types and topics. Both vocabularies are scoped by subject.
type VocabularyRepository struct {
	db *gorm.DB
}

// NewVocabularyRepository creates a new VocabularyRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *VocabularyRepository: repository instance bound to db.
func NewVocabularyRepository(db *gorm.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// ListQuestionTypes retrieves all question-type terms for a subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - subject: subject scope.
// Returns:
//   - []domain.QuestionType: matching vocabulary terms.
//   - error: non-nil if the query fails.
func (r *VocabularyRepository) ListQuestionTypes(ctx context.Context, subject string) ([]domain.QuestionType, error) {
	var types []domain.QuestionType
	if err := r.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order("name ASC").
		Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list question types: %w", err)
	}
	return types, nil
}

// EnsureQuestionType inserts a question-type term unless one with the same
// name already exists for the subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: vocabulary term to ensure.
// Returns:
//   - error: non-nil if the lookup or insert fails.
func (r *VocabularyRepository) EnsureQuestionType(ctx context.Context, term *domain.QuestionType) error {
	if err := r.db.WithContext(ctx).
		Where("name = ? AND subject = ?", term.Name, term.Subject).
		FirstOrCreate(term).Error; err != nil {
		return fmt.Errorf("failed to ensure question type %q: %w", term.Name, err)
	}
	return nil
}

// EnsureTopic inserts a topic term unless one with the same name already
// exists for the subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: vocabulary term to ensure.
// Returns:
//   - error: non-nil if the lookup or insert fails.
func (r *VocabularyRepository) EnsureTopic(ctx context.Context, term *domain.Topic) error {
	if err := r.db.WithContext(ctx).
		Where("name = ? AND subject = ?", term.Name, term.Subject).
		FirstOrCreate(term).Error; err != nil {
		return fmt.Errorf("failed to ensure topic %q: %w", term.Name, err)
	}
	return nil
}

// ListTopics retrieves all topic terms for a subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - subject: subject scope.
// Returns:
//   - []domain.Topic: matching vocabulary terms.
//   - error: non-nil if the query fails.
func (r *VocabularyRepository) ListTopics(ctx context.Context, subject string) ([]domain.Topic, error) {
	var topics []domain.Topic
	if err := r.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order("name ASC").
		Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}
