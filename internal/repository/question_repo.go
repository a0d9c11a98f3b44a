package repository

import (
	"context"
	"fmt"

	"github.com/minkyu/hagwon/internal/domain"
	"gorm.io/gorm"
)

// QuestionFilter describes the equality predicates applied when listing
// questions. Zero-value fields are no-ops and match all records; set fields
// combine conjunctively.
type QuestionFilter struct {
	Subject         string
	Topic           string
	QuestionTypeIDs []string
	Difficulties    []int
}

// QuestionRepository handles question data operations.
type QuestionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new QuestionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *QuestionRepository: repository instance bound to db.
func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a new question record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - question: question record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *QuestionRepository) Create(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

// List retrieves questions matching every predicate set on the filter.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: equality predicates; unset fields match all.
// Returns:
//   - []domain.Question: matching question records.
//   - error: non-nil if the query fails.
func (r *QuestionRepository) List(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	query := r.db.WithContext(ctx).Model(&domain.Question{})
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.Topic != "" {
		query = query.Where("topic = ?", filter.Topic)
	}
	if len(filter.QuestionTypeIDs) > 0 {
		query = query.Where("question_type_id IN ?", filter.QuestionTypeIDs)
	}
	if len(filter.Difficulties) > 0 {
		query = query.Where("difficulty IN ?", filter.Difficulties)
	}

	var questions []domain.Question
	if err := query.Order("created_at ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// GetByID retrieves a question by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: question ID.
// Returns:
//   - *domain.Question: question record if found.
//   - error: non-nil if lookup fails.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var question domain.Question
	if err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// ExistsBySourceHash checks whether any question was already extracted from a
// source page with the given content hash.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: MD5 hash of the source page content.
// Returns:
//   - bool: true if at least one record exists.
//   - error: non-nil if the lookup fails.
func (r *QuestionRepository) ExistsBySourceHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Question{}).Where("source_hash = ?", hash).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a question by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: question ID to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Question{}, "id = ?", id).Error
}
