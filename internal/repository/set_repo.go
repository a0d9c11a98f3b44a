package repository

import (
	"context"
	"fmt"

	"github.com/minkyu/hagwon/internal/domain"
	"gorm.io/gorm"
)

// SetRepository handles question-set persistence. Set creation and membership
// linkage run in a single transaction: a partially linked set with gaps in its
// ordering is invalid, so the whole batch commits or nothing does.
type SetRepository struct {
	db *gorm.DB
}

// NewSetRepository creates a new SetRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SetRepository: repository instance bound to db.
func NewSetRepository(db *gorm.DB) *SetRepository {
	return &SetRepository{db: db}
}

// CreateWithItems persists a question set and its ordered membership rows
// atomically.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - set: set record to create.
//   - items: membership rows with order indexes already assigned.
// Returns:
//   - error: non-nil if the set or any membership row fails to persist;
//     nothing is committed in that case.
func (r *SetRepository) CreateWithItems(ctx context.Context, set *domain.QuestionSet, items []domain.QuestionSetItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return fmt.Errorf("failed to create question set: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to link set items: %w", err)
		}
		return nil
	})
}

// ListItems retrieves the membership rows of a set in order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - setID: set ID.
// Returns:
//   - []domain.QuestionSetItem: membership rows sorted by order index.
//   - error: non-nil if the query fails.
func (r *SetRepository) ListItems(ctx context.Context, setID string) ([]domain.QuestionSetItem, error) {
	var items []domain.QuestionSetItem
	if err := r.db.WithContext(ctx).
		Where("set_id = ?", setID).
		Order("order_index ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list set items: %w", err)
	}
	return items, nil
}
