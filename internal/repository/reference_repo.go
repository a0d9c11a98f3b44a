package repository

import (
	"context"
	"fmt"

	"github.com/minkyu/hagwon/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferenceRepository handles reference-material lookups.
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new ReferenceRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ReferenceRepository: repository instance bound to db.
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// GetByTopic retrieves the reference material for a topic within a subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - topic: topic label, unique within the subject.
//   - subject: subject scope.
// Returns:
//   - *domain.ReferenceMaterial: reference record if found.
//   - error: gorm.ErrRecordNotFound if no material exists, other non-nil on failure.
func (r *ReferenceRepository) GetByTopic(ctx context.Context, topic, subject string) (*domain.ReferenceMaterial, error) {
	var ref domain.ReferenceMaterial
	if err := r.db.WithContext(ctx).First(&ref, "topic = ? AND subject = ?", topic, subject).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

// Upsert inserts reference material or replaces the body of an existing
// record for the same topic and subject.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ref: reference record to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *ReferenceRepository) Upsert(ctx context.Context, ref *domain.ReferenceMaterial) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "topic"}, {Name: "subject"}},
			DoUpdates: clause.AssignmentColumns([]string{"body"}),
		}).
		Create(ref).Error; err != nil {
		return fmt.Errorf("failed to upsert reference material: %w", err)
	}
	return nil
}
