package domain

import "time"

// ReferenceMaterial is a body of reference text used as grounding context for
// question generation. One body per topic and subject; re-seeding replaces
// the body in place.
type ReferenceMaterial struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Topic     string    `gorm:"type:text;not null;index:idx_reference_topic,unique" json:"topic"`
	Subject   string    `gorm:"type:text;not null;index:idx_reference_topic,unique" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ReferenceMaterial.
func (ReferenceMaterial) TableName() string {
	return "reference_materials"
}
