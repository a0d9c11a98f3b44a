package domain

import "time"

// QuestionSet is an ordered collection of questions produced by one curation
// run. Ordering lives in QuestionSetItem rows, not in this record.
type QuestionSet struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Topic       string    `gorm:"type:text;not null" json:"topic"`
	Description string    `gorm:"type:text" json:"description"`
	Subject     string    `gorm:"type:text;not null;index:idx_question_sets_subject" json:"subject"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for QuestionSet.
func (QuestionSet) TableName() string {
	return "question_sets"
}

// QuestionSetItem links a question into a set at a fixed position.
// OrderIndex values within one set form a contiguous ascending sequence
// starting at 1, assigned by ascending difficulty at link time.
type QuestionSetItem struct {
	SetID      string `gorm:"type:text;primaryKey" json:"set_id"`
	QuestionID string `gorm:"type:text;primaryKey" json:"question_id"`
	OrderIndex int    `gorm:"not null" json:"order_index"`
}

// TableName returns the database table name for QuestionSetItem.
func (QuestionSetItem) TableName() string {
	return "question_set_items"
}
