package domain

import "time"

// QuestionType is a controlled-vocabulary term for question classification.
// Classification labels produced by the model must resolve to one of these
// by exact name match within a subject.
type QuestionType struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null;index:idx_question_types_name,unique" json:"name"`
	Subject   string    `gorm:"type:text;not null;index:idx_question_types_name,unique" json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for QuestionType.
func (QuestionType) TableName() string {
	return "question_types"
}

// Topic is a controlled-vocabulary term for topic classification.
type Topic struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null;index:idx_topics_name,unique" json:"name"`
	Subject   string    `gorm:"type:text;not null;index:idx_topics_name,unique" json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Topic.
func (Topic) TableName() string {
	return "topics"
}
