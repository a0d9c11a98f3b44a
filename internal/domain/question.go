package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// QuestionOrigin records how a question entered the bank.
// Values include OriginExtracted, OriginGenerated, and OriginImported.
type QuestionOrigin string

const (
	OriginExtracted QuestionOrigin = "extracted"
	OriginGenerated QuestionOrigin = "generated"
	OriginImported  QuestionOrigin = "imported"
)

// Difficulty bands used for stratified sampling and generation targeting.
// Easy covers 1-2, Medium is 3, Hard covers 4-5.
const (
	DifficultyMin = 1
	DifficultyMax = 5
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Vector is a custom type for storing embedding vectors as JSON in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// Metadata is a custom type for storing an open key-value bag as JSON.
// Used for provenance: source filename, content hash, extraction timestamp,
// raw classification label before vocabulary resolution.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Metadata")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// Question represents a single exam question in the bank.
// Difficulty is a pointer: nil means unknown and sorts after every explicit
// value when a set is ordered. Records are immutable after persistence except
// for set linkage.
type Question struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	Subject        string         `gorm:"type:text;not null;index:idx_questions_subject" json:"subject"`
	Topic          string         `gorm:"type:text;index:idx_questions_topic" json:"topic"`
	Question       string         `gorm:"type:text;not null" json:"question"`
	Answer         string         `gorm:"type:text" json:"answer"`
	Options        StringArray    `gorm:"type:text" json:"options"`
	CorrectAnswer  string         `gorm:"type:text" json:"correct_answer,omitempty"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	Difficulty     *int           `gorm:"index:idx_questions_difficulty" json:"difficulty,omitempty"`
	GradeLevel     string         `gorm:"type:text" json:"grade_level"`
	QuestionTypeID string         `gorm:"type:text;not null;index:idx_questions_type" json:"question_type_id"`
	Origin         QuestionOrigin `gorm:"type:text;index:idx_questions_origin" json:"origin"`
	SourceHash     string         `gorm:"type:text;index:idx_questions_source_hash" json:"source_hash,omitempty"`
	Embedding      Vector         `gorm:"type:text" json:"embedding"`
	Metadata       Metadata       `gorm:"type:text" json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Question.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Question) TableName() string {
	return "questions"
}

// DifficultyOrValue returns the difficulty, or fallback when it is unset.
func (q *Question) DifficultyOrValue(fallback int) int {
	if q.Difficulty == nil {
		return fallback
	}
	return *q.Difficulty
}
