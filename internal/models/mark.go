package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Reserved score keys besides column ids.
const (
	ScoreKeyCC   = "cc"
	ScoreKeyCF   = "cf"
	ScoreKeyRatt = "ratt"
)

// Scores maps a column id or reserved key to the raw score as entered
// (number, string, empty string or null).
type Scores map[string]json.RawMessage

// Value marshals scores for persistence.
func (s Scores) Value() (driver.Value, error) {
	if s == nil {
		s = Scores{}
	}
	return jsonValue(map[string]json.RawMessage(s), "mark scores")
}

// Scan unmarshals JSONB scores.
func (s *Scores) Scan(value interface{}) error {
	*s = Scores{}
	return scanJSON(value, (*map[string]json.RawMessage)(s), "mark scores")
}

// Mark holds the raw scores of one student in one subject.
type Mark struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Scores    Scores    `db:"scores" json:"marks"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MarkUpdate sets one score key of a student.
type MarkUpdate struct {
	StudentID string          `json:"student_id" validate:"required"`
	Key       string          `json:"key" validate:"required"`
	Value     json.RawMessage `json:"value"`
}

// SaveMarksRequest batches score updates for a subject.
type SaveMarksRequest struct {
	Updates []MarkUpdate `json:"updates" validate:"required,min=1,dive"`
}
