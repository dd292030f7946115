package models

import (
	"database/sql/driver"
	"time"
)

// ColumnType classifies a scorable column of a subject.
type ColumnType string

const (
	ColumnTypeLab     ColumnType = "lab"
	ColumnTypeProject ColumnType = "project"
)

// Valid reports whether the column type is known.
func (t ColumnType) Valid() bool {
	return t == ColumnTypeLab || t == ColumnTypeProject
}

// WeightsTotal is the share of the grade split between cc, labs and projects.
// The remaining half belongs to the final exam.
const WeightsTotal = 50

// Weights holds component percentages of a subject.
type Weights struct {
	CC       float64 `json:"cc" validate:"min=0,max=50"`
	Labs     float64 `json:"labs" validate:"min=0,max=50"`
	Projects float64 `json:"projects" validate:"min=0,max=50"`
}

// DefaultWeights applies when a subject has no stored weights.
func DefaultWeights() Weights {
	return Weights{CC: 20, Labs: 20, Projects: 10}
}

// Sum returns cc+labs+projects.
func (w Weights) Sum() float64 { return w.CC + w.Labs + w.Projects }

// IsZero reports whether no weights were configured.
func (w Weights) IsZero() bool { return w == Weights{} }

// Value marshals weights to JSONB; unset weights are stored as NULL.
func (w Weights) Value() (driver.Value, error) {
	if w.IsZero() {
		return nil, nil
	}
	return jsonValue(map[string]float64{"cc": w.CC, "labs": w.Labs, "projects": w.Projects}, "subject weights")
}

// Scan unmarshals JSONB weights.
func (w *Weights) Scan(value interface{}) error {
	*w = Weights{}
	return scanJSON(value, w, "subject weights")
}

// Column is a scorable lab or project entry of a subject.
type Column struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Columns is the ordered column list persisted as JSONB.
type Columns []Column

// Value marshals columns for persistence.
func (c Columns) Value() (driver.Value, error) {
	if c == nil {
		c = Columns{}
	}
	return jsonValue([]Column(c), "subject columns")
}

// Scan unmarshals JSONB columns.
func (c *Columns) Scan(value interface{}) error {
	*c = Columns{}
	return scanJSON(value, (*[]Column)(c), "subject columns")
}

// Has reports whether a column id exists.
func (c Columns) Has(id string) bool {
	for _, col := range c {
		if col.ID == id {
			return true
		}
	}
	return false
}

// Subject is the grading configuration of a course for one (major, year).
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Major     string    `db:"major" json:"major"`
	Year      int       `db:"year" json:"year"`
	Type      string    `db:"type" json:"type,omitempty"`
	Weights   Weights   `db:"weights" json:"weights"`
	Columns   Columns   `db:"columns" json:"columns"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveWeights returns stored weights or the defaults when none are stored.
func (s Subject) EffectiveWeights() Weights {
	if s.Weights.IsZero() {
		return DefaultWeights()
	}
	return s.Weights
}

// GradingSheetRequest selects the grading sheet of a subject for a group.
type GradingSheetRequest struct {
	Subject string `json:"subject" validate:"required"`
	Major   string `json:"major" validate:"required"`
	Group   string `json:"group" validate:"required"`
}

// GradingSheet is the teacher view of a subject for one audience.
type GradingSheet struct {
	SubjectID   string                `json:"subject_id"`
	CurrentRole SessionType           `json:"current_role"`
	Weights     Weights               `json:"weights"`
	Columns     Columns               `json:"columns"`
	Students    []GradingSheetStudent `json:"students"`
}

// GradingSheetStudent is a roster line with the student's raw marks.
type GradingSheetStudent struct {
	ID       string `json:"id"`
	FullName string `json:"name"`
	TDGroup  string `json:"td"`
	TPGroup  string `json:"tp"`
	Marks    Scores `json:"marks"`
}

// AddColumnRequest appends a lab or project column.
type AddColumnRequest struct {
	Name string     `json:"name" validate:"required"`
	Type ColumnType `json:"type" validate:"required,column_type"`
}
