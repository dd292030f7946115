package models

// GradeStatus is the outcome of a subject grade.
type GradeStatus string

const (
	GradePending   GradeStatus = "pending"
	GradeValidated GradeStatus = "V"
	GradeRetake    GradeStatus = "R"
)

// PassThreshold is the minimum final grade for a validated subject.
const PassThreshold = 12.0

// MissingScore is displayed in place of an absent score.
const MissingScore = "—"

// ColumnGrade is the display line of one configured column.
type ColumnGrade struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Type  ColumnType `json:"type"`
	Value string     `json:"val"`
}

// SubjectGrade is the computed result of one subject. FinalGrade is nil while pending.
type SubjectGrade struct {
	SubjectID      string        `json:"subject_id"`
	Subject        string        `json:"name"`
	FinalGrade     *float64      `json:"final_grade"`
	Status         GradeStatus   `json:"statut"`
	LabAverage     *float64      `json:"lab_average,omitempty"`
	ProjectAverage *float64      `json:"project_average,omitempty"`
	CC             string        `json:"cc"`
	CF             string        `json:"cf"`
	Ratt           string        `json:"ratt"`
	Columns        []ColumnGrade `json:"columns"`
}

// StudentReport is the grade report of a student. GeneralAverage is nil when
// no subject has marks.
type StudentReport struct {
	StudentID      string         `json:"student_id"`
	StudentName    string         `json:"student_name"`
	Major          string         `json:"major"`
	Year           int            `json:"year"`
	Subjects       []SubjectGrade `json:"subjects"`
	GeneralAverage *float64       `json:"general_average"`
}
