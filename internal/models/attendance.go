package models

import (
	"database/sql/driver"
	"strings"
	"time"
)

// AttendanceStatus is the presence state of one student in a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// AbsenceWeight is the number of absence units counted per absent entry.
const AbsenceWeight = 2

// Valid reports whether the status is known.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// NormalizeAttendanceStatus lower-cases and trims raw input.
func NormalizeAttendanceStatus(raw string) AttendanceStatus {
	return AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// AttendanceEntry records the status of one student in a session.
type AttendanceEntry struct {
	StudentID string           `json:"id" validate:"required"`
	Name      string           `json:"name"`
	Status    AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

// AttendanceEntries is the ordered entry list persisted as JSONB.
type AttendanceEntries []AttendanceEntry

// Value marshals entries for persistence.
func (e AttendanceEntries) Value() (driver.Value, error) {
	if e == nil {
		e = AttendanceEntries{}
	}
	return jsonValue([]AttendanceEntry(e), "attendance entries")
}

// Scan unmarshals JSONB into entries.
func (e *AttendanceEntries) Scan(value interface{}) error {
	*e = AttendanceEntries{}
	return scanJSON(value, (*[]AttendanceEntry)(e), "attendance entries")
}

// AttendanceRecord is the write-once ledger row of one session.
type AttendanceRecord struct {
	ID          string            `db:"id" json:"id"`
	SessionID   string            `db:"session_id" json:"session_id"`
	TeacherID   string            `db:"teacher_id" json:"teacher_id"`
	TeacherName string            `db:"teacher_name" json:"teacher_name"`
	Subject     string            `db:"subject" json:"subject"`
	SessionType SessionType       `db:"session_type" json:"type"`
	GroupName   string            `db:"group_name" json:"group"`
	WeekLabel   string            `db:"week_label" json:"week"`
	Major       string            `db:"major" json:"major"`
	Year        int               `db:"year" json:"year"`
	Postponed   bool              `db:"postponed" json:"postponed"`
	Entries     AttendanceEntries `db:"entries" json:"students"`
	SubmittedAt time.Time         `db:"submitted_at" json:"submitted_at"`
}

// SubmitAttendanceRequest is the teacher payload for a session.
type SubmitAttendanceRequest struct {
	SessionID string            `json:"session_id" validate:"required"`
	Subject   string            `json:"subject" validate:"required"`
	Type      SessionType       `json:"type" validate:"required,session_type"`
	Group     string            `json:"group" validate:"required"`
	WeekLabel string            `json:"week"`
	Major     string            `json:"major"`
	Year      int               `json:"year" validate:"min=0"`
	Postponed bool              `json:"postponed"`
	Students  []AttendanceEntry `json:"students" validate:"dive"`
}

// LedgerState is the minimal ledger projection used to derive session status.
type LedgerState struct {
	SessionID string `db:"session_id"`
	Postponed bool   `db:"postponed"`
}

// AbsenceHistoryEntry is one session outcome in a student's history.
type AbsenceHistoryEntry struct {
	Date        time.Time        `json:"date"`
	Status      AttendanceStatus `json:"status"`
	SessionType SessionType      `json:"type"`
}

// AbsenceSummary aggregates a student's attendance for one subject.
type AbsenceSummary struct {
	Subject  string                `json:"subject"`
	Absences int                   `json:"absences"`
	History  []AbsenceHistoryEntry `json:"history"`
}

// AbsenceRow is one absent entry in the administrative overview.
type AbsenceRow struct {
	Date        time.Time `json:"date"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Subject     string    `json:"subject"`
	Group       string    `json:"group"`
	TeacherName string    `json:"teacher"`
}
