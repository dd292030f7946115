package models

// SessionStatus is derived from the attendance ledger, never stored.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionSubmitted SessionStatus = "submitted"
	SessionPostponed SessionStatus = "postponed"
)

// Session is one derived teaching occurrence requiring an attendance record.
type Session struct {
	ID        string        `json:"id"`
	SheetID   string        `json:"sheet_id,omitempty"`
	Subject   string        `json:"subject"`
	Type      SessionType   `json:"type"`
	Group     string        `json:"group"`
	Major     string        `json:"major"`
	Year      int           `json:"year"`
	WeekLabel string        `json:"week"`
	Status    SessionStatus `json:"status"`
}

// SessionStudentsRequest asks for the roster of a session audience.
type SessionStudentsRequest struct {
	Major string `json:"major" validate:"required"`
	Year  int    `json:"year" validate:"required,min=1"`
	Group string `json:"group" validate:"required"`
}
