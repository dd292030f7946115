package models

import (
	"strings"

	"github.com/lib/pq"
)

// SessionType is the teaching format of an assignment or session.
type SessionType string

const (
	SessionTypeCM SessionType = "CM"
	SessionTypeTP SessionType = "TP"
	SessionTypeTD SessionType = "TD"
)

// Valid reports whether the session type is known.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeCM, SessionTypeTP, SessionTypeTD:
		return true
	}
	return false
}

// PromoGroup is the synthetic group covering a whole promotion (CM audience).
const PromoGroup = "Promo Entière"

// TeachingAssignment states that a staff member teaches a subject of a major in a given format.
type TeachingAssignment struct {
	ID      string         `db:"id" json:"id"`
	StaffID string         `db:"staff_id" json:"staff_id"`
	Subject string         `db:"subject" json:"subject" validate:"required"`
	Type    SessionType    `db:"type" json:"type" validate:"required,session_type"`
	Major   string         `db:"major" json:"major" validate:"required"`
	Groups  pq.StringArray `db:"groups" json:"groups"`
}

// ExpandGroups returns the audience groups: CM covers the whole promotion, other
// types their configured non-empty groups.
func (a TeachingAssignment) ExpandGroups() []string {
	if a.Type == SessionTypeCM {
		return []string{PromoGroup}
	}
	groups := make([]string, 0, len(a.Groups))
	for _, g := range a.Groups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// SetAssignmentsRequest replaces the teaching assignments of a staff member.
type SetAssignmentsRequest struct {
	Assignments []TeachingAssignment `json:"assignments" validate:"dive"`
}
