package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// ResolveOptions tunes session derivation.
type ResolveOptions struct {
	// RecencyWindow caps how many of the most recent sheets are considered.
	RecencyWindow int
	// FallbackYear is reported for synthetic sessions.
	FallbackYear int
	// Now picks the ISO week of synthetic sessions.
	Now time.Time
}

// LedgerLookup reports the ledger state of a session id; found is false when no record exists.
type LedgerLookup func(sessionID string) (state models.LedgerState, found bool)

// ResolveSessions derives the sessions a teacher must manage and annotates their status.
func ResolveSessions(assignments []models.TeachingAssignment, sheets []models.ScheduleSheet, lookup LedgerLookup, opts ResolveOptions) []models.Session {
	sessions := ExpandSessions(assignments, sheets, opts)
	AnnotateSessions(sessions, lookup)
	return sessions
}

// ExpandSessions builds the pending session list. Without any sheet it falls back
// to one synthetic session per assignment group for the current ISO week; otherwise
// it crosses the most recent sheets with assignments of the same major.
func ExpandSessions(assignments []models.TeachingAssignment, sheets []models.ScheduleSheet, opts ResolveOptions) []models.Session {
	if len(sheets) == 0 {
		return syntheticSessions(assignments, opts)
	}

	recent := recentSheets(sheets, opts.RecencyWindow)
	var sessions []models.Session
	for _, sheet := range recent {
		sheetMajor := normalizeMajor(sheet.Major)
		for _, a := range assignments {
			if normalizeMajor(a.Major) != sheetMajor {
				continue
			}
			for _, group := range a.ExpandGroups() {
				sessions = append(sessions, models.Session{
					ID:        SheetSessionID(sheet.ID, a.Subject, a.Type, group),
					SheetID:   sheet.ID,
					Subject:   a.Subject,
					Type:      a.Type,
					Group:     group,
					Major:     sheetMajor,
					Year:      sheet.Year,
					WeekLabel: sheet.DateRange,
					Status:    models.SessionPending,
				})
			}
		}
	}
	return sessions
}

// AnnotateSessions sets each session's status from the ledger lookup.
func AnnotateSessions(sessions []models.Session, lookup LedgerLookup) {
	for i := range sessions {
		sessions[i].Status = models.SessionPending
		if lookup == nil {
			continue
		}
		state, found := lookup(sessions[i].ID)
		switch {
		case !found:
		case state.Postponed:
			sessions[i].Status = models.SessionPostponed
		default:
			sessions[i].Status = models.SessionSubmitted
		}
	}
}

// SheetSessionID is the identity of a session derived from a schedule sheet.
func SheetSessionID(sheetID, subject string, sessionType models.SessionType, group string) string {
	return fmt.Sprintf("%s_%s_%s_%s", sheetID, subject, sessionType, group)
}

// SyntheticSessionID is the identity of a session derived without any sheet.
func SyntheticSessionID(subject string, sessionType models.SessionType, group, weekLabel string) string {
	return fmt.Sprintf("mock_%s_%s_%s_%s", subject, sessionType, group, weekLabel)
}

// WeekLabel formats the ISO week of t as used by synthetic sessions.
func WeekLabel(t time.Time) string {
	_, week := t.ISOWeek()
	return fmt.Sprintf("Semaine %02d", week)
}

func syntheticSessions(assignments []models.TeachingAssignment, opts ResolveOptions) []models.Session {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	week := WeekLabel(now)
	var sessions []models.Session
	for _, a := range assignments {
		for _, group := range a.ExpandGroups() {
			sessions = append(sessions, models.Session{
				ID:        SyntheticSessionID(a.Subject, a.Type, group, week),
				Subject:   a.Subject,
				Type:      a.Type,
				Group:     group,
				Major:     a.Major,
				Year:      opts.FallbackYear,
				WeekLabel: week,
				Status:    models.SessionPending,
			})
		}
	}
	return sessions
}

func recentSheets(sheets []models.ScheduleSheet, window int) []models.ScheduleSheet {
	ordered := make([]models.ScheduleSheet, len(sheets))
	copy(ordered, sheets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UploadedAt.After(ordered[j].UploadedAt)
	})
	if window > 0 && len(ordered) > window {
		ordered = ordered[:window]
	}
	return ordered
}

func normalizeMajor(major string) string {
	return strings.ToUpper(strings.TrimSpace(major))
}
