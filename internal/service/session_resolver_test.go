package service

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func teacherAssignments() []models.TeachingAssignment {
	return []models.TeachingAssignment{
		{Subject: "Réseaux", Type: models.SessionTypeCM, Major: "info", Groups: []string{"ignored"}},
		{Subject: "Réseaux", Type: models.SessionTypeTP, Major: " INFO ", Groups: []string{"TP1", "TP2"}},
		{Subject: "Compilation", Type: models.SessionTypeTP, Major: "INFO"},
		{Subject: "Biochimie", Type: models.SessionTypeCM, Major: "BIO"},
	}
}

func TestResolveSessionsSyntheticMode(t *testing.T) {
	now := time.Date(2024, 9, 4, 10, 0, 0, 0, time.UTC) // ISO week 36
	sessions := ResolveSessions(teacherAssignments(), nil, nil, ResolveOptions{FallbackYear: 4, Now: now})

	require.Len(t, sessions, 4)
	assert.Equal(t, "mock_Réseaux_CM_Promo Entière_Semaine 36", sessions[0].ID)
	assert.Equal(t, "mock_Réseaux_TP_TP1_Semaine 36", sessions[1].ID)
	assert.Equal(t, "mock_Réseaux_TP_TP2_Semaine 36", sessions[2].ID)
	assert.Equal(t, "mock_Biochimie_CM_Promo Entière_Semaine 36", sessions[3].ID)
	for _, s := range sessions {
		assert.Equal(t, 4, s.Year)
		assert.Equal(t, "Semaine 36", s.WeekLabel)
		assert.Equal(t, models.SessionPending, s.Status)
	}
}

func TestResolveSessionsSheetMode(t *testing.T) {
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	sheets := []models.ScheduleSheet{
		{ID: "old", Major: "INFO", Year: 4, DateRange: "S1", UploadedAt: base},
		{ID: "new", Major: "info ", Year: 4, DateRange: "S2", UploadedAt: base.Add(24 * time.Hour)},
		{ID: "bio", Major: "BIO", Year: 3, DateRange: "S2", UploadedAt: base.Add(time.Hour)},
	}

	sessions := ResolveSessions(teacherAssignments(), sheets, nil, ResolveOptions{RecencyWindow: 20})
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{
		"new_Réseaux_CM_Promo Entière",
		"new_Réseaux_TP_TP1",
		"new_Réseaux_TP_TP2",
		"bio_Biochimie_CM_Promo Entière",
		"old_Réseaux_CM_Promo Entière",
		"old_Réseaux_TP_TP1",
		"old_Réseaux_TP_TP2",
	}, ids)
	assert.Equal(t, "INFO", sessions[0].Major)
	assert.Equal(t, "S2", sessions[0].WeekLabel)
	assert.Equal(t, 3, sessions[3].Year)
}

func TestResolveSessionsRecencyWindow(t *testing.T) {
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	sheets := []models.ScheduleSheet{
		{ID: "a", Major: "BIO", UploadedAt: base},
		{ID: "b", Major: "BIO", UploadedAt: base.Add(time.Hour)},
		{ID: "c", Major: "BIO", UploadedAt: base.Add(2 * time.Hour)},
	}
	sessions := ExpandSessions(teacherAssignments(), sheets, ResolveOptions{RecencyWindow: 2})
	require.Len(t, sessions, 2)
	assert.Equal(t, "c", sessions[0].SheetID)
	assert.Equal(t, "b", sessions[1].SheetID)
}

func TestResolveSessionsIsDeterministic(t *testing.T) {
	sheets := []models.ScheduleSheet{{ID: "sh1", Major: "INFO", Year: 4, DateRange: "S1"}}
	opts := ResolveOptions{RecencyWindow: 20}

	collect := func() []string {
		var ids []string
		for _, s := range ResolveSessions(teacherAssignments(), sheets, nil, opts) {
			ids = append(ids, s.ID)
		}
		sort.Strings(ids)
		return ids
	}
	assert.Equal(t, collect(), collect())

	now := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)
	first := ResolveSessions(teacherAssignments(), nil, nil, ResolveOptions{Now: now})
	second := ResolveSessions(teacherAssignments(), nil, nil, ResolveOptions{Now: now})
	assert.Equal(t, first, second)
}

func TestResolveSessionsStatusFromLedger(t *testing.T) {
	sheets := []models.ScheduleSheet{{ID: "sh1", Major: "INFO"}}
	ledger := map[string]models.LedgerState{
		"sh1_Réseaux_TP_TP1": {SessionID: "sh1_Réseaux_TP_TP1"},
		"sh1_Réseaux_TP_TP2": {SessionID: "sh1_Réseaux_TP_TP2", Postponed: true},
	}
	lookup := func(id string) (models.LedgerState, bool) {
		s, ok := ledger[id]
		return s, ok
	}

	sessions := ResolveSessions(teacherAssignments(), sheets, lookup, ResolveOptions{})
	require.Len(t, sessions, 3)
	assert.Equal(t, models.SessionPending, sessions[0].Status)
	assert.Equal(t, models.SessionSubmitted, sessions[1].Status)
	assert.Equal(t, models.SessionPostponed, sessions[2].Status)
}

func TestWeekLabelPadsWeekNumber(t *testing.T) {
	assert.Equal(t, "Semaine 02", WeekLabel(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
}
