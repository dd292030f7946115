package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

var attendanceRowColumns = []string{"id", "session_id", "teacher_id", "teacher_name", "subject", "session_type", "group_name", "week_label", "major", "year", "postponed", "entries", "submitted_at"}

func TestAttendanceRepositoryExistsBySessionID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM attendance_records WHERE session_id = $1")).
		WithArgs("sh1_Réseaux_TP_TP1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM attendance_records WHERE session_id = $1")).
		WithArgs("sh1_Réseaux_TP_TP2").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsBySessionID(context.Background(), "sh1_Réseaux_TP_TP1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsBySessionID(context.Background(), "sh1_Réseaux_TP_TP2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertConflictIsNotAnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records .* ON CONFLICT \\(session_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_records .* ON CONFLICT \\(session_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	record := &models.AttendanceRecord{SessionID: "s1", Entries: models.AttendanceEntries{{StudentID: "st1", Status: models.AttendanceAbsent}}}
	inserted, err := repo.Insert(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(context.Background(), &models.AttendanceRecord{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStatusBySessionIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_id, postponed FROM attendance_records WHERE session_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "postponed"}).AddRow("a", false).AddRow("b", true))

	states, err := repo.StatusBySessionIDs(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []models.LedgerState{{SessionID: "a"}, {SessionID: "b", Postponed: true}}, states)

	states, err = repo.StatusBySessionIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, states)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE entries @> $1::jsonb ORDER BY submitted_at ASC")).
		WithArgs(`[{"id":"st1"}]`).
		WillReturnRows(sqlmock.NewRows(attendanceRowColumns).
			AddRow("r1", "s1", "t1", "Prof", "Réseaux", "TP", "TP1", "S1", "INFO", 4, false,
				[]byte(`[{"id":"st1","name":"Amina","status":"absent"}]`), now))

	records, err := repo.ListByStudent(context.Background(), "st1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Entries, 1)
	assert.Equal(t, models.AttendanceAbsent, records[0].Entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
