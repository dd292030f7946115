package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

var sheetRowColumns = []string{"id", "major", "year", "date_range", "filename", "path", "uploaded_by", "uploaded_at"}

func TestScheduleSheetRepositoryListRecent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleSheetRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_sheets WHERE 1=1 ORDER BY uploaded_at DESC LIMIT 20")).
		WillReturnRows(sqlmock.NewRows(sheetRowColumns).
			AddRow("sh2", "INFO", 4, "S2", "EDT-INFO4-S2.xlsx", "schedules/b.xlsx", nil, now).
			AddRow("sh1", "INFO", 4, "S1", "EDT-INFO4-S1.xlsx", "schedules/a.xlsx", nil, now.Add(-time.Hour)))

	sheets, err := repo.ListRecent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "sh2", sheets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSheetRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleSheetRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND UPPER(TRIM(major)) = UPPER(TRIM($1)) AND year = $2 ORDER BY uploaded_at DESC")).
		WithArgs("info", 4).
		WillReturnRows(sqlmock.NewRows(sheetRowColumns))

	sheets, err := repo.List(context.Background(), models.ScheduleFilter{Major: "info", Year: 4})
	require.NoError(t, err)
	assert.Empty(t, sheets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSheetRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleSheetRepository(db)

	mock.ExpectExec("INSERT INTO schedule_sheets").WillReturnResult(sqlmock.NewResult(1, 1))

	sheet := &models.ScheduleSheet{Major: "INFO", Year: 4, DateRange: "S1", Filename: "EDT-INFO4-S1.xlsx", Path: "schedules/x"}
	require.NoError(t, repo.Create(context.Background(), sheet))
	assert.NotEmpty(t, sheet.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
