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

var studentRowColumns = []string{"id", "email", "full_name", "major", "year", "td_group", "tp_group", "scholarship", "graduated", "created_at", "updated_at"}

func TestStudentRepositoryListByCohortWholePromotion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "a@campus.test", "Amina", "INFO", 4, "TD1", "TP1", false, false, now, now).
		AddRow("s2", "b@campus.test", "Bilal", "INFO", 4, "TD1", "TP2", false, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE major = $1 AND year = $2 ORDER BY full_name ASC")).
		WithArgs("INFO", 4).
		WillReturnRows(rows)

	students, err := repo.ListByCohort(context.Background(), "INFO", 4, models.PromoGroup)
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByCohortGroup(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s2", "b@campus.test", "Bilal", "INFO", 4, "TD1", "TP2", false, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("AND (td_group = $3 OR tp_group = $3) ORDER BY full_name ASC")).
		WithArgs("INFO", 4, "TP2").
		WillReturnRows(rows)

	students, err := repo.ListByCohort(context.Background(), "INFO", 4, "TP2")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "TP2", students[0].TPGroup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students .* ON CONFLICT \\(email\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s9"))

	student := &models.Student{Email: "c@campus.test", FullName: "Chloé", Major: "INFO", Year: 4}
	require.NoError(t, repo.Upsert(context.Background(), student))
	assert.Equal(t, "s9", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateAndDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET email = ")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET email = ")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	student := &models.Student{ID: "s1", Email: "a@campus.test", FullName: "Amina", Major: "INFO", Year: 4}
	require.NoError(t, repo.Update(context.Background(), student))
	assert.False(t, student.UpdatedAt.IsZero())
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Student{ID: "ghost"}), sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY major ASC, year ASC, full_name ASC")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("s1", "a@campus.test", "Amina", "INFO", 4, "TD1", "TP1", true, false, now, now))

	students, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.True(t, students[0].Scholarship)
	assert.NoError(t, mock.ExpectationsWereMet())
}
