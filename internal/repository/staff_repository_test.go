package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func TestStaffRepositoryFindByIDLoadsAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM staff WHERE id = \\$1").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "department", "role", "created_at", "updated_at"}).
			AddRow("t1", "prof@campus.test", "Prof", "Informatique", "TEACHER", now, now))
	mock.ExpectQuery("FROM teaching_assignments WHERE staff_id = \\$1 ORDER BY position").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "staff_id", "subject", "type", "major", "groups"}).
			AddRow("a1", "t1", "Réseaux", "CM", "INFO", "{}").
			AddRow("a2", "t1", "Réseaux", "TP", "INFO", "{TP1,TP2}"))

	staff, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, staff.Assignments, 2)
	assert.Equal(t, []string{"TP1", "TP2"}, []string(staff.Assignments[1].Groups))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryReplaceAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM teaching_assignments WHERE staff_id = \\$1").WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO teaching_assignments").
		WithArgs(sqlmock.AnyArg(), "t1", "Réseaux", models.SessionTypeTP, "INFO", sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAssignments(context.Background(), "t1", []models.TeachingAssignment{
		{Subject: "Réseaux", Type: models.SessionTypeTP, Major: "INFO", Groups: []string{"TP1"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryReplaceAssignmentsRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM teaching_assignments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO teaching_assignments").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.ReplaceAssignments(context.Background(), "t1", []models.TeachingAssignment{
		{Subject: "Réseaux", Type: models.SessionTypeCM, Major: "INFO"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryListAttachesAssignments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM staff ORDER BY full_name ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "department", "role", "created_at", "updated_at"}).
			AddRow("a1", "admin@campus.test", "Admin", "Scolarité", "ADMIN", now, now).
			AddRow("t1", "prof@campus.test", "Prof", "Informatique", "TEACHER", now, now))
	mock.ExpectQuery("FROM teaching_assignments ORDER BY staff_id ASC, position ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "staff_id", "subject", "type", "major", "groups"}).
			AddRow("x1", "t1", "Réseaux", "CM", "INFO", "{}").
			AddRow("x2", "t1", "Réseaux", "TP", "INFO", "{TP1}"))

	staff, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Empty(t, staff[0].Assignments)
	require.Len(t, staff[1].Assignments, 2)
	assert.Equal(t, models.SessionTypeTP, staff[1].Assignments[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("DELETE FROM staff WHERE id = \\$1").WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE staff SET email = ").WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), sql.ErrNoRows)
	require.NoError(t, repo.Update(context.Background(), &models.Staff{ID: "t1", Email: "prof@campus.test", FullName: "Prof"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
