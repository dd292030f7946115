package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func TestMaterialRepositoryListBySubjectFiltersMajor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM course_materials\s+WHERE subject = \$1 AND UPPER\(TRIM\(major\)\) = UPPER\(TRIM\(\$2\)\)\s+ORDER BY uploaded_at DESC`).
		WithArgs("Réseaux", "INFO").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "major", "category", "filename", "path", "file_type", "uploaded_by", "teacher_name", "uploaded_at"}).
			AddRow("m1", "Réseaux", "INFO", "TD", "td1.pdf", "materials/1_m_td1.pdf", "pdf", "t1", "M. Haddad", now))

	list, err := repo.ListBySubject(context.Background(), "Réseaux", "INFO")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pdf", list[0].FileType)
	require.NotNil(t, list[0].UploadedBy)
	assert.Equal(t, "t1", *list[0].UploadedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec("INSERT INTO course_materials").WillReturnResult(sqlmock.NewResult(1, 1))

	m := &models.CourseMaterial{Subject: "Réseaux", Major: "INFO", Filename: "td1.pdf", Path: "materials/x"}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.NotEmpty(t, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
