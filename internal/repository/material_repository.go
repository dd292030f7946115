package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// MaterialRepository persists course material metadata. Files live in the blob store.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs a MaterialRepository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

const materialColumns = `id, subject, major, category, filename, path, file_type, uploaded_by, teacher_name, uploaded_at`

// Create inserts a material row.
func (r *MaterialRepository) Create(ctx context.Context, m *models.CourseMaterial) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.UploadedAt.IsZero() {
		m.UploadedAt = time.Now().UTC()
	}
	query := `INSERT INTO course_materials (` + materialColumns + `)
        VALUES (:id, :subject, :major, :category, :filename, :path, :file_type, :uploaded_by, :teacher_name, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create course material: %w", err)
	}
	return nil
}

// ListBySubject returns the materials of a subject for a major, newest first.
func (r *MaterialRepository) ListBySubject(ctx context.Context, subject, major string) ([]models.CourseMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM course_materials
        WHERE subject = $1 AND UPPER(TRIM(major)) = UPPER(TRIM($2))
        ORDER BY uploaded_at DESC`
	var out []models.CourseMaterial
	if err := r.db.SelectContext(ctx, &out, query, subject, major); err != nil {
		return nil, fmt.Errorf("list course materials: %w", err)
	}
	return out, nil
}
