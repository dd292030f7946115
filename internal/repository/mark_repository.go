package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// MarkRepository persists raw scores per (student, subject).
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs a MarkRepository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

const markColumns = `id, student_id, subject_id, scores, updated_at`

// Find returns the mark of a student in a subject. sql.ErrNoRows means no mark exists.
func (r *MarkRepository) Find(ctx context.Context, studentID, subjectID string) (*models.Mark, error) {
	query := `SELECT ` + markColumns + ` FROM marks WHERE student_id = $1 AND subject_id = $2`
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, studentID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find mark: %w", err)
	}
	return &mark, nil
}

// ListBySubject returns every mark of a subject.
func (r *MarkRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Mark, error) {
	query := `SELECT ` + markColumns + ` FROM marks WHERE subject_id = $1`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, subjectID); err != nil {
		return nil, fmt.Errorf("list marks by subject: %w", err)
	}
	return marks, nil
}

// ListByStudent returns the student's marks for the listed subjects.
func (r *MarkRepository) ListByStudent(ctx context.Context, studentID string, subjectIDs []string) ([]models.Mark, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + markColumns + ` FROM marks WHERE student_id = $1 AND subject_id = ANY($2)`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, studentID, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list marks by student: %w", err)
	}
	return marks, nil
}

// SetScores upserts each update into the (student, subject) mark, setting only the
// given key and leaving other keys untouched. All updates commit together.
func (r *MarkRepository) SetScores(ctx context.Context, subjectID string, updates []models.MarkUpdate) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save marks: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO marks (id, student_id, subject_id, scores, updated_at)
        VALUES ($1, $2, $3, jsonb_build_object($4::text, $5::jsonb), $6)
        ON CONFLICT (student_id, subject_id) DO UPDATE SET scores = marks.scores || EXCLUDED.scores, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, up := range updates {
		value := up.Value
		if len(value) == 0 {
			value = json.RawMessage(`""`)
		}
		if _, err = tx.ExecContext(ctx, query, uuid.NewString(), up.StudentID, subjectID, up.Key, string(value), now); err != nil {
			return fmt.Errorf("save mark %s for %s: %w", up.Key, up.StudentID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save marks: %w", err)
	}
	return nil
}

// Replace overwrites the whole score map of a (student, subject) pair.
func (r *MarkRepository) Replace(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.UpdatedAt.IsZero() {
		mark.UpdatedAt = time.Now().UTC()
	}
	query := `INSERT INTO marks (` + markColumns + `) VALUES (:id, :student_id, :subject_id, :scores, :updated_at)
        ON CONFLICT (student_id, subject_id) DO UPDATE SET scores = EXCLUDED.scores, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("replace mark: %w", err)
	}
	return nil
}
