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

	"github.com/noah-isme/campus-records-api/internal/models"
)

// SubjectRepository persists subject grading configuration.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, name, major, year, type, weights, columns, created_at, updated_at`

// FindByID fetches a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	return r.getOne(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, "find subject", id)
}

// FindByNameAndMajor fetches the first subject with the name in the major.
func (r *SubjectRepository) FindByNameAndMajor(ctx context.Context, name, major string) (*models.Subject, error) {
	return r.getOne(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE name = $1 AND major = $2 ORDER BY year ASC LIMIT 1`, "find subject by name and major", name, major)
}

// FindByName fetches the first subject with the name in any major.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	return r.getOne(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE name = $1 ORDER BY major ASC, year ASC LIMIT 1`, "find subject by name", name)
}

func (r *SubjectRepository) getOne(ctx context.Context, query, op string, args ...interface{}) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &subject, nil
}

// ListByCohort returns subjects of a major and year sorted by name.
func (r *SubjectRepository) ListByCohort(ctx context.Context, major string, year int) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE major = $1 AND year = $2 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, major, year); err != nil {
		return nil, fmt.Errorf("list subjects by cohort: %w", err)
	}
	return subjects, nil
}

// ListNamesByMajor returns distinct subject names of a major.
func (r *SubjectRepository) ListNamesByMajor(ctx context.Context, major string) ([]string, error) {
	const query = `SELECT DISTINCT name FROM subjects WHERE major = $1 ORDER BY name ASC`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, major); err != nil {
		return nil, fmt.Errorf("list subject names: %w", err)
	}
	return names, nil
}

// Upsert inserts a subject or replaces the configuration of the same (name, major, year).
func (r *SubjectRepository) Upsert(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now
	query := `INSERT INTO subjects (` + subjectColumns + `)
        VALUES (:id, :name, :major, :year, :type, :weights, :columns, :created_at, :updated_at)
        ON CONFLICT (name, major, year) DO UPDATE SET type = EXCLUDED.type, weights = EXCLUDED.weights,
        columns = EXCLUDED.columns, updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&subject.ID); err != nil {
			return fmt.Errorf("scan upserted subject id: %w", err)
		}
	}
	return rows.Err()
}

// UpdateWeights stores new weights. sql.ErrNoRows is returned when the subject does not exist.
func (r *SubjectRepository) UpdateWeights(ctx context.Context, id string, weights models.Weights) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subjects SET weights = $2, updated_at = $3 WHERE id = $1`, id, weights, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update subject weights: %w", err)
	}
	return expectAffected(res, "update subject weights")
}

// AppendColumn adds a column at the end of the subject's column list.
func (r *SubjectRepository) AppendColumn(ctx context.Context, id string, column models.Column) error {
	payload, err := json.Marshal([]models.Column{column})
	if err != nil {
		return fmt.Errorf("marshal column: %w", err)
	}
	const query = `UPDATE subjects SET columns = COALESCE(columns, '[]'::jsonb) || $2::jsonb, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append subject column: %w", err)
	}
	return expectAffected(res, "append subject column")
}

// DeleteColumn removes the column from the subject and purges its key from every
// mark of the subject in a single transaction. It returns the number of marks touched.
func (r *SubjectRepository) DeleteColumn(ctx context.Context, id, columnID string) (purged int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete column: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const pull = `UPDATE subjects SET columns = COALESCE((SELECT jsonb_agg(c) FROM jsonb_array_elements(columns) AS c WHERE c->>'id' <> $2), '[]'::jsonb), updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, pull, id, columnID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("pull subject column: %w", err)
	}
	if err = expectAffected(res, "pull subject column"); err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `UPDATE marks SET scores = scores - $2::text, updated_at = $3 WHERE subject_id = $1 AND scores ? $2`, id, columnID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("unset column from marks: %w", err)
	}
	purged, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marks rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete column: %w", err)
	}
	return purged, nil
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
