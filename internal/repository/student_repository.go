package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, email, full_name, major, year, td_group, tp_group, scholarship, graduated, created_at, updated_at`

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListByCohort returns students of a major and year sorted by name. A group other
// than the whole promotion restricts to students whose td or tp group matches.
func (r *StudentRepository) ListByCohort(ctx context.Context, major string, year int, group string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE major = $1 AND year = $2`
	args := []interface{}{major, year}
	if group != "" && group != models.PromoGroup {
		query += ` AND (td_group = $3 OR tp_group = $3)`
		args = append(args, group)
	}
	query += ` ORDER BY full_name ASC`

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students by cohort: %w", err)
	}
	return students, nil
}

// Upsert inserts a student or updates the row sharing the same email.
// The stored id is written back to student.ID.
func (r *StudentRepository) Upsert(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, email, full_name, major, year, td_group, tp_group, scholarship, graduated, created_at, updated_at)
        VALUES (:id, :email, :full_name, :major, :year, :td_group, :tp_group, :scholarship, :graduated, :created_at, :updated_at)
        ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, major = EXCLUDED.major, year = EXCLUDED.year,
        td_group = EXCLUDED.td_group, tp_group = EXCLUDED.tp_group, scholarship = EXCLUDED.scholarship,
        graduated = EXCLUDED.graduated, updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&student.ID); err != nil {
			return fmt.Errorf("scan upserted student id: %w", err)
		}
	}
	return rows.Err()
}

// List returns every student sorted by major, year and name.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY major ASC, year ASC, full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Update rewrites the profile of a student. sql.ErrNoRows is returned when the student does not exist.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET email = :email, full_name = :full_name, major = :major, year = :year,
        td_group = :td_group, tp_group = :tp_group, scholarship = :scholarship, graduated = :graduated, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// Delete removes a student. sql.ErrNoRows is returned when the student does not exist.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res, "delete student")
}
