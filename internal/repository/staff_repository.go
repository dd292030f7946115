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

// StaffRepository persists teachers, administrators and their teaching assignments.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByID loads a staff member with its teaching assignments.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	const query = `SELECT id, email, full_name, department, role, created_at, updated_at FROM staff WHERE id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	assignments, err := r.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	staff.Assignments = assignments
	return &staff, nil
}

// ListAssignments returns the teaching assignments of a staff member in entry order.
func (r *StaffRepository) ListAssignments(ctx context.Context, staffID string) ([]models.TeachingAssignment, error) {
	const query = `SELECT id, staff_id, subject, type, major, groups FROM teaching_assignments WHERE staff_id = $1 ORDER BY position ASC`
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, staffID); err != nil {
		return nil, fmt.Errorf("list teaching assignments: %w", err)
	}
	return assignments, nil
}

// Upsert inserts a staff member or updates the row sharing the same email.
func (r *StaffRepository) Upsert(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now
	const query = `INSERT INTO staff (id, email, full_name, department, role, created_at, updated_at)
        VALUES (:id, :email, :full_name, :department, :role, :created_at, :updated_at)
        ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, department = EXCLUDED.department,
        role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, staff)
	if err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&staff.ID); err != nil {
			return fmt.Errorf("scan upserted staff id: %w", err)
		}
	}
	return rows.Err()
}

// ReplaceAssignments swaps all teaching assignments of a staff member atomically.
func (r *StaffRepository) ReplaceAssignments(ctx context.Context, staffID string, assignments []models.TeachingAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teaching_assignments WHERE staff_id = $1`, staffID); err != nil {
		return fmt.Errorf("clear teaching assignments: %w", err)
	}
	const insert = `INSERT INTO teaching_assignments (id, staff_id, subject, type, major, groups, position) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.StaffID = staffID
		if a.Groups == nil {
			a.Groups = []string{}
		}
		if _, err = tx.ExecContext(ctx, insert, a.ID, staffID, a.Subject, a.Type, a.Major, a.Groups, i); err != nil {
			return fmt.Errorf("insert teaching assignment: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// List returns every staff member sorted by name, each with its teaching assignments.
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, email, full_name, department, role, created_at, updated_at FROM staff ORDER BY full_name ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	if len(staff) == 0 {
		return staff, nil
	}

	const assignmentsQuery = `SELECT id, staff_id, subject, type, major, groups FROM teaching_assignments ORDER BY staff_id ASC, position ASC`
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentsQuery); err != nil {
		return nil, fmt.Errorf("list teaching assignments: %w", err)
	}
	byStaff := make(map[string][]models.TeachingAssignment, len(staff))
	for _, a := range assignments {
		byStaff[a.StaffID] = append(byStaff[a.StaffID], a)
	}
	for i := range staff {
		staff[i].Assignments = byStaff[staff[i].ID]
	}
	return staff, nil
}

// Update rewrites name, email and department. sql.ErrNoRows is returned when the member does not exist.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff SET email = :email, full_name = :full_name, department = :department, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, staff)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return expectAffected(res, "update staff")
}

// Delete removes a staff member; teaching assignments cascade.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	return expectAffected(res, "delete staff")
}
