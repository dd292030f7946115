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

// AttendanceRepository persists the attendance ledger. The session_id column is
// unique so a record can be written only once per session.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, session_id, teacher_id, teacher_name, subject, session_type, group_name, week_label, major, year, postponed, entries, submitted_at`

// ExistsBySessionID reports whether the session already has a ledger record.
func (r *AttendanceRepository) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM attendance_records WHERE session_id = $1 LIMIT 1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check attendance record: %w", err)
	}
	return true, nil
}

// Insert writes the record unless the session already has one. It returns false
// when the unique constraint suppressed the write.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	query := `INSERT INTO attendance_records (` + attendanceColumns + `)
        VALUES (:id, :session_id, :teacher_id, :teacher_name, :subject, :session_type, :group_name, :week_label, :major, :year, :postponed, :entries, :submitted_at)
        ON CONFLICT (session_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attendance rows affected: %w", err)
	}
	return affected == 1, nil
}

// StatusBySessionIDs returns the ledger state of every listed session that has a record.
func (r *AttendanceRepository) StatusBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.LedgerState, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT session_id, postponed FROM attendance_records WHERE session_id = ANY($1)`
	var states []models.LedgerState
	if err := r.db.SelectContext(ctx, &states, query, pq.Array(sessionIDs)); err != nil {
		return nil, fmt.Errorf("load ledger states: %w", err)
	}
	return states, nil
}

// ListByStudent returns records containing an entry for the student, oldest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	filter, err := json.Marshal([]map[string]string{{"id": studentID}})
	if err != nil {
		return nil, fmt.Errorf("marshal student filter: %w", err)
	}
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE entries @> $1::jsonb ORDER BY submitted_at ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, string(filter)); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return records, nil
}

// ListAll returns every record, newest first.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records ORDER BY submitted_at DESC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}
