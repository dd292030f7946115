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

// DocumentRequestRepository persists administrative document requests.
type DocumentRequestRepository struct {
	db *sqlx.DB
}

// NewDocumentRequestRepository constructs the repository.
func NewDocumentRequestRepository(db *sqlx.DB) *DocumentRequestRepository {
	return &DocumentRequestRepository{db: db}
}

const documentRequestColumns = `id, student_id, student_name, document_type, details, status, rejection_reason, artifact_path, requested_at, processed_at, processed_by`

// Create inserts a request.
func (r *DocumentRequestRepository) Create(ctx context.Context, req *models.DocumentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	query := `INSERT INTO document_requests (` + documentRequestColumns + `)
        VALUES (:id, :student_id, :student_name, :document_type, :details, :status, :rejection_reason, :artifact_path, :requested_at, :processed_at, :processed_by)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create document request: %w", err)
	}
	return nil
}

// FindByID fetches a request.
func (r *DocumentRequestRepository) FindByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := `SELECT ` + documentRequestColumns + ` FROM document_requests WHERE id = $1`
	var req models.DocumentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find document request: %w", err)
	}
	return &req, nil
}

// ListByStudent returns a student's requests, newest first.
func (r *DocumentRequestRepository) ListByStudent(ctx context.Context, studentID string) ([]models.DocumentRequest, error) {
	query := `SELECT ` + documentRequestColumns + ` FROM document_requests WHERE student_id = $1 ORDER BY requested_at DESC`
	var reqs []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &reqs, query, studentID); err != nil {
		return nil, fmt.Errorf("list document requests by student: %w", err)
	}
	return reqs, nil
}

// ListAll returns every request, newest first.
func (r *DocumentRequestRepository) ListAll(ctx context.Context) ([]models.DocumentRequest, error) {
	query := `SELECT ` + documentRequestColumns + ` FROM document_requests ORDER BY requested_at DESC`
	var reqs []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, fmt.Errorf("list document requests: %w", err)
	}
	return reqs, nil
}

// MarkCompleted moves a pending request to completed. It returns false when the
// request was not pending anymore (or does not exist).
func (r *DocumentRequestRepository) MarkCompleted(ctx context.Context, id, artifactPath, processedBy string, at time.Time) (bool, error) {
	const query = `UPDATE document_requests SET status = $2, artifact_path = $3, processed_by = $4, processed_at = $5
        WHERE id = $1 AND status = $6`
	return r.transition(ctx, query, id, models.DocumentCompleted, artifactPath, nullable(processedBy), at, models.DocumentPending)
}

// MarkRejected moves a pending request to rejected with a reason.
func (r *DocumentRequestRepository) MarkRejected(ctx context.Context, id, reason, processedBy string, at time.Time) (bool, error) {
	const query = `UPDATE document_requests SET status = $2, rejection_reason = $3, processed_by = $4, processed_at = $5
        WHERE id = $1 AND status = $6`
	return r.transition(ctx, query, id, models.DocumentRejected, reason, nullable(processedBy), at, models.DocumentPending)
}

func (r *DocumentRequestRepository) transition(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition document request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("document request rows affected: %w", err)
	}
	return affected == 1, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
