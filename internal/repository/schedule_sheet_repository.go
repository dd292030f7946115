package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// ScheduleSheetRepository persists uploaded timetable metadata.
type ScheduleSheetRepository struct {
	db *sqlx.DB
}

// NewScheduleSheetRepository constructs the repository.
func NewScheduleSheetRepository(db *sqlx.DB) *ScheduleSheetRepository {
	return &ScheduleSheetRepository{db: db}
}

const scheduleSheetColumns = `id, major, year, date_range, filename, path, uploaded_by, uploaded_at`

// Create inserts a schedule sheet.
func (r *ScheduleSheetRepository) Create(ctx context.Context, sheet *models.ScheduleSheet) error {
	if sheet.ID == "" {
		sheet.ID = uuid.NewString()
	}
	if sheet.UploadedAt.IsZero() {
		sheet.UploadedAt = time.Now().UTC()
	}
	query := `INSERT INTO schedule_sheets (` + scheduleSheetColumns + `)
        VALUES (:id, :major, :year, :date_range, :filename, :path, :uploaded_by, :uploaded_at)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("create schedule sheet: %w", err)
	}
	return nil
}

// ListRecent returns at most limit sheets, most recently uploaded first.
func (r *ScheduleSheetRepository) ListRecent(ctx context.Context, limit int) ([]models.ScheduleSheet, error) {
	return r.List(ctx, models.ScheduleFilter{Limit: limit})
}

// List returns sheets matching the filter, newest first.
func (r *ScheduleSheetRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSheet, error) {
	query := `SELECT ` + scheduleSheetColumns + ` FROM schedule_sheets WHERE 1=1`
	args := []interface{}{}
	if filter.Major != "" {
		args = append(args, filter.Major)
		query += fmt.Sprintf(" AND UPPER(TRIM(major)) = UPPER(TRIM($%d))", len(args))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(" AND year = $%d", len(args))
	}
	query += " ORDER BY uploaded_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var sheets []models.ScheduleSheet
	if err := r.db.SelectContext(ctx, &sheets, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule sheets: %w", err)
	}
	return sheets, nil
}
