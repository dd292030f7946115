package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/export"
)

type attendanceLedgerRepository interface {
	ExistsBySessionID(ctx context.Context, sessionID string) (bool, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	ListAll(ctx context.Context) ([]models.AttendanceRecord, error)
}

// AttendanceService manages the write-once attendance ledger and its read models.
type AttendanceService struct {
	ledger    attendanceLedgerRepository
	audit     auditLogWriter
	cache     *CacheService
	metrics   *MetricsService
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(ledger attendanceLedgerRepository, audit auditLogWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		ledger:    ledger,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(export.WithBOM()),
		validator: newValidator(validate),
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records attendance for a session. A second submission for the same
// session is rejected with DUPLICATE and writes nothing.
func (s *AttendanceService) Submit(ctx context.Context, actor models.Actor, req models.SubmitAttendanceRequest) (*models.AttendanceRecord, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Type = models.SessionType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	for i := range req.Students {
		req.Students[i].Status = models.NormalizeAttendanceStatus(string(req.Students[i].Status))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	exists, err := s.ledger.ExistsBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to check attendance ledger")
	}
	if exists {
		s.metrics.RecordAttendanceSubmission("duplicate")
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "attendance already submitted for session "+req.SessionID)
	}

	entries := make(models.AttendanceEntries, len(req.Students))
	copy(entries, req.Students)
	record := &models.AttendanceRecord{
		SessionID:   req.SessionID,
		TeacherID:   actor.UserID,
		TeacherName: actor.FullName,
		Subject:     req.Subject,
		SessionType: req.Type,
		GroupName:   req.Group,
		WeekLabel:   req.WeekLabel,
		Major:       strings.ToUpper(strings.TrimSpace(req.Major)),
		Year:        req.Year,
		Postponed:   req.Postponed,
		Entries:     entries,
		SubmittedAt: s.now().UTC(),
	}

	created, err := s.ledger.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to store attendance")
	}
	if !created {
		s.metrics.RecordAttendanceSubmission("duplicate")
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "attendance already submitted for session "+req.SessionID)
	}
	s.metrics.RecordAttendanceSubmission("created")

	s.recordAudit(ctx, actor, record)
	_ = s.cache.Invalidate(ctx, cacheKeyTeacherSessions+"*")
	return record, nil
}

// StudentSummary aggregates the ledger per subject for one student. Each absent
// entry counts double; history is chronological by submission.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID string) ([]models.AbsenceSummary, error) {
	records, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load attendance")
	}
	return SummarizeAbsences(studentID, records), nil
}

// SummarizeAbsences folds ledger records into per-subject summaries in first-seen order.
func SummarizeAbsences(studentID string, records []models.AttendanceRecord) []models.AbsenceSummary {
	summaries := []models.AbsenceSummary{}
	index := make(map[string]int)
	for _, record := range records {
		entry, ok := findEntry(record.Entries, studentID)
		if !ok {
			continue
		}
		pos, seen := index[record.Subject]
		if !seen {
			pos = len(summaries)
			index[record.Subject] = pos
			summaries = append(summaries, models.AbsenceSummary{Subject: record.Subject, History: []models.AbsenceHistoryEntry{}})
		}
		summary := &summaries[pos]
		if entry.Status == models.AttendanceAbsent {
			summary.Absences += models.AbsenceWeight
		}
		summary.History = append(summary.History, models.AbsenceHistoryEntry{
			Date:        record.SubmittedAt,
			Status:      entry.Status,
			SessionType: record.SessionType,
		})
	}
	return summaries
}

// GlobalAbsences flattens every absent entry of the ledger, newest first.
func (s *AttendanceService) GlobalAbsences(ctx context.Context) ([]models.AbsenceRow, error) {
	records, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load attendance")
	}
	rows := []models.AbsenceRow{}
	for _, record := range records {
		for _, entry := range record.Entries {
			if entry.Status != models.AttendanceAbsent {
				continue
			}
			rows = append(rows, models.AbsenceRow{
				Date:        record.SubmittedAt,
				StudentID:   entry.StudentID,
				StudentName: entry.Name,
				Subject:     record.Subject,
				Group:       record.GroupName,
				TeacherName: record.TeacherName,
			})
		}
	}
	return rows, nil
}

// ExportGlobalAbsencesCSV renders GlobalAbsences as CSV.
func (s *AttendanceService) ExportGlobalAbsencesCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.GlobalAbsences(ctx)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: []string{"date", "student_id", "student_name", "subject", "group", "teacher"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":         row.Date.Format("2006-01-02 15:04"),
			"student_id":   row.StudentID,
			"student_name": row.StudentName,
			"subject":      row.Subject,
			"group":        row.Group,
			"teacher":      row.TeacherName,
		})
	}
	body, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render absences")
	}
	return body, nil
}

func (s *AttendanceService) recordAudit(ctx context.Context, actor models.Actor, record *models.AttendanceRecord) {
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionAttendanceSubmit, "attendance", record.ID, map[string]interface{}{
		"session_id": record.SessionID,
		"postponed":  record.Postponed,
		"entries":    len(record.Entries),
	})
}

func findEntry(entries models.AttendanceEntries, studentID string) (models.AttendanceEntry, bool) {
	for _, entry := range entries {
		if entry.StudentID == studentID {
			return entry, true
		}
	}
	return models.AttendanceEntry{}, false
}
