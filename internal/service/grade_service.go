package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type gradeSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByCohort(ctx context.Context, major string, year int) ([]models.Subject, error)
}

type gradeMarkRepository interface {
	ListByStudent(ctx context.Context, studentID string, subjectIDs []string) ([]models.Mark, error)
	SetScores(ctx context.Context, subjectID string, updates []models.MarkUpdate) error
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// GradeService stores raw marks and computes student grade reports.
type GradeService struct {
	subjects  gradeSubjectRepository
	marks     gradeMarkRepository
	students  gradeStudentRepository
	audit     auditLogWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	reportTTL time.Duration
}

// NewGradeService constructs a GradeService.
func NewGradeService(subjects gradeSubjectRepository, marks gradeMarkRepository, students gradeStudentRepository, audit auditLogWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, reportTTL time.Duration) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		subjects:  subjects,
		marks:     marks,
		students:  students,
		audit:     audit,
		cache:     cache,
		validator: newValidator(validate),
		logger:    logger,
		reportTTL: reportTTL,
	}
}

// SaveMarks applies score updates to a subject. Keys must be cc, cf, ratt or an
// existing column id; nothing is written when any key is unknown.
func (s *GradeService) SaveMarks(ctx context.Context, actor models.Actor, subjectID string, req models.SaveMarksRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Upstream(err, "failed to load subject")
	}

	touched := make(map[string]struct{})
	for i := range req.Updates {
		key := strings.TrimSpace(req.Updates[i].Key)
		if !isScoreKey(subject, key) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown mark key %q", key))
		}
		req.Updates[i].Key = key
		touched[req.Updates[i].StudentID] = struct{}{}
	}

	if err := s.marks.SetScores(ctx, subjectID, req.Updates); err != nil {
		return appErrors.Upstream(err, "failed to save marks")
	}

	keys := make([]string, 0, len(touched))
	for studentID := range touched {
		keys = append(keys, cacheKeyStudentReport+studentID)
	}
	_ = s.cache.Delete(ctx, keys...)

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionMarksSave, "subject", subjectID, map[string]interface{}{
		"updates":  len(req.Updates),
		"students": len(touched),
	})
	return nil
}

// StudentReport computes the grades of every subject of the student's major and year.
func (s *GradeService) StudentReport(ctx context.Context, studentID string) (*models.StudentReport, error) {
	cacheKey := cacheKeyStudentReport + studentID
	var cached models.StudentReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Upstream(err, "failed to load student")
	}

	subjects, err := s.subjects.ListByCohort(ctx, student.Major, student.Year)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load subjects")
	}
	ids := make([]string, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	marks, err := s.marks.ListByStudent(ctx, studentID, ids)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load marks")
	}
	bySubject := make(map[string]*models.Mark, len(marks))
	for i := range marks {
		bySubject[marks[i].SubjectID] = &marks[i]
	}

	report := &models.StudentReport{
		StudentID:   student.ID,
		StudentName: student.FullName,
		Major:       student.Major,
		Year:        student.Year,
		Subjects:    make([]models.SubjectGrade, 0, len(subjects)),
	}
	for _, subject := range subjects {
		report.Subjects = append(report.Subjects, ComputeSubjectGrade(subject, bySubject[subject.ID]))
	}
	report.GeneralAverage = AggregateStudentReport(report.Subjects)

	_ = s.cache.Set(ctx, cacheKey, report, s.reportTTL)
	return report, nil
}

func isScoreKey(subject *models.Subject, key string) bool {
	switch key {
	case models.ScoreKeyCC, models.ScoreKeyCF, models.ScoreKeyRatt:
		return true
	case "":
		return false
	}
	return subject.Columns.Has(key)
}
