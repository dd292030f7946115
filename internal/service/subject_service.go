package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByNameAndMajor(ctx context.Context, name, major string) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	ListNamesByMajor(ctx context.Context, major string) ([]string, error)
	UpdateWeights(ctx context.Context, id string, weights models.Weights) error
	AppendColumn(ctx context.Context, id string, column models.Column) error
	DeleteColumn(ctx context.Context, id, columnID string) (int64, error)
}

type subjectStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByCohort(ctx context.Context, major string, year int, group string) ([]models.Student, error)
}

type subjectMarkRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Mark, error)
}

// SubjectService handles the subject catalog: grading sheets, weights and columns.
type SubjectService struct {
	repo      subjectRepository
	students  subjectStudentRepository
	marks     subjectMarkRepository
	audit     auditLogWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, students subjectStudentRepository, marks subjectMarkRepository, audit auditLogWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		repo:      repo,
		students:  students,
		marks:     marks,
		audit:     audit,
		cache:     cache,
		validator: newValidator(validate),
		logger:    logger,
		now:       time.Now,
	}
}

// GetGradingSheet returns the subject configuration and the audience roster with raw marks.
// The subject is looked up by name within the major, then by name alone.
func (s *SubjectService) GetGradingSheet(ctx context.Context, req models.GradingSheetRequest) (*models.GradingSheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading sheet request")
	}

	major := strings.ToUpper(strings.TrimSpace(req.Major))
	subject, err := s.findForSheet(ctx, strings.TrimSpace(req.Subject), major)
	if err != nil {
		return nil, err
	}

	role := models.SessionTypeTP
	group := strings.TrimSpace(req.Group)
	if group == models.PromoGroup {
		role = models.SessionTypeCM
	}

	// The audience is the requested major even when the subject was matched by name only.
	students, err := s.students.ListByCohort(ctx, major, subject.Year, group)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load students")
	}
	marks, err := s.marks.ListBySubject(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load marks")
	}
	byStudent := make(map[string]models.Scores, len(marks))
	for _, mark := range marks {
		byStudent[mark.StudentID] = mark.Scores
	}

	sheet := &models.GradingSheet{
		SubjectID:   subject.ID,
		CurrentRole: role,
		Weights:     subject.EffectiveWeights(),
		Columns:     subject.Columns,
		Students:    make([]models.GradingSheetStudent, 0, len(students)),
	}
	if sheet.Columns == nil {
		sheet.Columns = models.Columns{}
	}
	for _, st := range students {
		scores := byStudent[st.ID]
		if scores == nil {
			scores = models.Scores{}
		}
		sheet.Students = append(sheet.Students, models.GradingSheetStudent{
			ID:       st.ID,
			FullName: st.FullName,
			TDGroup:  st.TDGroup,
			TPGroup:  st.TPGroup,
			Marks:    scores,
		})
	}
	return sheet, nil
}

// UpdateWeights replaces the component weights of a subject. cc+labs+projects must be 50.
func (s *SubjectService) UpdateWeights(ctx context.Context, actor models.Actor, subjectID string, weights models.Weights) (*models.Subject, error) {
	if err := s.validator.Struct(weights); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weights payload")
	}
	if total := weights.Sum(); total != models.WeightsTotal {
		return nil, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("weights must sum to %d, got %s", models.WeightsTotal, strconv.FormatFloat(total, 'f', -1, 64)))
	}

	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWeights(ctx, subjectID, weights); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Upstream(err, "failed to update weights")
	}
	previous := subject.Weights
	subject.Weights = weights

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionWeightsUpdate, "subject", subjectID, map[string]interface{}{
		"old": previous,
		"new": weights,
	})
	s.invalidateReports(ctx)
	return subject, nil
}

// AddColumn appends a lab or project column. Ids are "<type>_<unix seconds>", suffixed when taken.
func (s *SubjectService) AddColumn(ctx context.Context, actor models.Actor, subjectID string, req models.AddColumnRequest) (*models.Column, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = models.ColumnType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid column payload")
	}

	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s_%d", req.Type, s.now().Unix())
	id := base
	for n := 2; subject.Columns.Has(id); n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	column := models.Column{ID: id, Name: req.Name, Type: req.Type}

	if err := s.repo.AppendColumn(ctx, subjectID, column); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Upstream(err, "failed to add column")
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionColumnAdd, "subject", subjectID, column)
	s.invalidateReports(ctx)
	return &column, nil
}

// DeleteColumn removes a column and purges its key from every mark of the subject.
func (s *SubjectService) DeleteColumn(ctx context.Context, actor models.Actor, subjectID, columnID string) error {
	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return err
	}
	if !subject.Columns.Has(columnID) {
		return appErrors.Clone(appErrors.ErrNotFound, "column not found")
	}

	purged, err := s.repo.DeleteColumn(ctx, subjectID, columnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Upstream(err, "failed to delete column")
	}

	s.logger.Info("subject column deleted",
		zap.String("subject_id", subjectID),
		zap.String("column_id", columnID),
		zap.Int64("marks_purged", purged),
	)
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionColumnDelete, "subject", subjectID, map[string]interface{}{
		"column_id":    columnID,
		"marks_purged": purged,
	})
	s.invalidateReports(ctx)
	return nil
}

// ListForStudent returns the subject names offered in the student's major.
func (s *SubjectService) ListForStudent(ctx context.Context, studentID string) ([]string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Upstream(err, "failed to load student")
	}
	names, err := s.repo.ListNamesByMajor(ctx, strings.ToUpper(strings.TrimSpace(student.Major)))
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list subjects")
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *SubjectService) findForSheet(ctx context.Context, name, major string) (*models.Subject, error) {
	subject, err := s.repo.FindByNameAndMajor(ctx, name, major)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Upstream(err, "failed to load subject")
	}
	subject, err = s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Upstream(err, "failed to load subject")
	}
	return subject, nil
}

func (s *SubjectService) load(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Upstream(err, "failed to load subject")
	}
	return subject, nil
}

func (s *SubjectService) invalidateReports(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cacheKeyStudentReport+"*")
}
