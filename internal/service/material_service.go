package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

type materialRepository interface {
	Create(ctx context.Context, m *models.CourseMaterial) error
	ListBySubject(ctx context.Context, subject, major string) ([]models.CourseMaterial, error)
}

type materialStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type materialStaffRepository interface {
	ListAssignments(ctx context.Context, staffID string) ([]models.TeachingAssignment, error)
}

// MaterialService shares course files between teachers and the students of a major.
type MaterialService struct {
	repo      materialRepository
	students  materialStudentRepository
	staff     materialStaffRepository
	blobs     storage.BlobStore
	signer    *storage.SignedURLSigner
	audit     auditLogWriter
	validator *validator.Validate
	logger    *zap.Logger
	apiPrefix string
	now       func() time.Time
}

// NewMaterialService constructs a MaterialService.
func NewMaterialService(repo materialRepository, students materialStudentRepository, staff materialStaffRepository, blobs storage.BlobStore, signer *storage.SignedURLSigner, audit auditLogWriter, validate *validator.Validate, logger *zap.Logger, apiPrefix string) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{
		repo:      repo,
		students:  students,
		staff:     staff,
		blobs:     blobs,
		signer:    signer,
		audit:     audit,
		validator: newValidator(validate),
		logger:    logger,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		now:       time.Now,
	}
}

// Upload stores every file for the subject and major. Empty files reject the
// whole batch before anything is written; a storage failure aborts the rest.
func (s *MaterialService) Upload(ctx context.Context, actor models.Actor, req models.MaterialUploadRequest, files []models.UploadedFile) ([]models.CourseMaterial, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Major = strings.ToUpper(strings.TrimSpace(req.Major))
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "subject and major are required")
	}
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded")
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, f.Filename+" is empty")
		}
	}

	uploaded := make([]models.CourseMaterial, 0, len(files))
	for _, f := range files {
		name := storage.SanitizeFilename(f.Filename)
		path, err := s.blobs.Save(ctx, "materials", f.Data, name)
		if err != nil {
			return nil, appErrors.Upstream(err, "failed to store "+name)
		}
		material := models.CourseMaterial{
			Subject:     req.Subject,
			Major:       req.Major,
			Category:    req.Category,
			Filename:    name,
			Path:        path,
			FileType:    fileExtension(name),
			UploadedBy:  optionalString(actor.UserID),
			TeacherName: actor.FullName,
			UploadedAt:  s.now().UTC(),
		}
		if err := s.repo.Create(ctx, &material); err != nil {
			if delErr := s.blobs.Delete(ctx, path); delErr != nil {
				s.logger.Warn("failed to remove orphan material", zap.String("path", path), zap.Error(delErr))
			}
			return nil, appErrors.Upstream(err, "failed to record "+name)
		}
		material.Link = downloadLink(s.signer, s.apiPrefix, material.ID, material.Path)
		uploaded = append(uploaded, material)
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionMaterialUpload, "course_material", req.Subject, map[string]interface{}{
		"major": req.Major,
		"files": len(uploaded),
	})
	return uploaded, nil
}

// ListForStudent returns the materials of a subject for the caller's major, newest first.
func (s *MaterialService) ListForStudent(ctx context.Context, actor models.Actor, subject string) ([]models.CourseMaterial, error) {
	student, err := s.students.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Upstream(err, "failed to load student")
	}
	list, err := s.repo.ListBySubject(ctx, strings.TrimSpace(subject), student.Major)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list materials")
	}
	if list == nil {
		list = []models.CourseMaterial{}
	}
	for i := range list {
		list[i].Link = downloadLink(s.signer, s.apiPrefix, list[i].ID, list[i].Path)
	}
	return list, nil
}

// UploadOptions returns the distinct subject and major pairs of the caller's
// teaching assignments, in assignment order.
func (s *MaterialService) UploadOptions(ctx context.Context, actor models.Actor) ([]models.UploadOption, error) {
	assignments, err := s.staff.ListAssignments(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load teaching assignments")
	}
	seen := make(map[string]bool, len(assignments))
	options := make([]models.UploadOption, 0, len(assignments))
	for _, a := range assignments {
		key := a.Subject + "|" + a.Major
		if seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, models.UploadOption{Subject: a.Subject, Major: a.Major})
	}
	return options, nil
}
