package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

type scheduleSheetRepository interface {
	Create(ctx context.Context, sheet *models.ScheduleSheet) error
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSheet, error)
}

type scheduleStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

var scheduleFilenamePattern = regexp.MustCompile(`(?i)EDT-([A-Za-z]+)(\d+)-(.+)\.xlsx?$`)

// ParseScheduleFilename extracts major, year and date range from
// "EDT-<MAJOR><YEAR>-<range>.xls[x]". ok is false when the name does not match.
func ParseScheduleFilename(filename string) (major string, year int, dateRange string, ok bool) {
	m := scheduleFilenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", 0, "", false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", false
	}
	return strings.ToUpper(m[1]), year, m[3], true
}

// ScheduleService stores uploaded timetables and lists them.
type ScheduleService struct {
	sheets    scheduleSheetRepository
	students  scheduleStudentRepository
	blobs     storage.BlobStore
	signer    *storage.SignedURLSigner
	sessions  *SessionService
	audit     auditLogWriter
	logger    *zap.Logger
	apiPrefix string
	now       func() time.Time
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(sheets scheduleSheetRepository, students scheduleStudentRepository, blobs storage.BlobStore, signer *storage.SignedURLSigner, sessions *SessionService, audit auditLogWriter, logger *zap.Logger, apiPrefix string) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		sheets:    sheets,
		students:  students,
		blobs:     blobs,
		signer:    signer,
		sessions:  sessions,
		audit:     audit,
		logger:    logger,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		now:       time.Now,
	}
}

// Upload stores each correctly named sheet. Misnamed or empty files are skipped
// and reported; a storage failure aborts the batch.
func (s *ScheduleService) Upload(ctx context.Context, actor models.Actor, files []models.UploadedFile) (*models.ScheduleUploadResult, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded")
	}
	result := &models.ScheduleUploadResult{Uploaded: []models.ScheduleSheet{}, Skipped: []models.SkippedFile{}}
	for _, file := range files {
		name := storage.SanitizeFilename(file.Filename)
		major, year, dateRange, ok := ParseScheduleFilename(name)
		if !ok {
			result.Skipped = append(result.Skipped, models.SkippedFile{Filename: file.Filename, Reason: "expected EDT-<MAJOR><YEAR>-<range>.xlsx"})
			continue
		}
		if len(file.Data) == 0 {
			result.Skipped = append(result.Skipped, models.SkippedFile{Filename: file.Filename, Reason: "empty file"})
			continue
		}

		path, err := s.blobs.Save(ctx, "schedules", file.Data, name)
		if err != nil {
			return nil, appErrors.Upstream(err, "failed to store schedule "+name)
		}
		sheet := models.ScheduleSheet{
			Major:      major,
			Year:       year,
			DateRange:  dateRange,
			Filename:   name,
			Path:       path,
			UploadedBy: optionalString(actor.UserID),
			UploadedAt: s.now().UTC(),
		}
		if err := s.sheets.Create(ctx, &sheet); err != nil {
			if delErr := s.blobs.Delete(ctx, path); delErr != nil {
				s.logger.Warn("failed to remove orphan schedule", zap.String("path", path), zap.Error(delErr))
			}
			return nil, appErrors.Upstream(err, "failed to record schedule "+name)
		}
		result.Uploaded = append(result.Uploaded, sheet)
	}

	if len(result.Uploaded) > 0 {
		if s.sessions != nil {
			s.sessions.InvalidateTeacherSessions(ctx)
		}
		writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionScheduleUpload, "schedule", "", map[string]int{
			"uploaded": len(result.Uploaded),
			"skipped":  len(result.Skipped),
		})
	}
	return result, nil
}

// List returns sheets newest first. Students only see their own major and year.
func (s *ScheduleService) List(ctx context.Context, actor models.Actor) ([]models.ScheduleListing, error) {
	filter := models.ScheduleFilter{}
	if actor.Role == models.RoleStudent {
		student, err := s.students.FindByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Upstream(err, "failed to load student")
		}
		filter.Major = student.Major
		filter.Year = student.Year
	}

	sheets, err := s.sheets.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list schedules")
	}
	listings := make([]models.ScheduleListing, 0, len(sheets))
	for _, sheet := range sheets {
		listing := models.ScheduleListing{
			ScheduleSheet: sheet,
			Title:         fmt.Sprintf("EDT %s%d (%s)", sheet.Major, sheet.Year, sheet.DateRange),
		}
		listing.Link = downloadLink(s.signer, s.apiPrefix, sheet.ID, sheet.Path)
		listings = append(listings, listing)
	}
	return listings, nil
}
