package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/roster"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type rosterUserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
}

type rosterStudentRepository interface {
	Upsert(ctx context.Context, student *models.Student) error
}

type rosterStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	Upsert(ctx context.Context, staff *models.Staff) error
	ReplaceAssignments(ctx context.Context, staffID string, assignments []models.TeachingAssignment) error
}

// RosterService imports students and teachers and manages teaching assignments.
type RosterService struct {
	users     rosterUserRepository
	students  rosterStudentRepository
	staff     rosterStaffRepository
	sessions  *SessionService
	audit     auditLogWriter
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
}

// NewRosterService constructs a RosterService.
func NewRosterService(users rosterUserRepository, students rosterStudentRepository, staff rosterStaffRepository, sessions *SessionService, audit auditLogWriter, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		users:     users,
		students:  students,
		staff:     staff,
		sessions:  sessions,
		audit:     audit,
		validator: newValidator(validate),
		logger:    logger,
		hashCost:  bcrypt.DefaultCost,
	}
}

// Import upserts every row of an xlsx roster by email. Rows without email are skipped.
func (s *RosterService) Import(ctx context.Context, actor models.Actor, role models.UserRole, data []byte) (*models.RosterImportResult, error) {
	if role != models.RoleStudent && role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster role must be STUDENT or TEACHER")
	}
	rows, err := roster.Parse(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster workbook")
	}

	result := &models.RosterImportResult{Role: role, Skipped: []models.SkippedRow{}}
	for _, row := range rows {
		email := strings.ToLower(row.Get("email"))
		if email == "" {
			result.Skipped = append(result.Skipped, models.SkippedRow{Line: row.Line, Reason: "missing email"})
			continue
		}
		if err := s.validator.Var(email, "email"); err != nil {
			result.Skipped = append(result.Skipped, models.SkippedRow{Line: row.Line, Reason: "invalid email"})
			continue
		}

		var id string
		if role == models.RoleStudent {
			id, err = s.importStudent(ctx, row, email)
		} else {
			id, err = s.importTeacher(ctx, row, email)
		}
		if err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrValidation.Code {
				result.Skipped = append(result.Skipped, models.SkippedRow{Line: row.Line, Reason: appErr.Message})
				continue
			}
			return nil, err
		}

		if err := s.upsertAccount(ctx, id, email, row, role); err != nil {
			return nil, err
		}
		result.Imported++
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRosterImport, "roster", string(role), map[string]int{
		"imported": result.Imported,
		"skipped":  len(result.Skipped),
	})
	return result, nil
}

// SetAssignments replaces the teaching assignments of a staff member. CM groups
// are dropped; other types need at least one group.
func (s *RosterService) SetAssignments(ctx context.Context, actor models.Actor, staffID string, req models.SetAssignmentsRequest) ([]models.TeachingAssignment, error) {
	assignments := make([]models.TeachingAssignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		a.StaffID = staffID
		a.Subject = strings.TrimSpace(a.Subject)
		a.Major = strings.ToUpper(strings.TrimSpace(a.Major))
		a.Type = models.SessionType(strings.ToUpper(strings.TrimSpace(string(a.Type))))
		if a.Type == models.SessionTypeCM {
			a.Groups = nil
		} else {
			a.Groups = a.ExpandGroups()
		}
		assignments = append(assignments, a)
	}
	req.Assignments = assignments
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teaching assignments")
	}
	for _, a := range assignments {
		if a.Type != models.SessionTypeCM && len(a.Groups) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, a.Subject+" "+string(a.Type)+" assignment needs at least one group")
		}
	}

	if _, err := s.staff.FindByID(ctx, staffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Upstream(err, "failed to load staff member")
	}
	if err := s.staff.ReplaceAssignments(ctx, staffID, assignments); err != nil {
		return nil, appErrors.Upstream(err, "failed to store teaching assignments")
	}

	if s.sessions != nil {
		s.sessions.InvalidateTeacherSessions(ctx)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionAssignmentsReplace, "staff", staffID, map[string]int{"assignments": len(assignments)})
	return assignments, nil
}

func (s *RosterService) importStudent(ctx context.Context, row roster.Row, email string) (string, error) {
	year, ok := row.Year()
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "missing or invalid year")
	}
	major := strings.ToUpper(row.Get("major"))
	if major == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "missing major")
	}
	student := &models.Student{
		Email:    email,
		FullName: row.Get("name"),
		Major:    major,
		Year:     year,
		TDGroup:  row.Get("td"),
		TPGroup:  row.Get("tp"),
	}
	if err := s.students.Upsert(ctx, student); err != nil {
		return "", appErrors.Upstream(err, "failed to import student "+email)
	}
	return student.ID, nil
}

func (s *RosterService) importTeacher(ctx context.Context, row roster.Row, email string) (string, error) {
	department := row.Get("department")
	if department == "" {
		department = row.Get("major")
	}
	staff := &models.Staff{
		Email:      email,
		FullName:   row.Get("name"),
		Department: department,
		Role:       models.RoleTeacher,
	}
	if err := s.staff.Upsert(ctx, staff); err != nil {
		return "", appErrors.Upstream(err, "failed to import teacher "+email)
	}
	return staff.ID, nil
}

func (s *RosterService) upsertAccount(ctx context.Context, id, email string, row roster.Row, role models.UserRole) error {
	password := row.Get("password")
	if password == "" {
		password = models.DefaultImportPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     row.Get("name"),
		Role:         role,
		Active:       true,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return appErrors.Upstream(err, "failed to store account "+email)
	}
	return nil
}
