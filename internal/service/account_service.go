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
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type accountUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type accountStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
	Upsert(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type accountStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	List(ctx context.Context) ([]models.Staff, error)
	Upsert(ctx context.Context, staff *models.Staff) error
	Update(ctx context.Context, staff *models.Staff) error
	Delete(ctx context.Context, id string) error
}

// AccountService manages login accounts together with their student or staff
// profile. Password hashes never leave the service.
type AccountService struct {
	users     accountUserRepository
	students  accountStudentRepository
	staff     accountStaffRepository
	sessions  *SessionService
	audit     auditLogWriter
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
}

// NewAccountService constructs an AccountService.
func NewAccountService(users accountUserRepository, students accountStudentRepository, staff accountStaffRepository, sessions *SessionService, audit auditLogWriter, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
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

// ListStudents returns every student profile.
func (s *AccountService) ListStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// ListStaff returns the staff members holding role.
func (s *AccountService) ListStaff(ctx context.Context, role models.UserRole) ([]models.Staff, error) {
	staff, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list staff")
	}
	out := make([]models.Staff, 0, len(staff))
	for _, member := range staff {
		if member.Role == role {
			out = append(out, member)
		}
	}
	return out, nil
}

// Create adds an account and its profile. Without a password the account gets
// DefaultImportPassword.
func (s *AccountService) Create(ctx context.Context, actor models.Actor, role models.UserRole, req models.AccountRequest) (*models.Account, error) {
	req, err := s.normalize(role, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Upstream(err, "failed to check email uniqueness")
	}

	password := req.Password
	if password == "" {
		password = models.DefaultImportPassword
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{Role: role}
	if role == models.RoleStudent {
		student := studentFromRequest(&models.Student{}, req)
		if err := s.students.Upsert(ctx, student); err != nil {
			return nil, appErrors.Upstream(err, "failed to store student")
		}
		account.ID, account.Student = student.ID, student
	} else {
		staff := &models.Staff{Email: req.Email, FullName: req.FullName, Department: req.Department, Role: role}
		if err := s.staff.Upsert(ctx, staff); err != nil {
			return nil, appErrors.Upstream(err, "failed to store staff member")
		}
		account.ID, account.Staff = staff.ID, staff
	}

	user := &models.User{ID: account.ID, Email: req.Email, PasswordHash: hash, FullName: req.FullName, Role: role, Active: true}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, appErrors.Upstream(err, "failed to store account")
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserCreate, "users", account.ID, map[string]interface{}{
		"email": req.Email,
		"role":  role,
	})
	return account, nil
}

// Update rewrites the profile of an account. The password is only replaced when
// one is supplied.
func (s *AccountService) Update(ctx context.Context, actor models.Actor, role models.UserRole, id string, req models.AccountRequest) (*models.Account, error) {
	req, err := s.normalize(role, req)
	if err != nil {
		return nil, err
	}
	user, err := s.loadAccount(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if other, err := s.users.FindByEmail(ctx, req.Email); err == nil && other.ID != id {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "email already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Upstream(err, "failed to check email uniqueness")
	}

	account := &models.Account{ID: id, Role: role}
	if role == models.RoleStudent {
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			return nil, profileError(err)
		}
		studentFromRequest(student, req)
		if err := s.students.Update(ctx, student); err != nil {
			return nil, profileError(err)
		}
		account.Student = student
	} else {
		staff, err := s.staff.FindByID(ctx, id)
		if err != nil {
			return nil, profileError(err)
		}
		staff.Email, staff.FullName, staff.Department = req.Email, req.FullName, req.Department
		if err := s.staff.Update(ctx, staff); err != nil {
			return nil, profileError(err)
		}
		account.Staff = staff
		if s.sessions != nil {
			s.sessions.InvalidateTeacherSessions(ctx)
		}
	}

	passwordChanged := req.Password != ""
	if passwordChanged {
		hash, err := s.hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.Email, user.FullName = req.Email, req.FullName
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Upstream(err, "failed to update account")
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserUpdate, "users", id, map[string]interface{}{
		"email":            req.Email,
		"password_changed": passwordChanged,
	})
	return account, nil
}

// Delete removes an account and its profile. Administrators cannot delete themselves.
func (s *AccountService) Delete(ctx context.Context, actor models.Actor, role models.UserRole, id string) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}
	if _, err := s.loadAccount(ctx, role, id); err != nil {
		return err
	}

	var err error
	if role == models.RoleStudent {
		err = s.students.Delete(ctx, id)
	} else {
		err = s.staff.Delete(ctx, id)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Upstream(err, "failed to delete profile")
	}
	if err := s.users.Delete(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Upstream(err, "failed to delete account")
	}
	if role != models.RoleStudent && s.sessions != nil {
		s.sessions.InvalidateTeacherSessions(ctx)
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserDelete, "users", id, map[string]interface{}{"role": role})
	return nil
}

// StudentProfile returns the dashboard status block of the calling student.
func (s *AccountService) StudentProfile(ctx context.Context, actor models.Actor) (*models.StudentProfile, error) {
	student, err := s.students.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, profileError(err)
	}
	return &models.StudentProfile{
		FullName:    student.FullName,
		Major:       student.Major,
		Year:        student.Year,
		TDGroup:     student.TDGroup,
		TPGroup:     student.TPGroup,
		Scholarship: student.Scholarship,
		Graduated:   student.Graduated,
	}, nil
}

func (s *AccountService) normalize(role models.UserRole, req models.AccountRequest) (models.AccountRequest, error) {
	if !role.Valid() {
		return req, appErrors.Clone(appErrors.ErrValidation, "unknown account role")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Major = strings.ToUpper(strings.TrimSpace(req.Major))
	req.TDGroup = strings.TrimSpace(req.TDGroup)
	req.TPGroup = strings.TrimSpace(req.TPGroup)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if role == models.RoleStudent {
		if req.Major == "" || req.Year < 1 {
			return req, appErrors.Clone(appErrors.ErrValidation, "students need a major and a year")
		}
	} else if req.Department == "" {
		req.Department = req.Major
	}
	return req, nil
}

func (s *AccountService) loadAccount(ctx context.Context, role models.UserRole, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Upstream(err, "failed to load account")
	}
	if user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
	}
	return user, nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}

func studentFromRequest(student *models.Student, req models.AccountRequest) *models.Student {
	student.Email = req.Email
	student.FullName = req.FullName
	student.Major = req.Major
	student.Year = req.Year
	student.TDGroup = req.TDGroup
	student.TPGroup = req.TPGroup
	student.Scholarship = req.Scholarship
	student.Graduated = req.Graduated
	return student
}

func profileError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	}
	return appErrors.Upstream(err, "failed to load profile")
}
