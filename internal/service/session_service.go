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
)

type sessionStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type sessionSheetRepository interface {
	ListRecent(ctx context.Context, limit int) ([]models.ScheduleSheet, error)
}

type sessionLedgerRepository interface {
	StatusBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.LedgerState, error)
}

type sessionStudentRepository interface {
	ListByCohort(ctx context.Context, major string, year int, group string) ([]models.Student, error)
}

// SessionConfig tunes session derivation.
type SessionConfig struct {
	RecencyWindow int
	FallbackYear  int
	CacheTTL      time.Duration
}

// SessionService derives teaching sessions and their attendance status.
type SessionService struct {
	staff     sessionStaffRepository
	sheets    sessionSheetRepository
	ledger    sessionLedgerRepository
	students  sessionStudentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(staff sessionStaffRepository, sheets sessionSheetRepository, ledger sessionLedgerRepository, students sessionStudentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = 20
	}
	if cfg.FallbackYear <= 0 {
		cfg.FallbackYear = 4
	}
	return &SessionService{
		staff:     staff,
		sheets:    sheets,
		ledger:    ledger,
		students:  students,
		cache:     cache,
		validator: newValidator(validate),
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// ListForTeacher returns the sessions the staff member must manage with their
// ledger status. An unknown staff member has no sessions.
func (s *SessionService) ListForTeacher(ctx context.Context, staffID string) ([]models.Session, error) {
	cacheKey := cacheKeyTeacherSessions + staffID
	var cached []models.Session
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	staff, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Session{}, nil
		}
		return nil, appErrors.Upstream(err, "failed to load staff member")
	}
	if len(staff.Assignments) == 0 {
		return []models.Session{}, nil
	}

	sheets, err := s.sheets.ListRecent(ctx, s.config.RecencyWindow)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load schedule sheets")
	}

	sessions := ExpandSessions(staff.Assignments, sheets, ResolveOptions{
		RecencyWindow: s.config.RecencyWindow,
		FallbackYear:  s.config.FallbackYear,
		Now:           s.now(),
	})
	if len(sessions) == 0 {
		return []models.Session{}, nil
	}

	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	states, err := s.ledger.StatusBySessionIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load attendance ledger")
	}
	ledger := make(map[string]models.LedgerState, len(states))
	for _, state := range states {
		ledger[state.SessionID] = state
	}
	AnnotateSessions(sessions, func(id string) (models.LedgerState, bool) {
		state, ok := ledger[id]
		return state, ok
	})

	_ = s.cache.Set(ctx, cacheKey, sessions, s.config.CacheTTL)
	return sessions, nil
}

// StudentsForSession lists the students expected in a session audience.
func (s *SessionService) StudentsForSession(ctx context.Context, req models.SessionStudentsRequest) ([]models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session audience")
	}
	students, err := s.students.ListByCohort(ctx, strings.ToUpper(strings.TrimSpace(req.Major)), req.Year, strings.TrimSpace(req.Group))
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// InvalidateTeacherSessions drops every cached session list.
func (s *SessionService) InvalidateTeacherSessions(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cacheKeyTeacherSessions+"*")
}
