package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type sessionService interface {
	ListForTeacher(ctx context.Context, staffID string) ([]models.Session, error)
	StudentsForSession(ctx context.Context, req models.SessionStudentsRequest) ([]models.Student, error)
}

// SessionHandler exposes the teacher's derived sessions.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List teaching sessions
// @Description Sessions derived from recent timetables and the caller's assignments, with ledger status
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /teacher/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sessions, err := h.service.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Students godoc
// @Summary Session roster
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SessionStudentsRequest true "Audience"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/sessions/students [post]
func (h *SessionHandler) Students(c *gin.Context) {
	var req models.SessionStudentsRequest
	if err := bindJSON(c, &req, "invalid session audience"); err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.service.StudentsForSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
