package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type subjectService interface {
	GetGradingSheet(ctx context.Context, req models.GradingSheetRequest) (*models.GradingSheet, error)
	UpdateWeights(ctx context.Context, actor models.Actor, subjectID string, weights models.Weights) (*models.Subject, error)
	AddColumn(ctx context.Context, actor models.Actor, subjectID string, req models.AddColumnRequest) (*models.Column, error)
	DeleteColumn(ctx context.Context, actor models.Actor, subjectID, columnID string) error
	ListForStudent(ctx context.Context, studentID string) ([]string, error)
}

// SubjectHandler manages grading configuration of subjects.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs a SubjectHandler.
func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// GradingSheet godoc
// @Summary Grading sheet of a subject for a group
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.GradingSheetRequest true "Subject, major and group"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/grading-sheet [post]
func (h *SubjectHandler) GradingSheet(c *gin.Context) {
	var req models.GradingSheetRequest
	if err := bindJSON(c, &req, "invalid grading sheet request"); err != nil {
		response.Error(c, err)
		return
	}
	sheet, err := h.service.GetGradingSheet(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// UpdateWeights godoc
// @Summary Update component weights
// @Description cc + labs + projects must equal 50
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.Weights true "Weights"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/subjects/{id}/weights [put]
func (h *SubjectHandler) UpdateWeights(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var weights models.Weights
	if err := bindJSON(c, &weights, "invalid weights payload"); err != nil {
		response.Error(c, err)
		return
	}
	subject, err := h.service.UpdateWeights(c.Request.Context(), actor, c.Param("id"), weights)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// AddColumn godoc
// @Summary Add a lab or project column
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.AddColumnRequest true "Column"
// @Success 201 {object} response.Envelope
// @Router /teacher/subjects/{id}/columns [post]
func (h *SubjectHandler) AddColumn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.AddColumnRequest
	if err := bindJSON(c, &req, "invalid column payload"); err != nil {
		response.Error(c, err)
		return
	}
	column, err := h.service.AddColumn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, column)
}

// DeleteColumn godoc
// @Summary Delete a column and its scores
// @Tags Teacher
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param columnId path string true "Column ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /teacher/subjects/{id}/columns/{columnId} [delete]
func (h *SubjectHandler) DeleteColumn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteColumn(c.Request.Context(), actor, c.Param("id"), c.Param("columnId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine godoc
// @Summary Subjects of the caller's major
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/subjects [get]
func (h *SubjectHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	names, err := h.service.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, names, nil)
}
