package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type gradeService interface {
	SaveMarks(ctx context.Context, actor models.Actor, subjectID string, req models.SaveMarksRequest) error
	StudentReport(ctx context.Context, studentID string) (*models.StudentReport, error)
}

type transcriptService interface {
	TranscriptPDF(ctx context.Context, studentID string) ([]byte, string, error)
}

// GradeHandler serves marks entry and student grade reports.
type GradeHandler struct {
	grades  gradeService
	exports transcriptService
}

// NewGradeHandler constructs a GradeHandler.
func NewGradeHandler(grades gradeService, exports transcriptService) *GradeHandler {
	return &GradeHandler{grades: grades, exports: exports}
}

// SaveMarks godoc
// @Summary Save raw marks
// @Description Keys are cc, cf, ratt or an existing column id; nothing is written when a key is unknown
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.SaveMarksRequest true "Updates"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /teacher/subjects/{id}/marks [put]
func (h *GradeHandler) SaveMarks(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.SaveMarksRequest
	if err := bindJSON(c, &req, "invalid marks payload"); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.grades.SaveMarks(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Grade report of the caller
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/grades [get]
func (h *GradeHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.grades.StudentReport(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Transcript godoc
// @Summary Download the caller's transcript
// @Tags Student
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} file
// @Router /student/grades/transcript.pdf [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	body, filename, err := h.exports.TranscriptPDF(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, "application/pdf", filename, body)
}
