package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type attendanceService interface {
	Submit(ctx context.Context, actor models.Actor, req models.SubmitAttendanceRequest) (*models.AttendanceRecord, error)
	StudentSummary(ctx context.Context, studentID string) ([]models.AbsenceSummary, error)
	GlobalAbsences(ctx context.Context) ([]models.AbsenceRow, error)
	ExportGlobalAbsencesCSV(ctx context.Context) ([]byte, error)
}

// AttendanceHandler serves the attendance ledger.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Submit godoc
// @Summary Submit attendance for a session
// @Description Write-once: a second submission for the same session returns 409 DUPLICATE
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SubmitAttendanceRequest true "Attendance"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.SubmitAttendanceRequest
	if err := bindJSON(c, &req, "invalid attendance payload"); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Mine godoc
// @Summary Attendance summary of the caller
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/attendance [get]
func (h *AttendanceHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.StudentSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Absences godoc
// @Summary All recorded absences
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/absences [get]
func (h *AttendanceHandler) Absences(c *gin.Context) {
	rows, err := h.service.GlobalAbsences(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"total": len(rows)})
}

// AbsencesCSV godoc
// @Summary Export absences as CSV
// @Tags Admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/absences.csv [get]
func (h *AttendanceHandler) AbsencesCSV(c *gin.Context) {
	body, err := h.service.ExportGlobalAbsencesCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("absences_%s.csv", time.Now().Format("20060102"))
	response.File(c, "text/csv; charset=utf-8", filename, body)
}
