package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type rosterService interface {
	Import(ctx context.Context, actor models.Actor, role models.UserRole, data []byte) (*models.RosterImportResult, error)
	SetAssignments(ctx context.Context, actor models.Actor, staffID string, req models.SetAssignmentsRequest) ([]models.TeachingAssignment, error)
}

// RosterHandler imports people and manages teaching assignments.
type RosterHandler struct {
	service   rosterService
	maxUpload int64
}

// NewRosterHandler constructs a RosterHandler.
func NewRosterHandler(svc rosterService, maxUpload int64) *RosterHandler {
	return &RosterHandler{service: svc, maxUpload: maxUpload}
}

// Import godoc
// @Summary Import students or teachers from xlsx
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param role path string true "student or teacher"
// @Param file formData file true "Workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/roster/{role} [post]
func (h *RosterHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	role, valid := models.ParseRole(c.Param("role"))
	if !valid {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown roster role"))
		return
	}
	file, err := optionalUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	if file == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "workbook file is required"))
		return
	}

	result, err := h.service.Import(c.Request.Context(), actor, role, file.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetAssignments godoc
// @Summary Replace teaching assignments of a staff member
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Param payload body models.SetAssignmentsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/staff/{id}/assignments [put]
func (h *RosterHandler) SetAssignments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.SetAssignmentsRequest
	if err := bindJSON(c, &req, "invalid teaching assignments"); err != nil {
		response.Error(c, err)
		return
	}
	assignments, err := h.service.SetAssignments(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
