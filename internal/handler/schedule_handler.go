package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type scheduleService interface {
	Upload(ctx context.Context, actor models.Actor, files []models.UploadedFile) (*models.ScheduleUploadResult, error)
	List(ctx context.Context, actor models.Actor) ([]models.ScheduleListing, error)
}

// ScheduleHandler manages uploaded timetable sheets.
type ScheduleHandler struct {
	service   scheduleService
	maxUpload int64
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(svc scheduleService, maxUpload int64) *ScheduleHandler {
	return &ScheduleHandler{service: svc, maxUpload: maxUpload}
}

// Upload godoc
// @Summary Upload timetable sheets
// @Description Files must be named EDT-<MAJOR><YEAR>-<range>.xlsx; other files are skipped
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "Sheets"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /admin/schedules [post]
func (h *ScheduleHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart form with files is required"))
		return
	}
	headers := form.File["files"]
	files := make([]models.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header, h.maxUpload)
		if err != nil {
			response.Error(c, err)
			return
		}
		files = append(files, file)
	}

	result, err := h.service.Upload(c.Request.Context(), actor, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List timetable sheets
// @Description Students only see sheets of their major and year
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listings, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, nil)
}
