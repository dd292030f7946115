package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type materialService interface {
	Upload(ctx context.Context, actor models.Actor, req models.MaterialUploadRequest, files []models.UploadedFile) ([]models.CourseMaterial, error)
	ListForStudent(ctx context.Context, actor models.Actor, subject string) ([]models.CourseMaterial, error)
	UploadOptions(ctx context.Context, actor models.Actor) ([]models.UploadOption, error)
}

// MaterialHandler shares course files between teachers and students.
type MaterialHandler struct {
	service   materialService
	maxUpload int64
}

// NewMaterialHandler constructs a MaterialHandler.
func NewMaterialHandler(svc materialService, maxUpload int64) *MaterialHandler {
	return &MaterialHandler{service: svc, maxUpload: maxUpload}
}

// Upload godoc
// @Summary Upload course material
// @Tags Teacher
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param subject formData string true "Subject"
// @Param major formData string true "Major"
// @Param category formData string false "Category"
// @Param files formData file true "Files"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /teacher/materials [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
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

	req := models.MaterialUploadRequest{
		Subject:  c.PostForm("subject"),
		Major:    c.PostForm("major"),
		Category: c.PostForm("category"),
	}
	uploaded, err := h.service.Upload(c.Request.Context(), actor, req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploaded)
}

// Options godoc
// @Summary List the subjects and majors I can upload material for
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teacher/materials/options [get]
func (h *MaterialHandler) Options(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	options, err := h.service.UploadOptions(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// ListForStudent godoc
// @Summary List the material of a subject for my major
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Param subject path string true "Subject"
// @Success 200 {object} response.Envelope
// @Router /student/materials/{subject} [get]
func (h *MaterialHandler) ListForStudent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	list, err := h.service.ListForStudent(c.Request.Context(), actor, c.Param("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}
