package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type announcementService interface {
	Post(ctx context.Context, actor models.Actor, req models.AnnouncementRequest, file *models.UploadedFile) (*models.Announcement, error)
	List(ctx context.Context) ([]models.Announcement, error)
}

// AnnouncementHandler publishes and lists administration notices.
type AnnouncementHandler struct {
	service   announcementService
	maxUpload int64
}

// NewAnnouncementHandler constructs an AnnouncementHandler.
func NewAnnouncementHandler(svc announcementService, maxUpload int64) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc, maxUpload: maxUpload}
}

// Post godoc
// @Summary Post an announcement
// @Description jpg and png attachments are shown as images, anything else as a file
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string false "Content"
// @Param file formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/announcements [post]
func (h *AnnouncementHandler) Post(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := optionalUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	req := models.AnnouncementRequest{Title: c.PostForm("title"), Content: c.PostForm("content")}
	announcement, err := h.service.Post(c.Request.Context(), actor, req, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// List godoc
// @Summary List announcements, newest first
// @Tags Announcements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}
