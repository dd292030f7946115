package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type documentRequestService interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.DocumentRequest, error)
	ListMine(ctx context.Context, studentID string) ([]models.DocumentRequest, error)
	ListAll(ctx context.Context) ([]models.DocumentRequest, error)
	Complete(ctx context.Context, actor models.Actor, id string, file *models.UploadedFile) (*models.DocumentRequest, error)
	Reject(ctx context.Context, actor models.Actor, id string, req models.RejectDocumentRequest) (*models.DocumentRequest, error)
	DownloadURL(ctx context.Context, actor models.Actor, id string) (*models.DocumentDownload, error)
	Download(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// DocumentRequestHandler runs the administrative document workflow.
type DocumentRequestHandler struct {
	service   documentRequestService
	maxUpload int64
}

// NewDocumentRequestHandler constructs a DocumentRequestHandler.
func NewDocumentRequestHandler(svc documentRequestService, maxUpload int64) *DocumentRequestHandler {
	return &DocumentRequestHandler{service: svc, maxUpload: maxUpload}
}

// Create godoc
// @Summary Request an administrative document
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateDocumentRequest true "Request"
// @Success 201 {object} response.Envelope
// @Router /student/document-requests [post]
func (h *DocumentRequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateDocumentRequest
	if err := bindJSON(c, &req, "invalid document request"); err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Mine godoc
// @Summary Document requests of the caller
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/document-requests [get]
func (h *DocumentRequestHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docs, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// All godoc
// @Summary Every document request
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/document-requests [get]
func (h *DocumentRequestHandler) All(c *gin.Context) {
	docs, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Complete godoc
// @Summary Complete a pending request
// @Description Attach the issued document as multipart field "file"; without it an attestation PDF is generated
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param file formData file false "Issued document"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/document-requests/{id}/complete [post]
func (h *DocumentRequestHandler) Complete(c *gin.Context) {
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
	doc, err := h.service.Complete(c.Request.Context(), actor, c.Param("id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body models.RejectDocumentRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/document-requests/{id}/reject [post]
func (h *DocumentRequestHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.RejectDocumentRequest
	if err := bindJSON(c, &req, "rejection reason is required"); err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Reject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Link godoc
// @Summary Signed download link of an issued document
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /document-requests/{id}/link [get]
func (h *DocumentRequestHandler) Link(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a stored artifact
// @Description Serves issued documents and timetable sheets through signed, expiring tokens
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentRequestHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	reader, filename, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, reader, map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
		"Cache-Control":       "no-store",
	})
}
