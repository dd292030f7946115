package service

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

type announcementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	List(ctx context.Context) ([]models.Announcement, error)
}

var imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true}

// AnnouncementService publishes administration notices with optional attachments.
type AnnouncementService struct {
	repo      announcementRepository
	blobs     storage.BlobStore
	signer    *storage.SignedURLSigner
	audit     auditLogWriter
	validator *validator.Validate
	logger    *zap.Logger
	apiPrefix string
	now       func() time.Time
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(repo announcementRepository, blobs storage.BlobStore, signer *storage.SignedURLSigner, audit auditLogWriter, validate *validator.Validate, logger *zap.Logger, apiPrefix string) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:      repo,
		blobs:     blobs,
		signer:    signer,
		audit:     audit,
		validator: newValidator(validate),
		logger:    logger,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		now:       time.Now,
	}
}

// Post stores an announcement signed by the caller. An attachment is kept in
// the blob store and typed as an image or a plain file from its extension.
func (s *AnnouncementService) Post(ctx context.Context, actor models.Actor, req models.AnnouncementRequest, file *models.UploadedFile) (*models.Announcement, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title is required")
	}

	author := strings.TrimSpace(actor.FullName)
	if author == "" {
		author = "Admin"
	}
	a := &models.Announcement{Title: req.Title, Content: req.Content, Author: author, CreatedAt: s.now().UTC()}

	if file != nil && len(file.Data) > 0 {
		name := storage.SanitizeFilename(file.Filename)
		path, err := s.blobs.Save(ctx, "announcements", file.Data, name)
		if err != nil {
			return nil, appErrors.Upstream(err, "failed to store attachment")
		}
		kind := models.AttachmentFile
		if imageExtensions[fileExtension(name)] {
			kind = models.AttachmentImage
		}
		a.FilePath, a.FileType = &path, &kind
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if a.FilePath != nil {
			if delErr := s.blobs.Delete(ctx, *a.FilePath); delErr != nil {
				s.logger.Warn("failed to remove orphan attachment", zap.String("path", *a.FilePath), zap.Error(delErr))
			}
		}
		return nil, appErrors.Upstream(err, "failed to store announcement")
	}

	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionAnnouncementPost, "announcement", a.ID, map[string]interface{}{
		"title":      a.Title,
		"attachment": a.FileType != nil,
	})
	s.attachLink(a)
	return a, nil
}

// List returns announcements newest first with signed attachment links.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list announcements")
	}
	if list == nil {
		list = []models.Announcement{}
	}
	for i := range list {
		s.attachLink(&list[i])
	}
	return list, nil
}

func (s *AnnouncementService) attachLink(a *models.Announcement) {
	if a.FilePath != nil {
		a.FileURL = downloadLink(s.signer, s.apiPrefix, a.ID, *a.FilePath)
	}
}

// downloadLink signs a blob path for the public download route. It is empty
// when links are not configured.
func downloadLink(signer *storage.SignedURLSigner, apiPrefix, resourceID, path string) string {
	if signer == nil || path == "" {
		return ""
	}
	token, _, err := signer.Generate(resourceID, path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/documents/download?token=%s", apiPrefix, url.QueryEscape(token))
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
