package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/export"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

type documentRequestRepository interface {
	Create(ctx context.Context, req *models.DocumentRequest) error
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.DocumentRequest, error)
	ListAll(ctx context.Context) ([]models.DocumentRequest, error)
	MarkCompleted(ctx context.Context, id, artifactPath, processedBy string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id, reason, processedBy string, at time.Time) (bool, error)
}

type letterRenderer interface {
	RenderLetter(letter export.Letter) ([]byte, error)
}

// DocumentConfig tunes issued documents and download links.
type DocumentConfig struct {
	APIPrefix   string
	Institution string
	Place       string
	Signatory   string
}

// DocumentRequestService runs the pending → completed | rejected workflow.
type DocumentRequestService struct {
	repo      documentRequestRepository
	blobs     storage.BlobStore
	signer    *storage.SignedURLSigner
	letters   letterRenderer
	audit     auditLogWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentConfig
	now       func() time.Time
}

// NewDocumentRequestService constructs a DocumentRequestService.
func NewDocumentRequestService(repo documentRequestRepository, blobs storage.BlobStore, signer *storage.SignedURLSigner, letters letterRenderer, audit auditLogWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DocumentConfig) *DocumentRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if letters == nil {
		letters = export.NewPDFExporter()
	}
	if cfg.Institution == "" {
		cfg.Institution = "Service de la scolarité"
	}
	return &DocumentRequestService{
		repo:      repo,
		blobs:     blobs,
		signer:    signer,
		letters:   letters,
		audit:     audit,
		metrics:   metrics,
		validator: newValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create files a pending request for the calling student.
func (s *DocumentRequestService) Create(ctx context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.DocumentRequest, error) {
	req.DocumentType = strings.TrimSpace(req.DocumentType)
	req.Details = strings.TrimSpace(req.Details)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document request")
	}
	doc := &models.DocumentRequest{
		StudentID:    actor.UserID,
		StudentName:  actor.FullName,
		DocumentType: req.DocumentType,
		Details:      req.Details,
		Status:       models.DocumentPending,
		RequestedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Upstream(err, "failed to store document request")
	}
	return doc, nil
}

// ListMine returns the student's requests, newest first.
func (s *DocumentRequestService) ListMine(ctx context.Context, studentID string) ([]models.DocumentRequest, error) {
	docs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list document requests")
	}
	return nonNilRequests(docs), nil
}

// ListAll returns every request, newest first.
func (s *DocumentRequestService) ListAll(ctx context.Context) ([]models.DocumentRequest, error) {
	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to list document requests")
	}
	return nonNilRequests(docs), nil
}

// Complete stores the issued artifact and closes the request. Without an upload
// an attestation PDF is rendered from the request.
func (s *DocumentRequestService) Complete(ctx context.Context, actor models.Actor, id string, file *models.UploadedFile) (*models.DocumentRequest, error) {
	doc, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	var data []byte
	name := ""
	if file != nil && len(file.Data) > 0 {
		data, name = file.Data, file.Filename
	} else {
		data, err = s.renderAttestation(doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attestation")
		}
		name = storage.SanitizeFilename(doc.DocumentType) + ".pdf"
	}

	artifact, err := s.blobs.Save(ctx, "documents", data, name)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to store document")
	}

	at := s.now().UTC()
	ok, err := s.repo.MarkCompleted(ctx, id, artifact, actor.UserID, at)
	if err != nil || !ok {
		if delErr := s.blobs.Delete(ctx, artifact); delErr != nil {
			s.logger.Warn("failed to remove orphan document", zap.String("path", artifact), zap.Error(delErr))
		}
		if err != nil {
			return nil, appErrors.Upstream(err, "failed to complete document request")
		}
		return nil, appErrors.Clone(appErrors.ErrTerminalState, "document request already processed")
	}

	doc.Status = models.DocumentCompleted
	doc.ArtifactPath = &artifact
	doc.ProcessedAt = &at
	doc.ProcessedBy = optionalString(actor.UserID)

	s.metrics.RecordDocumentTransition(string(models.DocumentCompleted))
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionDocumentComplete, "document_request", id, map[string]string{"artifact": artifact})
	return doc, nil
}

// Reject closes the request with a mandatory reason.
func (s *DocumentRequestService) Reject(ctx context.Context, actor models.Actor, id string, req models.RejectDocumentRequest) (*models.DocumentRequest, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	doc, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	ok, err := s.repo.MarkRejected(ctx, id, req.Reason, actor.UserID, at)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to reject document request")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTerminalState, "document request already processed")
	}

	doc.Status = models.DocumentRejected
	doc.RejectionReason = &req.Reason
	doc.ProcessedAt = &at
	doc.ProcessedBy = optionalString(actor.UserID)

	s.metrics.RecordDocumentTransition(string(models.DocumentRejected))
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionDocumentReject, "document_request", id, map[string]string{"reason": req.Reason})
	return doc, nil
}

// DownloadURL issues a signed link to a completed request's artifact.
// Students may only obtain links for their own requests.
func (s *DocumentRequestService) DownloadURL(ctx context.Context, actor models.Actor, id string) (*models.DocumentDownload, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && doc.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document request belongs to another student")
	}
	if !doc.HasArtifact() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not available yet")
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "document links are not configured")
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, *doc.ArtifactPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.DocumentDownload{
		URL:       fmt.Sprintf("%s/documents/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token)),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download opens the artifact referenced by a signed token. The caller closes the reader.
func (s *DocumentRequestService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrUpstreamUnavailable, "document links are not configured")
	}
	obj, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	reader, err := s.blobs.Open(ctx, obj.Key)
	if err != nil {
		return nil, "", appErrors.Upstream(err, "failed to open document")
	}
	return reader, downloadName(obj.Key), nil
}

func (s *DocumentRequestService) load(ctx context.Context, id string) (*models.DocumentRequest, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document request not found")
		}
		return nil, appErrors.Upstream(err, "failed to load document request")
	}
	return doc, nil
}

func (s *DocumentRequestService) loadPending(ctx context.Context, id string) (*models.DocumentRequest, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("document request already %s", doc.Status))
	}
	return doc, nil
}

func (s *DocumentRequestService) renderAttestation(doc *models.DocumentRequest) ([]byte, error) {
	paragraphs := []string{
		fmt.Sprintf("Le service de la scolarité certifie que %s, identifiant %s, a sollicité le document « %s » le %s.",
			doc.StudentName, doc.StudentID, doc.DocumentType, doc.RequestedAt.Format("02/01/2006")),
		"La présente attestation est délivrée à l'intéressé(e) pour servir et valoir ce que de droit.",
	}
	if doc.Details != "" {
		paragraphs = append(paragraphs, "Précisions : "+doc.Details)
	}
	return s.letters.RenderLetter(export.Letter{
		Institution: s.cfg.Institution,
		Title:       doc.DocumentType,
		Paragraphs:  paragraphs,
		Place:       s.cfg.Place,
		IssuedAt:    s.now(),
		Signatory:   s.cfg.Signatory,
	})
}

// downloadName strips the "<unix>_<id>_" prefix added by the blob store.
func downloadName(key string) string {
	base := path.Base(key)
	if parts := strings.SplitN(base, "_", 3); len(parts) == 3 {
		return parts[2]
	}
	return base
}

func nonNilRequests(docs []models.DocumentRequest) []models.DocumentRequest {
	if docs == nil {
		return []models.DocumentRequest{}
	}
	return docs
}
