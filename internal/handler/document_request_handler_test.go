package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

func TestDocumentCreateByStudent(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodPost, "/api/v1/student/document-requests", "student", models.CreateDocumentRequest{DocumentType: "Attestation"})

	require.Equal(t, http.StatusCreated, rec.Code)
	data := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, data, `"student_id":"s1"`)
	assert.Contains(t, data, `"status":"pending"`)
}

func TestDocumentCompleteWithoutFile(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodPost, "/api/v1/admin/document-requests/doc-1/complete", "admin", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svcs.documents.completedFile)
}

func TestDocumentCompleteWithUpload(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doMultipart(t, r, "/api/v1/admin/document-requests/doc-1/complete", "admin",
		formFile{field: "file", filename: "attestation.pdf", content: []byte("%PDF")})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svcs.documents.completedFile)
	assert.Equal(t, "attestation.pdf", svcs.documents.completedFile.Filename)
	assert.Equal(t, []byte("%PDF"), svcs.documents.completedFile.Data)
}

func TestDocumentCompleteRejectsOversizedUpload(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 4)

	rec := doMultipart(t, r, "/api/v1/admin/document-requests/doc-1/complete", "admin",
		formFile{field: "file", filename: "big.pdf", content: []byte("0123456789")})

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, svcs.documents.completedFile)
}

func TestDocumentCompleteTerminalConflict(t *testing.T) {
	svcs := newTestServices()
	svcs.documents.completeErr = appErrors.Clone(appErrors.ErrTerminalState, "request already processed")
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodPost, "/api/v1/admin/document-requests/doc-1/complete", "admin", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TERMINAL_STATE", decodeEnvelope(t, rec).Error.Code)
}

func TestDocumentRejectRequiresReasonBody(t *testing.T) {
	r := newTestRouter(newTestServices(), 0)

	rec := doJSON(r, http.MethodPost, "/api/v1/admin/document-requests/doc-1/reject", "admin", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentLinkAndDownload(t *testing.T) {
	svcs := newTestServices()
	svcs.documents.downloads["tok-doc-1"] = "%PDF-1.3 body"
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodGet, "/api/v1/document-requests/doc-1/link", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), "tok-doc-1")

	rec = doJSON(r, http.MethodGet, "/api/v1/documents/download?token=tok-doc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.3 body", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Attestation.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Len(t, svcs.audit.logs, 1)
	assert.Equal(t, models.AuditActionDocumentDownload, svcs.audit.logs[0].Action)
	assert.Nil(t, svcs.audit.logs[0].UserID)
}

func TestDocumentDownloadTokenErrors(t *testing.T) {
	svcs := newTestServices()
	r := newTestRouter(svcs, 0)

	rec := doJSON(r, http.MethodGet, "/api/v1/documents/download", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/v1/documents/download?token=forged", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svcs.audit.logs)
}
