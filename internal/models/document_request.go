package models

import "time"

// DocumentStatus is the state of an administrative document request.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentCompleted DocumentStatus = "completed"
	DocumentRejected  DocumentStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentCompleted || s == DocumentRejected
}

// DocumentRequest is a student's request for an administrative document.
type DocumentRequest struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	StudentName     string         `db:"student_name" json:"student"`
	DocumentType    string         `db:"document_type" json:"type"`
	Details         string         `db:"details" json:"details"`
	Status          DocumentStatus `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ArtifactPath    *string        `db:"artifact_path" json:"-"`
	RequestedAt     time.Time      `db:"requested_at" json:"date"`
	ProcessedAt     *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy     *string        `db:"processed_by" json:"processed_by,omitempty"`
}

// HasArtifact reports whether an issued document is available.
func (r DocumentRequest) HasArtifact() bool {
	return r.ArtifactPath != nil && *r.ArtifactPath != ""
}

// CreateDocumentRequest is the student payload.
type CreateDocumentRequest struct {
	DocumentType string `json:"type" validate:"required,max=120"`
	Details      string `json:"details" validate:"max=2000"`
}

// RejectDocumentRequest carries the mandatory rejection reason.
type RejectDocumentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// DocumentDownload is a signed, expiring link to an issued document.
type DocumentDownload struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
