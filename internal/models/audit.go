package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionAttendanceSubmit   = "ATTENDANCE_SUBMIT"
	AuditActionWeightsUpdate      = "SUBJECT_WEIGHTS_UPDATE"
	AuditActionColumnAdd          = "SUBJECT_COLUMN_ADD"
	AuditActionColumnDelete       = "SUBJECT_COLUMN_DELETE"
	AuditActionMarksSave          = "MARKS_SAVE"
	AuditActionDocumentComplete   = "DOCUMENT_REQUEST_COMPLETE"
	AuditActionDocumentReject     = "DOCUMENT_REQUEST_REJECT"
	AuditActionScheduleUpload     = "SCHEDULE_UPLOAD"
	AuditActionRosterImport       = "ROSTER_IMPORT"
	AuditActionAssignmentsReplace = "STAFF_ASSIGNMENTS_REPLACE"
	AuditActionDocumentDownload   = "DOCUMENT_DOWNLOAD"
	AuditActionTranscriptExport   = "TRANSCRIPT_EXPORT"
	AuditActionAbsenceExport      = "ABSENCE_EXPORT"
	AuditActionUserCreate         = "USER_CREATE"
	AuditActionUserUpdate         = "USER_UPDATE"
	AuditActionUserDelete         = "USER_DELETE"
	AuditActionAnnouncementPost   = "ANNOUNCEMENT_POST"
	AuditActionMaterialUpload     = "MATERIAL_UPLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Actor identifies the caller performing a mutation, used for audit rows.
type Actor struct {
	UserID    string
	FullName  string
	Role      UserRole
	IP        string
	UserAgent string
}
