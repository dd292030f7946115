package models

import "time"

// CourseMaterial is a course file shared with the students of a major.
type CourseMaterial struct {
	ID          string    `db:"id" json:"id"`
	Subject     string    `db:"subject" json:"subject"`
	Major       string    `db:"major" json:"major"`
	Category    string    `db:"category" json:"category"`
	Filename    string    `db:"filename" json:"filename"`
	Path        string    `db:"path" json:"-"`
	FileType    string    `db:"file_type" json:"type"`
	UploadedBy  *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	TeacherName string    `db:"teacher_name" json:"teacher"`
	UploadedAt  time.Time `db:"uploaded_at" json:"date"`
	Link        string    `db:"-" json:"link,omitempty"`
}

// MaterialUploadRequest describes a batch of files for one subject and major.
type MaterialUploadRequest struct {
	Subject  string `form:"subject" validate:"required,max=200"`
	Major    string `form:"major" validate:"required,max=50"`
	Category string `form:"category" validate:"max=100"`
}

// UploadOption is a subject and major a teacher may upload material for.
type UploadOption struct {
	Subject string `json:"subject"`
	Major   string `json:"major"`
}
