package models

import "time"

// Announcement file kinds.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

// Announcement is a notice posted by the administration, optionally with an attachment.
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	FilePath  *string   `db:"file_path" json:"-"`
	FileType  *string   `db:"file_type" json:"file_type,omitempty"`
	Author    string    `db:"author" json:"author"`
	CreatedAt time.Time `db:"created_at" json:"date"`
	FileURL   string    `db:"-" json:"file_url,omitempty"`
}

// AnnouncementRequest is the text part of a new announcement.
type AnnouncementRequest struct {
	Title   string `form:"title" json:"title" validate:"required,max=200"`
	Content string `form:"content" json:"content" validate:"max=20000"`
}
