package models

import "time"

// ScheduleSheet is an uploaded timetable for one (major, year) and period.
type ScheduleSheet struct {
	ID         string    `db:"id" json:"id"`
	Major      string    `db:"major" json:"major"`
	Year       int       `db:"year" json:"year"`
	DateRange  string    `db:"date_range" json:"date_range"`
	Filename   string    `db:"filename" json:"filename"`
	Path       string    `db:"path" json:"path"`
	UploadedBy *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// ScheduleFilter narrows schedule listings. Zero values mean no restriction.
type ScheduleFilter struct {
	Major string
	Year  int
	Limit int
}

// UploadedFile is an in-memory upload handed to services by the HTTP layer.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// ScheduleUploadResult reports accepted and skipped files of a batch upload.
type ScheduleUploadResult struct {
	Uploaded []ScheduleSheet `json:"uploaded"`
	Skipped  []SkippedFile   `json:"skipped"`
}

// SkippedFile names a rejected upload and the reason.
type SkippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ScheduleListing is a sheet as shown to users, with a signed download link.
type ScheduleListing struct {
	ScheduleSheet
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}
