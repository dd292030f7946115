package models

import "time"

// Staff is a teacher or administrator. Teaching assignments are stored in
// their own table and attached on read.
type Staff struct {
	ID          string               `db:"id" json:"id"`
	Email       string               `db:"email" json:"email"`
	FullName    string               `db:"full_name" json:"full_name"`
	Department  string               `db:"department" json:"department"`
	Role        UserRole             `db:"role" json:"role"`
	Assignments []TeachingAssignment `db:"-" json:"assignments"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}
