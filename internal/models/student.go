package models

import "time"

// Student represents a learner registered in a major and year.
type Student struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	FullName    string    `db:"full_name" json:"full_name"`
	Major       string    `db:"major" json:"major"`
	Year        int       `db:"year" json:"year"`
	TDGroup     string    `db:"td_group" json:"td"`
	TPGroup     string    `db:"tp_group" json:"tp"`
	Scholarship bool      `db:"scholarship" json:"scholarship"`
	Graduated   bool      `db:"graduated" json:"graduated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// InGroup reports whether the student attends sessions of the given group.
// The whole-promotion group matches everybody; other groups match td or tp exactly.
func (s Student) InGroup(group string) bool {
	if group == PromoGroup {
		return true
	}
	return group != "" && (s.TDGroup == group || s.TPGroup == group)
}
