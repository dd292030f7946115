package models

// AccountRequest creates or updates a login account together with its student
// or staff profile. Major and year apply to students, department to staff.
// An empty password keeps the current one on update and falls back to
// DefaultImportPassword on creation.
type AccountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,max=200"`
	Password    string `json:"password" validate:"omitempty,min=6,max=72"`
	Major       string `json:"major" validate:"max=50"`
	Year        int    `json:"year" validate:"min=0,max=8"`
	TDGroup     string `json:"td" validate:"max=20"`
	TPGroup     string `json:"tp" validate:"max=20"`
	Scholarship bool   `json:"scholarship"`
	Graduated   bool   `json:"graduated"`
	Department  string `json:"department" validate:"max=100"`
}

// Account is the result of an account mutation. Exactly one of Student and
// Staff is set.
type Account struct {
	ID      string   `json:"id"`
	Role    UserRole `json:"role"`
	Student *Student `json:"student,omitempty"`
	Staff   *Staff   `json:"staff,omitempty"`
}

// StudentProfile is the status block shown on a student's dashboard.
type StudentProfile struct {
	FullName    string `json:"full_name"`
	Major       string `json:"major"`
	Year        int    `json:"year"`
	TDGroup     string `json:"td"`
	TPGroup     string `json:"tp"`
	Scholarship bool   `json:"scholarship"`
	Graduated   bool   `json:"graduated"`
}
