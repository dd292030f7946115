package models

// DefaultImportPassword is assigned to imported accounts without a password column.
const DefaultImportPassword = "123456"

// RosterImportResult reports a spreadsheet import.
type RosterImportResult struct {
	Role     UserRole     `json:"role"`
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped"`
}

// SkippedRow explains why a spreadsheet line was ignored.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
