package roster

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned when the workbook has no sheet or no data rows.
var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// Field aliases accepted in the header row, lower-cased.
var aliases = map[string][]string{
	"email":      {"email", "e-mail", "mail"},
	"name":       {"name", "nom", "full_name", "nom complet"},
	"major":      {"major", "filiere", "filière"},
	"year":       {"year", "annee", "année", "niveau"},
	"td":         {"td", "groupe td"},
	"tp":         {"tp", "groupe tp"},
	"department": {"department", "departement", "département"},
	"password":   {"password", "mot de passe"},
}

// Row is one spreadsheet line keyed by canonical field name.
type Row struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed value of a canonical field.
func (r Row) Get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// Year parses the year column, accepting "4", "4.0" and "L4" style values.
func (r Row) Year() (int, bool) {
	raw := strings.TrimLeft(strings.ToUpper(r.Get("year")), "LMS")
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Parse reads the first sheet of an xlsx workbook. The header row is matched
// case-insensitively against the known aliases; unknown columns are ignored.
func Parse(data []byte) ([]Row, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	columns := make(map[int]string)
	for i, header := range rows[0] {
		if field, ok := canonical(header); ok {
			columns[i] = field
		}
	}
	if _, ok := indexOf(columns, "email"); !ok {
		return nil, fmt.Errorf("missing required column: email")
	}

	result := make([]Row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		row := Row{Line: i + 2, Fields: make(map[string]string, len(columns))}
		for idx, field := range columns {
			if idx < len(cells) {
				row.Fields[field] = cells[idx]
			}
		}
		result = append(result, row)
	}
	return result, nil
}

func canonical(header string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(header))
	for field, names := range aliases {
		for _, name := range names {
			if h == name {
				return field, true
			}
		}
	}
	return "", false
}

func indexOf(columns map[int]string, field string) (int, bool) {
	for idx, f := range columns {
		if f == field {
			return idx, true
		}
	}
	return 0, false
}
