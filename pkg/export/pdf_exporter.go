package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// TableDocument is a titled PDF with header lines, a table and an optional footer.
type TableDocument struct {
	Title    string
	Subtitle []string
	Table    Dataset
	// Widths are relative column weights; equal widths when empty.
	Widths []float64
	Footer []string
}

// Letter is a single-page formal document such as an attestation.
type Letter struct {
	Institution string
	Title       string
	Paragraphs  []string
	Place       string
	IssuedAt    time.Time
	Signatory   string
}

// PDFExporter renders tabular documents and letters with gofpdf core fonts.
type PDFExporter struct {
	font string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{font: "Arial"}
}

// RenderTable creates an A4 portrait document with the title, subtitle lines and table body.
func (e *PDFExporter) RenderTable(doc TableDocument) ([]byte, error) {
	if len(doc.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if len(doc.Widths) > 0 && len(doc.Widths) != len(doc.Table.Headers) {
		return nil, fmt.Errorf("pdf widths must match headers")
	}
	pdf, tr := e.newDocument()

	if doc.Title != "" {
		pdf.SetFont(e.font, "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	pdf.SetFont(e.font, "", 10)
	for _, line := range doc.Subtitle {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := columnWidths(doc.Widths, len(doc.Table.Headers), 190)
	pdf.SetFont(e.font, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range doc.Table.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(e.font, "", 9)
	for _, row := range doc.Table.Rows {
		for i, header := range doc.Table.Headers {
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, tr(row[header]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(doc.Footer) > 0 {
		pdf.Ln(4)
		pdf.SetFont(e.font, "B", 10)
		for _, line := range doc.Footer {
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}
	return output(pdf)
}

// RenderLetter creates a one page letter with a signature block.
func (e *PDFExporter) RenderLetter(letter Letter) ([]byte, error) {
	if strings.TrimSpace(letter.Title) == "" {
		return nil, fmt.Errorf("letter title required")
	}
	pdf, tr := e.newDocument()

	if letter.Institution != "" {
		pdf.SetFont(e.font, "B", 12)
		pdf.CellFormat(0, 8, tr(letter.Institution), "", 1, "L", false, 0, "")
		pdf.Ln(12)
	}
	pdf.SetFont(e.font, "B", 16)
	pdf.CellFormat(0, 12, tr(strings.ToUpper(letter.Title)), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(e.font, "", 11)
	for _, p := range letter.Paragraphs {
		pdf.MultiCell(0, 6, tr(p), "", "J", false)
		pdf.Ln(3)
	}

	issued := letter.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf.Ln(12)
	dateLine := issued.Format("02/01/2006")
	if letter.Place != "" {
		dateLine = letter.Place + ", " + dateLine
	}
	pdf.CellFormat(0, 6, tr(dateLine), "", 1, "R", false, 0, "")
	if letter.Signatory != "" {
		pdf.Ln(4)
		pdf.SetFont(e.font, "B", 11)
		pdf.CellFormat(0, 6, tr(letter.Signatory), "", 1, "R", false, 0, "")
	}
	return output(pdf)
}

func (e *PDFExporter) newDocument() (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	// core fonts are cp1252; translate so accented labels render
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func columnWidths(weights []float64, n int, total float64) []float64 {
	widths := make([]float64, n)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	for i := range widths {
		if len(weights) == 0 || sum <= 0 {
			widths[i] = total / float64(n)
			continue
		}
		widths[i] = total * weights[i] / sum
	}
	return widths
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
