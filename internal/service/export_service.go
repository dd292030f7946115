package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/export"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

type reportSource interface {
	StudentReport(ctx context.Context, studentID string) (*models.StudentReport, error)
}

type tableRenderer interface {
	RenderTable(doc export.TableDocument) ([]byte, error)
}

// ExportService renders downloadable documents from computed read models.
type ExportService struct {
	reports     reportSource
	pdf         tableRenderer
	logger      *zap.Logger
	institution string
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportSource, pdf tableRenderer, institution string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, pdf: pdf, logger: logger, institution: institution, now: time.Now}
}

var transcriptHeaders = []string{"Matière", "CC", "CF", "Ratt", "Moy. TP", "Moy. projet", "Note", "Statut"}

// TranscriptPDF renders the student's grade report. It returns the PDF and a download filename.
func (s *ExportService) TranscriptPDF(ctx context.Context, studentID string) ([]byte, string, error) {
	report, err := s.reports.StudentReport(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	table := export.Dataset{Headers: transcriptHeaders}
	for _, g := range report.Subjects {
		table.Rows = append(table.Rows, map[string]string{
			"Matière":     g.Subject,
			"CC":          g.CC,
			"CF":          g.CF,
			"Ratt":        g.Ratt,
			"Moy. TP":     formatGrade(g.LabAverage),
			"Moy. projet": formatGrade(g.ProjectAverage),
			"Note":        formatGrade(g.FinalGrade),
			"Statut":      statusLabel(g.Status),
		})
	}

	subtitle := []string{
		fmt.Sprintf("%s (%s)", report.StudentName, report.StudentID),
		fmt.Sprintf("Filière %s, année %d", report.Major, report.Year),
	}
	if s.institution != "" {
		subtitle = append([]string{s.institution}, subtitle...)
	}
	body, err := s.pdf.RenderTable(export.TableDocument{
		Title:    "Relevé de notes",
		Subtitle: subtitle,
		Table:    table,
		Widths:   []float64{3, 1, 1, 1, 1.3, 1.3, 1, 1.2},
		Footer: []string{
			"Moyenne générale : " + formatGrade(report.GeneralAverage),
			"Édité le " + s.now().Format("02/01/2006"),
		},
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	filename := storage.SanitizeFilename(fmt.Sprintf("releve_%s.pdf", report.StudentName))
	return body, filename, nil
}

func formatGrade(v *float64) string {
	if v == nil {
		return models.MissingScore
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func statusLabel(status models.GradeStatus) string {
	switch status {
	case models.GradeValidated:
		return "Validé"
	case models.GradeRetake:
		return "Rattrapage"
	default:
		return "En attente"
	}
}
