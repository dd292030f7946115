package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"date", "student", "subject"},
		Rows: []map[string]string{
			{"date": "2024-09-02", "student": "Amina Diallo", "subject": "Réseaux"},
			{"date": "2024-09-03", "student": "Yanis, B."},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "date,student,subject\n2024-09-02,Amina Diallo,Réseaux\n2024-09-03,\"Yanis, B.\",\n", string(out))
}

func TestCSVExporterOptions(t *testing.T) {
	out, err := NewCSVExporter(WithDelimiter(';'), WithBOM()).Render(Dataset{
		Headers: []string{"a", "b"},
		Rows:    []map[string]string{{"a": "1", "b": "2"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "a;b\n1;2\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRenderTable(t *testing.T) {
	out, err := NewPDFExporter().RenderTable(TableDocument{
		Title:    "Relevé de notes",
		Subtitle: []string{"Étudiant: Amina Diallo", "Filière: INFO 4"},
		Table: Dataset{
			Headers: []string{"Matière", "Note", "Statut"},
			Rows:    []map[string]string{{"Matière": "Réseaux", "Note": "12.40", "Statut": "V"}},
		},
		Widths: []float64{3, 1, 1},
		Footer: []string{"Moyenne générale: 12.40"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().RenderTable(TableDocument{Table: Dataset{Headers: []string{"a"}}, Widths: []float64{1, 2}})
	assert.Error(t, err)
}

func TestPDFExporterRenderLetter(t *testing.T) {
	out, err := NewPDFExporter().RenderLetter(Letter{
		Institution: "Université",
		Title:       "Attestation de scolarité",
		Paragraphs:  []string{"Nous certifions que l'étudiant est inscrit."},
		Place:       "Paris",
		IssuedAt:    time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		Signatory:   "Le service de scolarité",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().RenderLetter(Letter{})
	assert.Error(t, err)
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{50, 50}, columnWidths(nil, 2, 100))
	assert.Equal(t, []float64{75, 25}, columnWidths([]float64{3, 1}, 2, 100))
}
