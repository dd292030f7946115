package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

func scores(t *testing.T, raw string) models.Scores {
	t.Helper()
	var s models.Scores
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return s
}

func networksSubject() models.Subject {
	return models.Subject{
		ID:      "sub1",
		Name:    "Réseaux",
		Weights: models.Weights{CC: 20, Labs: 20, Projects: 10},
		Columns: models.Columns{
			{ID: "lab1", Name: "TP 1", Type: models.ColumnTypeLab},
			{ID: "lab2", Name: "TP 2", Type: models.ColumnTypeLab},
			{ID: "proj1", Name: "Projet", Type: models.ColumnTypeProject},
		},
	}
}

func TestComputeSubjectGradeWeightedFormula(t *testing.T) {
	mark := &models.Mark{Scores: scores(t, `{"cc":14,"cf":10,"lab1":16,"lab2":18,"proj1":12}`)}

	grade := ComputeSubjectGrade(networksSubject(), mark)
	require.NotNil(t, grade.FinalGrade)
	assert.Equal(t, 12.4, *grade.FinalGrade)
	assert.Equal(t, models.GradeValidated, grade.Status)
	require.NotNil(t, grade.LabAverage)
	assert.Equal(t, 17.0, *grade.LabAverage)
	require.NotNil(t, grade.ProjectAverage)
	assert.Equal(t, 12.0, *grade.ProjectAverage)
	assert.Equal(t, "14", grade.CC)
	assert.Equal(t, models.MissingScore, grade.Ratt)
}

func TestComputeSubjectGradeTDOverride(t *testing.T) {
	subject := networksSubject()
	subject.Type = "TD"
	mark := &models.Mark{Scores: scores(t, `{"cc":9,"cf":20,"lab1":20,"proj1":20}`)}

	grade := ComputeSubjectGrade(subject, mark)
	require.NotNil(t, grade.FinalGrade)
	assert.Equal(t, 9.0, *grade.FinalGrade)
	assert.Equal(t, models.GradeRetake, grade.Status)
}

func TestComputeSubjectGradePendingWithoutMark(t *testing.T) {
	grade := ComputeSubjectGrade(networksSubject(), nil)
	assert.Equal(t, models.GradePending, grade.Status)
	assert.Nil(t, grade.FinalGrade)
	require.Len(t, grade.Columns, 3)
	for _, col := range grade.Columns {
		assert.Equal(t, models.MissingScore, col.Value)
	}
}

func TestComputeSubjectGradeExcludesMissingColumns(t *testing.T) {
	mark := &models.Mark{Scores: scores(t, `{"cc":"12,5","cf":"10","lab1":"","lab2":16,"proj1":"—"}`)}

	grade := ComputeSubjectGrade(networksSubject(), mark)
	require.NotNil(t, grade.LabAverage)
	assert.Equal(t, 16.0, *grade.LabAverage)
	assert.Nil(t, grade.ProjectAverage)
	// 10*0.5 + 12.5*0.2 + 16*0.2 + 0*0.1
	require.NotNil(t, grade.FinalGrade)
	assert.Equal(t, 10.7, *grade.FinalGrade)
	assert.Equal(t, models.MissingScore, grade.Columns[0].Value)
	assert.Equal(t, "16", grade.Columns[1].Value)
	assert.Equal(t, "12,5", grade.CC)
}

func TestComputeSubjectGradeDefaultsWeights(t *testing.T) {
	subject := networksSubject()
	subject.Weights = models.Weights{}
	mark := &models.Mark{Scores: scores(t, `{"cc":14,"cf":10,"lab1":16,"lab2":18,"proj1":12}`)}

	grade := ComputeSubjectGrade(subject, mark)
	require.NotNil(t, grade.FinalGrade)
	assert.Equal(t, 12.4, *grade.FinalGrade)
}

func TestComputeSubjectGradeColumnRemovalKeepsOtherAverages(t *testing.T) {
	subject := networksSubject()
	subject.Columns = models.Columns{subject.Columns[1], subject.Columns[2]}
	mark := &models.Mark{Scores: scores(t, `{"cc":14,"cf":10,"lab2":18,"proj1":12}`)}

	grade := ComputeSubjectGrade(subject, mark)
	require.Len(t, grade.Columns, 2)
	assert.Equal(t, "lab2", grade.Columns[0].ID)
	assert.Equal(t, 18.0, *grade.LabAverage)
	assert.Equal(t, 12.0, *grade.ProjectAverage)
}

func TestParseScoreNeverFails(t *testing.T) {
	cases := []struct {
		raw     string
		value   float64
		present bool
	}{
		{``, 0, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"-"`, 0, false},
		{`"—"`, 0, false},
		{`15`, 15, true},
		{`"15.5"`, 15.5, true},
		{`"15,5"`, 15.5, true},
		{`"abs"`, 0, true},
		{`true`, 0, true},
		{`{"x":1}`, 0, true},
	}
	for _, tc := range cases {
		value, present := parseScore(json.RawMessage(tc.raw))
		assert.Equal(t, tc.value, value, tc.raw)
		assert.Equal(t, tc.present, present, tc.raw)
	}
}

func TestAggregateStudentReport(t *testing.T) {
	a, b := 12.4, 9.0
	grades := []models.SubjectGrade{
		{FinalGrade: &a, Status: models.GradeValidated},
		{FinalGrade: &b, Status: models.GradeRetake},
		{Status: models.GradePending},
	}
	avg := AggregateStudentReport(grades)
	require.NotNil(t, avg)
	assert.Equal(t, 10.7, *avg)

	assert.Nil(t, AggregateStudentReport([]models.SubjectGrade{{Status: models.GradePending}}))
	assert.Nil(t, AggregateStudentReport(nil))
}
