package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// finalExamShare is the fixed weight of the final exam (cf).
const finalExamShare = 0.50

// ComputeSubjectGrade applies the subject's weights to a student's raw marks.
// A nil mark means the student has no mark document yet: the grade stays pending.
func ComputeSubjectGrade(subject models.Subject, mark *models.Mark) models.SubjectGrade {
	var scores models.Scores
	if mark != nil {
		scores = mark.Scores
	}

	result := models.SubjectGrade{
		SubjectID: subject.ID,
		Subject:   subject.Name,
		CC:        displayScore(scores[models.ScoreKeyCC]),
		CF:        displayScore(scores[models.ScoreKeyCF]),
		Ratt:      displayScore(scores[models.ScoreKeyRatt]),
		Columns:   make([]models.ColumnGrade, 0, len(subject.Columns)),
	}

	var labs, projects []float64
	for _, col := range subject.Columns {
		raw := scores[col.ID]
		result.Columns = append(result.Columns, models.ColumnGrade{
			ID:    col.ID,
			Name:  col.Name,
			Type:  col.Type,
			Value: displayScore(raw),
		})
		value, present := parseScore(raw)
		if !present {
			continue
		}
		switch col.Type {
		case models.ColumnTypeLab:
			labs = append(labs, value)
		case models.ColumnTypeProject:
			projects = append(projects, value)
		}
	}
	result.LabAverage = average(labs)
	result.ProjectAverage = average(projects)

	if mark == nil {
		result.Status = models.GradePending
		return result
	}

	cc, _ := parseScore(scores[models.ScoreKeyCC])
	var grade float64
	if isTDSubject(subject) {
		grade = cc
	} else {
		cf, _ := parseScore(scores[models.ScoreKeyCF])
		w := subject.EffectiveWeights()
		grade = round2(cf*finalExamShare +
			cc*w.CC/100 +
			valueOrZero(result.LabAverage)*w.Labs/100 +
			valueOrZero(result.ProjectAverage)*w.Projects/100)
	}

	result.FinalGrade = &grade
	if grade >= models.PassThreshold {
		result.Status = models.GradeValidated
	} else {
		result.Status = models.GradeRetake
	}
	return result
}

// AggregateStudentReport averages final grades of subjects that have marks.
// It returns nil when no subject qualifies.
func AggregateStudentReport(grades []models.SubjectGrade) *float64 {
	var sum float64
	var count int
	for _, g := range grades {
		if g.Status == models.GradePending || g.FinalGrade == nil {
			continue
		}
		sum += *g.FinalGrade
		count++
	}
	if count == 0 {
		return nil
	}
	avg := round2(sum / float64(count))
	return &avg
}

// parseScore reads a raw score. present is false for missing, null, empty and dash
// values. Anything else that is not numeric degrades to 0.
func parseScore(raw json.RawMessage) (value float64, present bool) {
	text, isString, ok := rawText(raw)
	if !ok {
		return 0, false
	}
	if !isString {
		if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
		return 0, true
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return 0, true
}

// displayScore renders a raw score as entered, or the placeholder when absent.
func displayScore(raw json.RawMessage) string {
	text, _, ok := rawText(raw)
	if !ok {
		return models.MissingScore
	}
	return text
}

// rawText unwraps JSON strings and trims. ok is false when the score is absent.
func rawText(raw json.RawMessage) (text string, isString bool, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false, false
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return "", false, false
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "-" || s == models.MissingScore {
			return "", true, false
		}
		return s, true, true
	}
	return trimmed, false, true
}

func isTDSubject(subject models.Subject) bool {
	return strings.EqualFold(strings.TrimSpace(subject.Type), string(models.SessionTypeTD))
}

func average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
