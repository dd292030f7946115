package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type fakeGradeSubjects struct {
	subjects []models.Subject
}

func (f *fakeGradeSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	for i := range f.subjects {
		if f.subjects[i].ID == id {
			return &f.subjects[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGradeSubjects) ListByCohort(ctx context.Context, major string, year int) ([]models.Subject, error) {
	return f.subjects, nil
}

type fakeMarkStore struct {
	scores    map[string]map[string]models.Scores // student -> subject -> scores
	setCalls  int
	listCalls int
	setErr    error
}

func (f *fakeMarkStore) ListByStudent(ctx context.Context, studentID string, subjectIDs []string) ([]models.Mark, error) {
	f.listCalls++
	var marks []models.Mark
	for _, id := range subjectIDs {
		if s, ok := f.scores[studentID][id]; ok {
			marks = append(marks, models.Mark{StudentID: studentID, SubjectID: id, Scores: s})
		}
	}
	return marks, nil
}

func (f *fakeMarkStore) SetScores(ctx context.Context, subjectID string, updates []models.MarkUpdate) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls++
	for _, u := range updates {
		if f.scores[u.StudentID] == nil {
			f.scores[u.StudentID] = map[string]models.Scores{}
		}
		if f.scores[u.StudentID][subjectID] == nil {
			f.scores[u.StudentID][subjectID] = models.Scores{}
		}
		f.scores[u.StudentID][subjectID][u.Key] = u.Value
	}
	return nil
}

type fakeStudentLookup struct {
	students map[string]*models.Student
}

func (f *fakeStudentLookup) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newGradeFixture(t *testing.T) (*GradeService, *fakeMarkStore, *memoryCacheRepo) {
	t.Helper()
	subjects := &fakeGradeSubjects{subjects: []models.Subject{
		networksSubject(),
		{ID: "sub2", Name: "Compilation"},
	}}
	marks := &fakeMarkStore{scores: map[string]map[string]models.Scores{
		"s1": {"sub1": scores(t, `{"cc":14,"cf":10,"lab1":16,"lab2":18,"proj1":12}`)},
	}}
	students := &fakeStudentLookup{students: map[string]*models.Student{
		"s1": {ID: "s1", FullName: "Amina", Major: "INFO", Year: 4},
	}}
	cacheRepo := newMemoryCacheRepo()
	svc := NewGradeService(subjects, marks, students, &recordingAudit{}, newTestCache(cacheRepo), nil, nil, 0)
	return svc, marks, cacheRepo
}

func TestGradeServiceStudentReport(t *testing.T) {
	svc, marks, cacheRepo := newGradeFixture(t)

	report, err := svc.StudentReport(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, report.Subjects, 2)
	assert.Equal(t, 12.4, *report.Subjects[0].FinalGrade)
	assert.Equal(t, models.GradeValidated, report.Subjects[0].Status)
	assert.Equal(t, models.GradePending, report.Subjects[1].Status)
	require.NotNil(t, report.GeneralAverage)
	assert.Equal(t, 12.4, *report.GeneralAverage)
	assert.Contains(t, cacheRepo.items, cacheKeyStudentReport+"s1")

	_, err = svc.StudentReport(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, marks.listCalls)

	_, err = svc.StudentReport(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceSaveMarksRejectsUnknownKey(t *testing.T) {
	svc, marks, _ := newGradeFixture(t)

	err := svc.SaveMarks(context.Background(), teacherActor, "sub1", models.SaveMarksRequest{Updates: []models.MarkUpdate{
		{StudentID: "s1", Key: "cc", Value: json.RawMessage(`15`)},
		{StudentID: "s1", Key: "lab9", Value: json.RawMessage(`15`)},
	}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), `unknown mark key "lab9"`)
	assert.Zero(t, marks.setCalls)
	assert.JSONEq(t, `14`, string(marks.scores["s1"]["sub1"]["cc"]))
}

func TestGradeServiceSaveMarksRefreshesReport(t *testing.T) {
	svc, marks, cacheRepo := newGradeFixture(t)
	ctx := context.Background()

	_, err := svc.StudentReport(ctx, "s1")
	require.NoError(t, err)
	cacheRepo.items[cacheKeyStudentReport+"s2"] = []byte(`{}`)

	err = svc.SaveMarks(ctx, teacherActor, "sub1", models.SaveMarksRequest{Updates: []models.MarkUpdate{
		{StudentID: "s1", Key: " cf ", Value: json.RawMessage(`"15"`)},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, marks.setCalls)
	assert.NotContains(t, cacheRepo.items, cacheKeyStudentReport+"s1")
	assert.Contains(t, cacheRepo.items, cacheKeyStudentReport+"s2")

	report, err := svc.StudentReport(ctx, "s1")
	require.NoError(t, err)
	// 15*0.5 + 14*0.2 + 17*0.2 + 12*0.1
	assert.Equal(t, 14.9, *report.Subjects[0].FinalGrade)
}

func TestGradeServiceSaveMarksErrors(t *testing.T) {
	svc, marks, _ := newGradeFixture(t)
	update := models.SaveMarksRequest{Updates: []models.MarkUpdate{{StudentID: "s1", Key: "cc", Value: json.RawMessage(`1`)}}}

	err := svc.SaveMarks(context.Background(), teacherActor, "missing", update)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	err = svc.SaveMarks(context.Background(), teacherActor, "sub1", models.SaveMarksRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	marks.setErr = errors.New("connection reset")
	err = svc.SaveMarks(context.Background(), teacherActor, "sub1", update)
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstreamUnavailable))
}
