package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type fakeAccountRepo struct {
	users map[string]*models.User
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, user *models.User) error {
	f.users[user.Email] = user
	return nil
}

type fakeStudentUpserter struct {
	students []*models.Student
}

func (f *fakeStudentUpserter) Upsert(ctx context.Context, student *models.Student) error {
	student.ID = "stu-" + student.Email
	f.students = append(f.students, student)
	return nil
}

type fakeStaffStore struct {
	staff       map[string]*models.Staff
	replaced    []models.TeachingAssignment
	replaceCall int
}

func (f *fakeStaffStore) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if s, ok := f.staff[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStaffStore) Upsert(ctx context.Context, staff *models.Staff) error {
	staff.ID = "stf-" + staff.Email
	f.staff[staff.ID] = staff
	return nil
}

func (f *fakeStaffStore) ReplaceAssignments(ctx context.Context, staffID string, assignments []models.TeachingAssignment) error {
	f.replaceCall++
	f.replaced = assignments
	return nil
}

func rosterWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newRosterFixture() (*RosterService, *fakeAccountRepo, *fakeStudentUpserter, *fakeStaffStore, *recordingAudit) {
	users := &fakeAccountRepo{users: map[string]*models.User{}}
	students := &fakeStudentUpserter{}
	staff := &fakeStaffStore{staff: map[string]*models.Staff{}}
	audit := &recordingAudit{}
	svc := NewRosterService(users, students, staff, nil, audit, nil, nil)
	svc.hashCost = bcrypt.MinCost
	return svc, users, students, staff, audit
}

func TestRosterImportStudents(t *testing.T) {
	svc, users, students, _, audit := newRosterFixture()
	data := rosterWorkbook(t, [][]interface{}{
		{"Email", "Nom", "Filière", "Année", "TD", "TP", "Password"},
		{"Amina@Example.com", "Amina", "info", "4", "TD1", "TP2", ""},
		{"bilal@example.com", "Bilal", "info", "L3", "TD1", "TP1", "s3cret"},
		{"", "Sans Mail", "info", "3"},
		{"not-an-email", "X", "info", "3"},
		{"chloe@example.com", "Chloé", "", "3"},
	})

	result, err := svc.Import(context.Background(), adminActor, models.RoleStudent, data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 3)
	assert.Equal(t, models.SkippedRow{Line: 4, Reason: "missing email"}, result.Skipped[0])
	assert.Equal(t, "invalid email", result.Skipped[1].Reason)
	assert.Equal(t, "missing major", result.Skipped[2].Reason)

	require.Len(t, students.students, 2)
	assert.Equal(t, "INFO", students.students[0].Major)
	assert.Equal(t, 3, students.students[1].Year)

	amina := users.users["amina@example.com"]
	require.NotNil(t, amina)
	assert.Equal(t, "stu-amina@example.com", amina.ID)
	assert.Equal(t, models.RoleStudent, amina.Role)
	assert.True(t, amina.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(amina.PasswordHash), []byte(models.DefaultImportPassword)))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.users["bilal@example.com"].PasswordHash), []byte("s3cret")))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRosterImport, audit.logs[0].Action)
}

func TestRosterImportTeachers(t *testing.T) {
	svc, users, _, staff, _ := newRosterFixture()
	data := rosterWorkbook(t, [][]interface{}{
		{"email", "name", "department"},
		{"haddad@example.com", "M. Haddad", "Informatique"},
	})

	result, err := svc.Import(context.Background(), adminActor, models.RoleTeacher, data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, "Informatique", staff.staff["stf-haddad@example.com"].Department)
	assert.Equal(t, models.RoleTeacher, users.users["haddad@example.com"].Role)
}

func TestRosterImportRejectsBadInput(t *testing.T) {
	svc, _, _, _, _ := newRosterFixture()

	_, err := svc.Import(context.Background(), adminActor, models.RoleAdmin, nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Import(context.Background(), adminActor, models.RoleStudent, []byte("not a workbook"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRosterSetAssignments(t *testing.T) {
	svc, _, _, staff, _ := newRosterFixture()
	staff.staff["t1"] = &models.Staff{ID: "t1"}

	saved, err := svc.SetAssignments(context.Background(), adminActor, "t1", models.SetAssignmentsRequest{Assignments: []models.TeachingAssignment{
		{Subject: " Réseaux ", Type: "cm", Major: "info", Groups: pq.StringArray{"TP1"}},
		{Subject: "Réseaux", Type: "tp", Major: "INFO", Groups: pq.StringArray{"TP1", " ", "TP2 "}},
	}})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Réseaux", saved[0].Subject)
	assert.Equal(t, models.SessionTypeCM, saved[0].Type)
	assert.Empty(t, saved[0].Groups)
	assert.Equal(t, pq.StringArray{"TP1", "TP2"}, saved[1].Groups)
	assert.Equal(t, "t1", saved[1].StaffID)
	assert.Equal(t, 1, staff.replaceCall)

	_, err = svc.SetAssignments(context.Background(), adminActor, "t1", models.SetAssignmentsRequest{Assignments: []models.TeachingAssignment{
		{Subject: "Réseaux", Type: "TD", Major: "INFO"},
	}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.SetAssignments(context.Background(), adminActor, "ghost", models.SetAssignmentsRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 1, staff.replaceCall)
}
