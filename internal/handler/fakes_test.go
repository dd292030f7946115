package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/assistant"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type tokenTable map[string]*models.JWTClaims

func (tt tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := tt[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = tokenTable{
	"student": {UserID: "s1", Role: models.RoleStudent, FullName: "Amina Benali", Email: "amina@campus.test"},
	"teacher": {UserID: "t1", Role: models.RoleTeacher, FullName: "M. Haddad"},
	"admin":   {UserID: "a1", Role: models.RoleAdmin, FullName: "Admin"},
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fakeAuthSvc struct {
	last models.LoginRequest
	resp *models.LoginResponse
	err  error
}

func (f *fakeAuthSvc) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.last = req
	return f.resp, f.err
}

type fakeSessionSvc struct {
	staffID  string
	sessions []models.Session
	err      error
}

func (f *fakeSessionSvc) ListForTeacher(_ context.Context, staffID string) ([]models.Session, error) {
	f.staffID = staffID
	return f.sessions, f.err
}

func (f *fakeSessionSvc) StudentsForSession(context.Context, models.SessionStudentsRequest) ([]models.Student, error) {
	return []models.Student{}, f.err
}

type fakeAttendanceSvc struct {
	submitted []models.SubmitAttendanceRequest
	submitErr error
	rows      []models.AbsenceRow
	csv       []byte
}

func (f *fakeAttendanceSvc) Submit(_ context.Context, actor models.Actor, req models.SubmitAttendanceRequest) (*models.AttendanceRecord, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return &models.AttendanceRecord{ID: "rec-1", SessionID: req.SessionID, TeacherID: actor.UserID}, nil
}

func (f *fakeAttendanceSvc) StudentSummary(context.Context, string) ([]models.AbsenceSummary, error) {
	return []models.AbsenceSummary{}, nil
}

func (f *fakeAttendanceSvc) GlobalAbsences(context.Context) ([]models.AbsenceRow, error) {
	return f.rows, nil
}

func (f *fakeAttendanceSvc) ExportGlobalAbsencesCSV(context.Context) ([]byte, error) {
	return f.csv, nil
}

type fakeSubjectSvc struct {
	deleted   []string
	deleteErr error
	names     []string
	studentID string
}

func (f *fakeSubjectSvc) GetGradingSheet(context.Context, models.GradingSheetRequest) (*models.GradingSheet, error) {
	return &models.GradingSheet{}, nil
}

func (f *fakeSubjectSvc) UpdateWeights(_ context.Context, _ models.Actor, subjectID string, _ models.Weights) (*models.Subject, error) {
	return &models.Subject{ID: subjectID}, nil
}

func (f *fakeSubjectSvc) AddColumn(context.Context, models.Actor, string, models.AddColumnRequest) (*models.Column, error) {
	return &models.Column{}, nil
}

func (f *fakeSubjectSvc) DeleteColumn(_ context.Context, _ models.Actor, subjectID, columnID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, subjectID+"/"+columnID)
	return nil
}

func (f *fakeSubjectSvc) ListForStudent(_ context.Context, studentID string) ([]string, error) {
	f.studentID = studentID
	return f.names, nil
}

type fakeGradeSvc struct {
	savedSubject string
	saved        models.SaveMarksRequest
	saveErr      error
	report       *models.StudentReport
}

func (f *fakeGradeSvc) SaveMarks(_ context.Context, _ models.Actor, subjectID string, req models.SaveMarksRequest) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedSubject = subjectID
	f.saved = req
	return nil
}

func (f *fakeGradeSvc) StudentReport(_ context.Context, studentID string) (*models.StudentReport, error) {
	if f.report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	report := *f.report
	report.StudentID = studentID
	return &report, nil
}

type fakeTranscriptSvc struct {
	studentID string
}

func (f *fakeTranscriptSvc) TranscriptPDF(_ context.Context, studentID string) ([]byte, string, error) {
	f.studentID = studentID
	return []byte("%PDF-1.3"), "releve_Amina_Benali.pdf", nil
}

type fakeDocumentSvc struct {
	completedFile *models.UploadedFile
	completeErr   error
	downloads     map[string]string
}

func (f *fakeDocumentSvc) Create(_ context.Context, actor models.Actor, req models.CreateDocumentRequest) (*models.DocumentRequest, error) {
	return &models.DocumentRequest{ID: "doc-1", StudentID: actor.UserID, DocumentType: req.DocumentType, Status: models.DocumentPending}, nil
}

func (f *fakeDocumentSvc) ListMine(context.Context, string) ([]models.DocumentRequest, error) {
	return []models.DocumentRequest{}, nil
}

func (f *fakeDocumentSvc) ListAll(context.Context) ([]models.DocumentRequest, error) {
	return []models.DocumentRequest{}, nil
}

func (f *fakeDocumentSvc) Complete(_ context.Context, _ models.Actor, id string, file *models.UploadedFile) (*models.DocumentRequest, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completedFile = file
	return &models.DocumentRequest{ID: id, Status: models.DocumentCompleted}, nil
}

func (f *fakeDocumentSvc) Reject(_ context.Context, _ models.Actor, id string, _ models.RejectDocumentRequest) (*models.DocumentRequest, error) {
	return &models.DocumentRequest{ID: id, Status: models.DocumentRejected}, nil
}

func (f *fakeDocumentSvc) DownloadURL(_ context.Context, _ models.Actor, id string) (*models.DocumentDownload, error) {
	return &models.DocumentDownload{URL: "/api/v1/documents/download?token=tok-" + id, Token: "tok-" + id}, nil
}

func (f *fakeDocumentSvc) Download(_ context.Context, token string) (io.ReadCloser, string, error) {
	body, ok := f.downloads[token]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	return io.NopCloser(bytes.NewBufferString(body)), "Attestation.pdf", nil
}

type fakeScheduleSvc struct {
	files []models.UploadedFile
	role  models.UserRole
}

func (f *fakeScheduleSvc) Upload(_ context.Context, _ models.Actor, files []models.UploadedFile) (*models.ScheduleUploadResult, error) {
	f.files = files
	return &models.ScheduleUploadResult{Uploaded: []models.ScheduleSheet{}, Skipped: []models.SkippedFile{}}, nil
}

func (f *fakeScheduleSvc) List(_ context.Context, actor models.Actor) ([]models.ScheduleListing, error) {
	f.role = actor.Role
	return []models.ScheduleListing{}, nil
}

type fakeRosterSvc struct {
	role    models.UserRole
	data    []byte
	staffID string
}

func (f *fakeRosterSvc) Import(_ context.Context, _ models.Actor, role models.UserRole, data []byte) (*models.RosterImportResult, error) {
	f.role = role
	f.data = data
	return &models.RosterImportResult{}, nil
}

func (f *fakeRosterSvc) SetAssignments(_ context.Context, _ models.Actor, staffID string, req models.SetAssignmentsRequest) ([]models.TeachingAssignment, error) {
	f.staffID = staffID
	return req.Assignments, nil
}

type fakeAssistantSvc struct {
	reply       assistant.Reply
	quiz        models.QuizContent
	generated   bool
	saved       *models.Quiz
	gradeResult *models.QuizResult
	stored      *models.Quiz
	hintReq     models.QuizHintRequest
	chatReply   *models.ChatReply
	chatReq     models.ChatRequest
	convs       []models.ConversationSummary
}

func (f *fakeAssistantSvc) Summarize(context.Context, models.SummaryRequest) (assistant.Reply, error) {
	return f.reply, nil
}

func (f *fakeAssistantSvc) StudyPlan(context.Context, models.StudyPlanRequest) (assistant.Reply, error) {
	return f.reply, nil
}

func (f *fakeAssistantSvc) GenerateQuiz(context.Context, models.QuizRequest) (models.QuizContent, bool, error) {
	return f.quiz, f.generated, nil
}

func (f *fakeAssistantSvc) SaveQuiz(_ context.Context, actor models.Actor, content models.QuizContent, fallback bool) (*models.Quiz, error) {
	f.saved = &models.Quiz{ID: "quiz-1", UserID: actor.UserID, Content: content, Fallback: fallback}
	return f.saved, nil
}

func (f *fakeAssistantSvc) GradeQuiz(context.Context, models.Actor, models.GradeQuizRequest) (*models.QuizResult, error) {
	if f.gradeResult == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
	}
	return f.gradeResult, nil
}

func (f *fakeAssistantSvc) GetQuiz(_ context.Context, actor models.Actor, id string) (*models.Quiz, error) {
	if f.stored == nil || f.stored.ID != id || f.stored.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
	}
	return f.stored, nil
}

func (f *fakeAssistantSvc) QuizHint(_ context.Context, _ models.Actor, req models.QuizHintRequest) (*models.QuizHint, error) {
	f.hintReq = req
	if f.stored == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
	}
	return &models.QuizHint{Hint: assistant.Hint(f.stored.Content, req.Index)}, nil
}

func (f *fakeAssistantSvc) Chat(_ context.Context, _ models.Actor, req models.ChatRequest) (*models.ChatReply, error) {
	f.chatReq = req
	if f.chatReply == nil {
		return &models.ChatReply{SessionID: req.SessionID, Fallback: true}, nil
	}
	return f.chatReply, nil
}

func (f *fakeAssistantSvc) ListConversations(context.Context, models.Actor) ([]models.ConversationSummary, error) {
	return f.convs, nil
}

func (f *fakeAssistantSvc) LoadConversation(_ context.Context, actor models.Actor, sessionID string) (*models.Conversation, error) {
	for _, c := range f.convs {
		if c.SessionID == sessionID {
			return &models.Conversation{SessionID: c.SessionID, UserID: actor.UserID, Title: c.Title, Messages: models.ChatMessages{{User: "bonjour", AI: "salut"}}}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
}

type fakeAccountSvc struct {
	role    models.UserRole
	req     models.AccountRequest
	id      string
	deleted []string
	err     error
}

func (f *fakeAccountSvc) ListStudents(context.Context) ([]models.Student, error) {
	f.role = models.RoleStudent
	return []models.Student{{ID: "s1", FullName: "Amina Benali", Major: "INFO", Year: 4}}, nil
}

func (f *fakeAccountSvc) ListStaff(_ context.Context, role models.UserRole) ([]models.Staff, error) {
	f.role = role
	return []models.Staff{}, nil
}

func (f *fakeAccountSvc) Create(_ context.Context, _ models.Actor, role models.UserRole, req models.AccountRequest) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.role, f.req = role, req
	return &models.Account{ID: "new-1", Role: role}, nil
}

func (f *fakeAccountSvc) Update(_ context.Context, _ models.Actor, role models.UserRole, id string, req models.AccountRequest) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.role, f.id, f.req = role, id, req
	return &models.Account{ID: id, Role: role}, nil
}

func (f *fakeAccountSvc) Delete(_ context.Context, _ models.Actor, role models.UserRole, id string) error {
	if f.err != nil {
		return f.err
	}
	f.role = role
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAccountSvc) StudentProfile(_ context.Context, actor models.Actor) (*models.StudentProfile, error) {
	f.id = actor.UserID
	return &models.StudentProfile{FullName: actor.FullName, Major: "INFO", Year: 4, Scholarship: true}, nil
}

type fakeAnnouncementSvc struct {
	req  models.AnnouncementRequest
	file *models.UploadedFile
	err  error
}

func (f *fakeAnnouncementSvc) Post(_ context.Context, actor models.Actor, req models.AnnouncementRequest, file *models.UploadedFile) (*models.Announcement, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.req, f.file = req, file
	return &models.Announcement{ID: "ann-1", Title: req.Title, Author: actor.FullName}, nil
}

func (f *fakeAnnouncementSvc) List(context.Context) ([]models.Announcement, error) {
	return []models.Announcement{{ID: "ann-1", Title: "Rentrée"}}, nil
}

type fakeMaterialSvc struct {
	req     models.MaterialUploadRequest
	files   []models.UploadedFile
	subject string
}

func (f *fakeMaterialSvc) Upload(_ context.Context, _ models.Actor, req models.MaterialUploadRequest, files []models.UploadedFile) ([]models.CourseMaterial, error) {
	f.req, f.files = req, files
	out := make([]models.CourseMaterial, 0, len(files))
	for _, file := range files {
		out = append(out, models.CourseMaterial{Subject: req.Subject, Filename: file.Filename})
	}
	return out, nil
}

func (f *fakeMaterialSvc) ListForStudent(_ context.Context, _ models.Actor, subject string) ([]models.CourseMaterial, error) {
	f.subject = subject
	return []models.CourseMaterial{}, nil
}

func (f *fakeMaterialSvc) UploadOptions(context.Context, models.Actor) ([]models.UploadOption, error) {
	return []models.UploadOption{{Subject: "Réseaux", Major: "INFO"}}, nil
}

type testServices struct {
	auth       *fakeAuthSvc
	sessions   *fakeSessionSvc
	attendance *fakeAttendanceSvc
	subjects   *fakeSubjectSvc
	grades     *fakeGradeSvc
	transcript *fakeTranscriptSvc
	documents  *fakeDocumentSvc
	schedules  *fakeScheduleSvc
	roster     *fakeRosterSvc
	assistant  *fakeAssistantSvc
	accounts   *fakeAccountSvc
	notices    *fakeAnnouncementSvc
	materials  *fakeMaterialSvc
	audit      *auditRecorder
}

func newTestServices() *testServices {
	return &testServices{
		auth:       &fakeAuthSvc{},
		sessions:   &fakeSessionSvc{},
		attendance: &fakeAttendanceSvc{},
		subjects:   &fakeSubjectSvc{},
		grades:     &fakeGradeSvc{},
		transcript: &fakeTranscriptSvc{},
		documents:  &fakeDocumentSvc{downloads: map[string]string{}},
		schedules:  &fakeScheduleSvc{},
		roster:     &fakeRosterSvc{},
		assistant:  &fakeAssistantSvc{},
		accounts:   &fakeAccountSvc{},
		notices:    &fakeAnnouncementSvc{},
		materials:  &fakeMaterialSvc{},
		audit:      &auditRecorder{},
	}
}

func newTestRouter(svcs *testServices, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Auth:       NewAuthHandler(svcs.auth),
		Sessions:   NewSessionHandler(svcs.sessions),
		Attendance: NewAttendanceHandler(svcs.attendance),
		Subjects:   NewSubjectHandler(svcs.subjects),
		Grades:     NewGradeHandler(svcs.grades, svcs.transcript),
		Documents:  NewDocumentRequestHandler(svcs.documents, maxUpload),
		Schedules:  NewScheduleHandler(svcs.schedules, maxUpload),
		Roster:     NewRosterHandler(svcs.roster, maxUpload),
		Assistant:  NewAssistantHandler(svcs.assistant),

		Accounts:      NewAccountHandler(svcs.accounts),
		Announcements: NewAnnouncementHandler(svcs.notices, maxUpload),
		Materials:     NewMaterialHandler(svcs.materials, maxUpload),
	}, RouteDeps{Tokens: testTokens, Audit: svcs.audit})
	return r
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func doMultipart(t *testing.T, r *gin.Engine, path, token string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	return doMultipartForm(t, r, path, token, nil, files...)
}

func doMultipartForm(t *testing.T, r *gin.Engine, path, token string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
