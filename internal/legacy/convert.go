package legacy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// Student converts a document of the students collection into a student and its
// login account. passwordHash is used when the stored hash is not bcrypt.
func Student(doc bson.M, passwordHash string) (models.Student, models.User, error) {
	id := idOf(doc)
	email := strings.ToLower(str(doc, "email"))
	if id == "" || email == "" {
		return models.Student{}, models.User{}, fmt.Errorf("student %q: missing id or email", id)
	}
	name := str(doc, "full_name")
	student := models.Student{
		ID:          id,
		Email:       email,
		FullName:    name,
		Major:       strings.ToUpper(str(doc, "major")),
		Year:        intOf(doc["year"]),
		TDGroup:     str(doc, "td"),
		TPGroup:     str(doc, "tp"),
		Scholarship: boolOf(doc["scholarship"]),
		Graduated:   boolOf(doc["graduated"]),
	}
	user := models.User{
		ID:           id,
		Email:        email,
		PasswordHash: keepBcrypt(str(doc, "password"), passwordHash),
		FullName:     name,
		Role:         models.RoleStudent,
		Active:       !student.Graduated,
	}
	return student, user, nil
}

// Staff converts a document of the staff collection, including its embedded
// teaching assignments.
func Staff(doc bson.M, passwordHash string) (models.Staff, models.User, error) {
	id := idOf(doc)
	email := strings.ToLower(str(doc, "email"))
	if id == "" || email == "" {
		return models.Staff{}, models.User{}, fmt.Errorf("staff %q: missing id or email", id)
	}
	role, ok := models.ParseRole(str(doc, "role"))
	if !ok || role == models.RoleStudent {
		role = models.RoleTeacher
	}

	var assignments []models.TeachingAssignment
	for _, item := range list(doc["teaching_assignments"]) {
		a, ok := asMap(item)
		if !ok {
			continue
		}
		assignment := models.TeachingAssignment{
			StaffID: id,
			Subject: str(a, "subject"),
			Type:    models.SessionType(strings.ToUpper(str(a, "type"))),
			Major:   strings.ToUpper(str(a, "major")),
			Groups:  stringList(a["groups"]),
		}
		if assignment.Subject == "" || !assignment.Type.Valid() {
			continue
		}
		assignments = append(assignments, assignment)
	}

	staff := models.Staff{
		ID:          id,
		Email:       email,
		FullName:    str(doc, "full_name"),
		Department:  str(doc, "department"),
		Role:        role,
		Assignments: assignments,
	}
	hash := str(doc, "password_teacher")
	if role == models.RoleAdmin && str(doc, "password_admin") != "" {
		hash = str(doc, "password_admin")
	}
	user := models.User{
		ID:           id,
		Email:        email,
		PasswordHash: keepBcrypt(hash, passwordHash),
		FullName:     staff.FullName,
		Role:         role,
		Active:       true,
	}
	return staff, user, nil
}

// Subject converts a document of the subjects collection.
func Subject(doc bson.M) (models.Subject, error) {
	id := idOf(doc)
	name := str(doc, "name")
	if id == "" || name == "" {
		return models.Subject{}, fmt.Errorf("subject %q: missing id or name", id)
	}
	subject := models.Subject{
		ID:    id,
		Name:  name,
		Major: strings.ToUpper(str(doc, "major")),
		Year:  intOf(doc["year"]),
		Type:  str(doc, "type"),
	}
	if w, ok := asMap(doc["weights"]); ok {
		subject.Weights = models.Weights{
			CC:       floatOf(w["cc"]),
			Labs:     floatOf(w["labs"]),
			Projects: floatOf(w["projects"]),
		}
	}
	for _, item := range list(doc["columns"]) {
		c, ok := asMap(item)
		if !ok || str(c, "id") == "" {
			continue
		}
		subject.Columns = append(subject.Columns, models.Column{
			ID:   str(c, "id"),
			Name: str(c, "name"),
			Type: models.ColumnType(str(c, "type")),
		})
	}
	return subject, nil
}

// MarkUpdates turns a document of the marks collection into score updates,
// keeping raw values as they were typed.
func MarkUpdates(doc bson.M) (subjectID string, updates []models.MarkUpdate, err error) {
	studentID := str(doc, "student_id")
	subjectID = str(doc, "subject_id")
	if studentID == "" || subjectID == "" {
		return "", nil, fmt.Errorf("mark %q: missing student or subject", idOf(doc))
	}
	scores, _ := asMap(doc["marks"])
	for key, value := range scores {
		raw, err := json.Marshal(value)
		if err != nil {
			return "", nil, fmt.Errorf("mark %q: encode %s: %w", idOf(doc), key, err)
		}
		updates = append(updates, models.MarkUpdate{StudentID: studentID, Key: key, Value: raw})
	}
	return subjectID, updates, nil
}

// Schedule converts a document of the schedules collection. The returned path
// is the legacy location of the uploaded sheet.
func Schedule(doc bson.M) (models.ScheduleSheet, string, error) {
	id := idOf(doc)
	filename := str(doc, "filename")
	if id == "" || filename == "" {
		return models.ScheduleSheet{}, "", fmt.Errorf("schedule %q: missing id or filename", id)
	}
	return models.ScheduleSheet{
		ID:         id,
		Major:      strings.ToUpper(str(doc, "major")),
		Year:       intOf(doc["year"]),
		DateRange:  str(doc, "date_range"),
		Filename:   filename,
		UploadedAt: timeOf(doc["upload_date"]),
	}, str(doc, "file_path"), nil
}

// Attendance converts a document of the presence collection. The session id is
// kept verbatim so that sessions resolve to the same ledger entry after import.
func Attendance(doc bson.M, sheets map[string]models.ScheduleSheet) (models.AttendanceRecord, error) {
	sessionID := str(doc, "session_id")
	if sessionID == "" {
		return models.AttendanceRecord{}, fmt.Errorf("presence %q: missing session id", idOf(doc))
	}
	record := models.AttendanceRecord{
		ID:          idOf(doc),
		SessionID:   sessionID,
		TeacherID:   str(doc, "teacher_id"),
		TeacherName: str(doc, "teacher_name"),
		Subject:     str(doc, "subject"),
		SessionType: models.SessionType(strings.ToUpper(str(doc, "type"))),
		GroupName:   str(doc, "group"),
		WeekLabel:   str(doc, "week"),
		Postponed:   boolOf(doc["postponed"]),
		SubmittedAt: timeOf(doc["date_submitted"]),
	}
	if prefix, _, found := strings.Cut(sessionID, "_"); found {
		if sheet, ok := sheets[prefix]; ok {
			record.Major = sheet.Major
			record.Year = sheet.Year
		}
	}
	for _, item := range list(doc["students"]) {
		e, ok := asMap(item)
		if !ok {
			continue
		}
		record.Entries = append(record.Entries, models.AttendanceEntry{
			StudentID: str(e, "id"),
			Name:      str(e, "name"),
			Status:    models.AttendanceStatus(strings.ToLower(str(e, "status"))),
		})
	}
	return record, nil
}

// DocumentRequest converts a document of the document_requests collection. The
// returned path is the legacy location of the issued file, if any.
func DocumentRequest(doc bson.M) (models.DocumentRequest, string, error) {
	id := idOf(doc)
	studentID := str(doc, "student_id")
	if id == "" || studentID == "" {
		return models.DocumentRequest{}, "", fmt.Errorf("document request %q: missing id or student", id)
	}
	req := models.DocumentRequest{
		ID:           id,
		StudentID:    studentID,
		StudentName:  str(doc, "student_name"),
		DocumentType: str(doc, "doc_type"),
		Details:      str(doc, "details"),
		Status:       models.DocumentStatus(strings.ToLower(str(doc, "status"))),
		RequestedAt:  timeOf(doc["request_date"]),
	}
	switch req.Status {
	case models.DocumentCompleted, models.DocumentRejected:
		processed := req.RequestedAt
		req.ProcessedAt = &processed
	default:
		req.Status = models.DocumentPending
	}
	if reason := str(doc, "rejection_reason"); reason != "" && req.Status == models.DocumentRejected {
		req.RejectionReason = &reason
	}
	return req, str(doc, "file_path"), nil
}

func idOf(doc bson.M) string {
	switch v := doc["_id"].(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}

func str(doc bson.M, key string) string {
	switch v := doc[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case primitive.ObjectID:
		return v.Hex()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intOf(value interface{}) int {
	switch v := value.(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func floatOf(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(v), ",", ".", 1), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return float64(intOf(v))
	}
}

func boolOf(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// timeOf reads the epoch seconds the legacy system stored for timestamps.
func timeOf(value interface{}) time.Time {
	switch v := value.(type) {
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	case int64:
		return time.Unix(v, 0).UTC()
	case int32:
		return time.Unix(int64(v), 0).UTC()
	case primitive.DateTime:
		return v.Time().UTC()
	default:
		return time.Time{}
	}
}

func asMap(value interface{}) (bson.M, bool) {
	switch v := value.(type) {
	case bson.M:
		return v, true
	case map[string]interface{}:
		return bson.M(v), true
	case bson.D:
		m := make(bson.M, len(v))
		for _, e := range v {
			m[e.Key] = e.Value
		}
		return m, true
	default:
		return nil, false
	}
}

func list(value interface{}) []interface{} {
	switch v := value.(type) {
	case bson.A:
		return v
	case []interface{}:
		return v
	default:
		return nil
	}
}

func stringList(value interface{}) []string {
	var out []string
	for _, item := range list(value) {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func keepBcrypt(stored, fallback string) string {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return stored
	}
	return fallback
}
