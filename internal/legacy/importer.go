package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

// Legacy collection names.
const (
	CollectionStudents  = "students"
	CollectionStaff     = "staff"
	CollectionSubjects  = "subjects"
	CollectionMarks     = "marks"
	CollectionSchedules = "schedules"
	CollectionPresence  = "presence"
	CollectionDocuments = "document_requests"
)

// Source iterates over the documents of a legacy collection.
type Source interface {
	Each(ctx context.Context, collection string, fn func(doc bson.M) error) error
}

// MongoSource reads collections of the legacy MongoDB database.
type MongoSource struct {
	db *mongo.Database
}

// NewMongoSource wraps a database handle.
func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{db: db}
}

// Each decodes every document of the collection in _id order.
func (s *MongoSource) Each(ctx context.Context, collection string, fn func(doc bson.M) error) error {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("decode %s: %w", collection, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return cursor.Err()
}

type userStore interface {
	Upsert(ctx context.Context, user *models.User) error
}

type studentStore interface {
	Upsert(ctx context.Context, student *models.Student) error
}

type staffStore interface {
	Upsert(ctx context.Context, staff *models.Staff) error
	ReplaceAssignments(ctx context.Context, staffID string, assignments []models.TeachingAssignment) error
}

type subjectStore interface {
	Upsert(ctx context.Context, subject *models.Subject) error
}

type markStore interface {
	SetScores(ctx context.Context, subjectID string, updates []models.MarkUpdate) error
}

type sheetStore interface {
	Create(ctx context.Context, sheet *models.ScheduleSheet) error
}

type ledgerStore interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error)
}

type documentStore interface {
	Create(ctx context.Context, req *models.DocumentRequest) error
}

// Stores are the destinations of an import.
type Stores struct {
	Users     userStore
	Students  studentStore
	Staff     staffStore
	Subjects  subjectStore
	Marks     markStore
	Sheets    sheetStore
	Ledger    ledgerStore
	Documents documentStore
	Blobs     storage.BlobStore
}

// Options tune an import run.
type Options struct {
	// PasswordHash replaces stored password hashes that are not bcrypt.
	PasswordHash string
	// StaticDir is the legacy static directory holding uploaded files. Files
	// are not copied when empty.
	StaticDir string
}

// Counts tallies the outcome of one collection.
type Counts struct {
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// Report is the outcome of an import, keyed by collection.
type Report map[string]*Counts

// Importer copies the legacy collections into the relational store.
type Importer struct {
	source Source
	stores Stores
	opts   Options
	logger *zap.Logger

	ids    map[string]string
	sheets map[string]models.ScheduleSheet
}

// NewImporter constructs an Importer.
func NewImporter(source Source, stores Stores, opts Options, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		source: source,
		stores: stores,
		opts:   opts,
		logger: logger,
		ids:    map[string]string{},
		sheets: map[string]models.ScheduleSheet{},
	}
}

// Run imports every collection. Documents that cannot be converted are skipped;
// store failures abort the run.
func (im *Importer) Run(ctx context.Context) (Report, error) {
	report := Report{}
	steps := []struct {
		collection string
		fn         func(ctx context.Context, doc bson.M, counts *Counts) error
	}{
		{CollectionStudents, im.importStudent},
		{CollectionStaff, im.importStaff},
		{CollectionSubjects, im.importSubject},
		{CollectionMarks, im.importMarks},
		{CollectionSchedules, im.importSchedule},
		{CollectionPresence, im.importPresence},
		{CollectionDocuments, im.importDocument},
	}
	for _, step := range steps {
		counts := &Counts{}
		report[step.collection] = counts
		err := im.source.Each(ctx, step.collection, func(doc bson.M) error {
			return step.fn(ctx, doc, counts)
		})
		if err != nil {
			return report, fmt.Errorf("import %s: %w", step.collection, err)
		}
		im.logger.Info("collection imported",
			zap.String("collection", step.collection),
			zap.Int("imported", counts.Imported),
			zap.Int("skipped", counts.Skipped),
			zap.Int("duplicates", counts.Duplicates),
		)
	}
	return report, nil
}

func (im *Importer) skip(collection string, counts *Counts, err error) error {
	counts.Skipped++
	im.logger.Warn("legacy document skipped", zap.String("collection", collection), zap.Error(err))
	return nil
}

// resolve maps a legacy id to the id it was stored under.
func (im *Importer) resolve(id string) string {
	if stored, ok := im.ids[id]; ok {
		return stored
	}
	return id
}

func (im *Importer) importStudent(ctx context.Context, doc bson.M, counts *Counts) error {
	student, user, err := Student(doc, im.opts.PasswordHash)
	if err != nil {
		return im.skip(CollectionStudents, counts, err)
	}
	legacyID := student.ID
	if err := im.stores.Students.Upsert(ctx, &student); err != nil {
		return err
	}
	im.ids[legacyID] = student.ID
	user.ID = student.ID
	if err := im.stores.Users.Upsert(ctx, &user); err != nil {
		return err
	}
	counts.Imported++
	return nil
}

func (im *Importer) importStaff(ctx context.Context, doc bson.M, counts *Counts) error {
	staff, user, err := Staff(doc, im.opts.PasswordHash)
	if err != nil {
		return im.skip(CollectionStaff, counts, err)
	}
	legacyID := staff.ID
	if err := im.stores.Staff.Upsert(ctx, &staff); err != nil {
		return err
	}
	im.ids[legacyID] = staff.ID
	if err := im.stores.Staff.ReplaceAssignments(ctx, staff.ID, staff.Assignments); err != nil {
		return err
	}
	user.ID = staff.ID
	if err := im.stores.Users.Upsert(ctx, &user); err != nil {
		return err
	}
	counts.Imported++
	return nil
}

func (im *Importer) importSubject(ctx context.Context, doc bson.M, counts *Counts) error {
	subject, err := Subject(doc)
	if err != nil {
		return im.skip(CollectionSubjects, counts, err)
	}
	legacyID := subject.ID
	if err := im.stores.Subjects.Upsert(ctx, &subject); err != nil {
		return err
	}
	im.ids[legacyID] = subject.ID
	counts.Imported++
	return nil
}

func (im *Importer) importMarks(ctx context.Context, doc bson.M, counts *Counts) error {
	subjectID, updates, err := MarkUpdates(doc)
	if err != nil {
		return im.skip(CollectionMarks, counts, err)
	}
	if len(updates) == 0 {
		counts.Skipped++
		return nil
	}
	for i := range updates {
		updates[i].StudentID = im.resolve(updates[i].StudentID)
	}
	if err := im.stores.Marks.SetScores(ctx, im.resolve(subjectID), updates); err != nil {
		return err
	}
	counts.Imported++
	return nil
}

func (im *Importer) importSchedule(ctx context.Context, doc bson.M, counts *Counts) error {
	sheet, legacyPath, err := Schedule(doc)
	if err != nil {
		return im.skip(CollectionSchedules, counts, err)
	}
	sheet.Path = im.copyFile(ctx, "schedules", legacyPath)
	if err := im.stores.Sheets.Create(ctx, &sheet); err != nil {
		return err
	}
	im.sheets[sheet.ID] = sheet
	counts.Imported++
	return nil
}

func (im *Importer) importPresence(ctx context.Context, doc bson.M, counts *Counts) error {
	record, err := Attendance(doc, im.sheets)
	if err != nil {
		return im.skip(CollectionPresence, counts, err)
	}
	record.TeacherID = im.resolve(record.TeacherID)
	for i := range record.Entries {
		record.Entries[i].StudentID = im.resolve(record.Entries[i].StudentID)
	}
	inserted, err := im.stores.Ledger.Insert(ctx, &record)
	if err != nil {
		return err
	}
	if !inserted {
		counts.Duplicates++
		return nil
	}
	counts.Imported++
	return nil
}

func (im *Importer) importDocument(ctx context.Context, doc bson.M, counts *Counts) error {
	req, legacyPath, err := DocumentRequest(doc)
	if err != nil {
		return im.skip(CollectionDocuments, counts, err)
	}
	req.StudentID = im.resolve(req.StudentID)
	if req.Status == models.DocumentCompleted {
		if key := im.copyFile(ctx, "documents", legacyPath); key != "" {
			req.ArtifactPath = &key
		}
	}
	if err := im.stores.Documents.Create(ctx, &req); err != nil {
		return err
	}
	counts.Imported++
	return nil
}

// copyFile moves a legacy upload into the blob store and returns its key, or
// "" when the file is unavailable.
func (im *Importer) copyFile(ctx context.Context, folder, legacyPath string) string {
	if legacyPath == "" || im.opts.StaticDir == "" || im.stores.Blobs == nil {
		return ""
	}
	rel := filepath.Clean(strings.TrimPrefix(strings.TrimPrefix(legacyPath, "/"), "static/"))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		im.logger.Warn("legacy file path rejected", zap.String("path", legacyPath))
		return ""
	}
	data, err := os.ReadFile(filepath.Join(im.opts.StaticDir, rel))
	if err != nil {
		im.logger.Warn("legacy file unavailable", zap.String("path", legacyPath), zap.Error(err))
		return ""
	}
	key, err := im.stores.Blobs.Save(ctx, folder, data, filepath.Base(rel))
	if err != nil {
		im.logger.Warn("legacy file not stored", zap.String("path", legacyPath), zap.Error(err))
		return ""
	}
	return key
}
