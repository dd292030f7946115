package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-records-api/internal/legacy"
	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/pkg/config"
	"github.com/noah-isme/campus-records-api/pkg/database"
	"github.com/noah-isme/campus-records-api/pkg/logger"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

func main() {
	var (
		staticDir string
		password  string
		timeout   time.Duration
	)
	flag.StringVar(&staticDir, "static-dir", "", "Legacy static directory holding uploaded schedules and documents")
	flag.StringVar(&password, "default-password", models.DefaultImportPassword, "Password given to accounts whose stored hash cannot be reused")
	flag.DurationVar(&timeout, "timeout", 30*time.Minute, "Overall import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, mongoDB, err := database.NewMongo(ctx, cfg.Legacy)
	if err != nil {
		logr.Fatal("failed to connect legacy database", zap.Error(err))
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init storage", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("failed to hash default password", zap.Error(err))
	}

	importer := legacy.NewImporter(legacy.NewMongoSource(mongoDB), legacy.Stores{
		Users:     repository.NewUserRepository(db),
		Students:  repository.NewStudentRepository(db),
		Staff:     repository.NewStaffRepository(db),
		Subjects:  repository.NewSubjectRepository(db),
		Marks:     repository.NewMarkRepository(db),
		Sheets:    repository.NewScheduleSheetRepository(db),
		Ledger:    repository.NewAttendanceRepository(db),
		Documents: repository.NewDocumentRequestRepository(db),
		Blobs:     blobs,
	}, legacy.Options{PasswordHash: string(hash), StaticDir: staticDir}, logr)

	report, err := importer.Run(ctx)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(report)
	if err != nil {
		logr.Fatal("legacy import failed", zap.Error(err))
	}
	logr.Info("legacy import completed")
}
