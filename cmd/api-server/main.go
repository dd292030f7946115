package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-records-api/api/swagger"
	"github.com/noah-isme/campus-records-api/internal/assistant"
	"github.com/noah-isme/campus-records-api/internal/handler"
	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/cache"
	"github.com/noah-isme/campus-records-api/pkg/config"
	"github.com/noah-isme/campus-records-api/pkg/database"
	"github.com/noah-isme/campus-records-api/pkg/export"
	"github.com/noah-isme/campus-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-records-api/pkg/storage"
)

// @title Campus Records API
// @version 1.0.0
// @description Attendance, grading and student records for university programmes
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobs, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()
	metrics := service.NewMetricsService()
	pdf := export.NewPDFExporter()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	markRepo := repository.NewMarkRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	sheetRepo := repository.NewScheduleSheetRepository(db)
	documentRepo := repository.NewDocumentRequestRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	sessionSvc := service.NewSessionService(staffRepo, sheetRepo, attendanceRepo, studentRepo, cacheSvc, validate, logr, service.SessionConfig{
		RecencyWindow: cfg.Sessions.RecencyWindow,
		FallbackYear:  cfg.Sessions.FallbackYear,
		CacheTTL:      cfg.Cache.TTL,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, cacheSvc, metrics, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, studentRepo, markRepo, userRepo, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(subjectRepo, markRepo, studentRepo, userRepo, cacheSvc, validate, logr, cfg.Cache.TTL)
	exportSvc := service.NewExportService(gradeSvc, pdf, cfg.Documents.Institution, logr)
	documentSvc := service.NewDocumentRequestService(documentRepo, blobs, signer, pdf, userRepo, metrics, validate, logr, service.DocumentConfig{
		APIPrefix:   cfg.APIPrefix,
		Institution: cfg.Documents.Institution,
		Place:       cfg.Documents.Place,
		Signatory:   cfg.Documents.Signatory,
	})
	scheduleSvc := service.NewScheduleService(sheetRepo, studentRepo, blobs, signer, sessionSvc, userRepo, logr, cfg.APIPrefix)
	rosterSvc := service.NewRosterService(userRepo, studentRepo, staffRepo, sessionSvc, userRepo, validate, logr)
	assistantSvc := service.NewAssistantService(assistant.New(cfg.Assistant), quizRepo, conversationRepo, staffRepo, metrics, validate, logr)
	accountSvc := service.NewAccountService(userRepo, studentRepo, staffRepo, sessionSvc, userRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, blobs, signer, userRepo, validate, logr, cfg.APIPrefix)
	materialSvc := service.NewMaterialService(materialRepo, studentRepo, staffRepo, blobs, signer, userRepo, validate, logr, cfg.APIPrefix)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	maxUpload := cfg.Storage.MaxUploadBytes
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Sessions:   handler.NewSessionHandler(sessionSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Grades:     handler.NewGradeHandler(gradeSvc, exportSvc),
		Documents:  handler.NewDocumentRequestHandler(documentSvc, maxUpload),
		Schedules:  handler.NewScheduleHandler(scheduleSvc, maxUpload),
		Roster:     handler.NewRosterHandler(rosterSvc, maxUpload),
		Assistant:  handler.NewAssistantHandler(assistantSvc),

		Accounts:      handler.NewAccountHandler(accountSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc, maxUpload),
		Materials:     handler.NewMaterialHandler(materialSvc, maxUpload),
	}, handler.RouteDeps{Tokens: authSvc, Audit: userRepo})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
