package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/baobab-labs/school-portal-api/api/swagger"
	"github.com/baobab-labs/school-portal-api/internal/handler"
	"github.com/baobab-labs/school-portal-api/internal/middleware"
	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	"github.com/baobab-labs/school-portal-api/internal/service"
	"github.com/baobab-labs/school-portal-api/pkg/cache"
	"github.com/baobab-labs/school-portal-api/pkg/config"
	"github.com/baobab-labs/school-portal-api/pkg/database"
	"github.com/baobab-labs/school-portal-api/pkg/jobs"
	"github.com/baobab-labs/school-portal-api/pkg/logger"
	corsmiddleware "github.com/baobab-labs/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/baobab-labs/school-portal-api/pkg/middleware/requestid"
)

// @title School Portal API
// @version 1.0.0
// @description Grading, term results, admissions and account management for the school portal.
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Results.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without result cache", "error", err)
			redisClient = nil
		}
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	resultRepo := repository.NewResultRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	authzSvc := service.NewAuthzService(userRepo, studentRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-portal-api",
	})

	gradeSvc := service.NewGradeService(gradeRepo, authzSvc, userRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, gradeRepo, catalogRepo, cacheRepo, authzSvc, userRepo, logr, cfg.Results.CacheTTL)
	admissionSvc := service.NewAdmissionService(applicationRepo, authzSvc, userRepo, validate, logr, service.AdmissionConfig{
		OpenForSubmissions: cfg.Admissions.OpenForSubmissions,
		DefaultRejection:   cfg.Admissions.DefaultRejection,
	})
	studentSvc := service.NewStudentService(studentRepo, authzSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, authzSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, authzSvc, validate, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, authzSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	importSvc := service.NewImportService(studentRepo, catalogRepo, authzSvc, userRepo, logr, service.ImportConfig{
		Enabled: cfg.Imports.Enabled,
		MaxRows: cfg.Imports.MaxRows,
	})
	reportSvc := service.NewReportService(resultRepo, gradeRepo, studentRepo, catalogRepo, authzSvc, logr, service.ReportConfig{
		Enabled:    cfg.Reports.Enabled,
		SchoolName: cfg.Reports.SchoolName,
	})

	gradeSvc.AttachMetrics(metricsSvc)
	resultSvc.AttachMetrics(metricsSvc)
	admissionSvc.AttachMetrics(metricsSvc)
	importSvc.AttachMetrics(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("results", resultSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Results.WorkerConcurrency,
		MaxRetries: cfg.Results.WorkerRetries,
		Logger:     logr,
	})
	resultSvc.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	userHandler := handler.NewUserHandler(userSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	importHandler := handler.NewImportHandler(importSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: admission intake and login. Intake stays open to
	// anonymous applicants; staff submitting on their behalf still get
	// their identity attached for the request audit trail.
	api.POST("/applications",
		middleware.OptionalJWT(authSvc),
		middleware.Audit(userRepo, models.AuditActionApplicationSubmit, "applications"),
		admissionHandler.Submit)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)
	}

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		staff.GET("/grades", gradeHandler.List)
		staff.GET("/grades/:id", gradeHandler.Get)
		staff.POST("/grades", gradeHandler.Upsert)
		staff.POST("/grades/submit", gradeHandler.SubmitScope)
		staff.POST("/grades/:id/submit", gradeHandler.Submit)
		staff.POST("/grades/:id/approve", gradeHandler.Approve)
		staff.POST("/grades/:id/revert", gradeHandler.Revert)
		staff.POST("/grades/:id/unlock", gradeHandler.Unlock)

		staff.POST("/results/aggregate", resultHandler.Aggregate)
		staff.GET("/results", resultHandler.ListByClassTerm)
		staff.POST("/results/publish", resultHandler.Publish)
		staff.PATCH("/results/:id/comments", resultHandler.UpdateComments)

		staff.GET("/students", studentHandler.List)
		staff.GET("/students/:id", studentHandler.Get)
		staff.POST("/students", studentHandler.Create)
		staff.PUT("/students/:id", studentHandler.Update)
		staff.DELETE("/students/:id", studentHandler.Deactivate)

		staff.POST("/attendance", attendanceHandler.Mark)
		staff.GET("/attendance", attendanceHandler.List)
		staff.GET("/attendance/students/:studentId/summary", attendanceHandler.Summary)

		staff.GET("/reports/classes/:classId/sheet", reportHandler.ClassResultSheet)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/applications", admissionHandler.List)
		admin.GET("/applications/:id", admissionHandler.Get)
		admin.POST("/applications/:id/accept", admissionHandler.Accept)
		admin.POST("/applications/:id/reject", admissionHandler.Reject)

		admin.GET("/teachers", teacherHandler.List)
		admin.GET("/teachers/:id", teacherHandler.Get)
		admin.POST("/teachers", teacherHandler.Create)
		admin.PUT("/teachers/:id", teacherHandler.Update)
		admin.DELETE("/teachers/:id", teacherHandler.Deactivate)

		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:id/permissions", userHandler.GetPermissions)
		admin.PUT("/users/:id/permissions", userHandler.SetPermissions)

		admin.POST("/terms", catalogHandler.CreateTerm)
		admin.POST("/classes", catalogHandler.CreateClass)
		admin.POST("/subjects", catalogHandler.CreateSubject)

		admin.POST("/imports/students", middleware.Audit(userRepo, models.AuditActionBulkImport, "students"), importHandler.Students)
	}

	// Reads open to every authenticated role, including students.
	authed.GET("/terms", catalogHandler.ListTerms)
	authed.GET("/terms/:id", catalogHandler.GetTerm)
	authed.GET("/classes", catalogHandler.ListClasses)
	authed.GET("/subjects", catalogHandler.ListSubjects)
	authed.GET("/results/students/:studentId/terms/:termId", resultHandler.StudentResult)
	authed.GET("/results/students/:studentId/transcript", resultHandler.Transcript)
	authed.GET("/reports/students/:studentId/card", reportHandler.ReportCard)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
