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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edustack/sis-api/api/swagger"
	"github.com/edustack/sis-api/internal/edfi"
	"github.com/edustack/sis-api/internal/handler"
	"github.com/edustack/sis-api/internal/middleware"
	"github.com/edustack/sis-api/internal/models"
	"github.com/edustack/sis-api/internal/repository"
	"github.com/edustack/sis-api/internal/service"
	"github.com/edustack/sis-api/pkg/cache"
	"github.com/edustack/sis-api/pkg/config"
	"github.com/edustack/sis-api/pkg/database"
	"github.com/edustack/sis-api/pkg/jobs"
	"github.com/edustack/sis-api/pkg/logger"
	corsmiddleware "github.com/edustack/sis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edustack/sis-api/pkg/middleware/requestid"
	"github.com/edustack/sis-api/pkg/storage"
)

// @title EduStack SIS API
// @version 1.0.0
// @description Student information system with Ed-Fi ODS synchronization
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, settings cache disabled", zap.Error(err))
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	termRepo := repository.NewTermRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	edfiRepo := repository.NewEdFiRepository(schoolRepo, studentRepo, courseRepo, sectionRepo, gradeRepo)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, tokenRepo, auditRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sis-api",
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	staffSvc := service.NewStaffService(staffRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	sectionSvc := service.NewSectionService(sectionRepo, nil, logr)
	termSvc := service.NewTermService(termRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, sectionRepo, nil, logr)
	gradeSvc := service.NewGradeService(gradeRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, nil, logr)
	disciplineSvc := service.NewDisciplineService(disciplineRepo, nil, logr)
	settingSvc := service.NewSettingService(settingRepo, cacheRepo, metricsSvc, cfg.Settings.CacheTTL, nil, logr)

	// Ed-Fi sync engine.
	tokenSource := edfi.NewTokenSource(cfg.EdFi, nil, nil, logr)
	edfiClient := edfi.NewClient(cfg.EdFi, tokenSource, logr, metricsSvc)
	syncEngine := edfi.NewService(edfiRepo, edfiClient, cfg.EdFi.DefaultSchoolID, logr, nil, metricsSvc)

	// The queue handler and the service reference each other, so build the
	// runner first and hand the queue to the instance the handlers use.
	syncRunner := service.NewSyncService(syncEngine, auditRepo, nil, logr)
	syncQueue := jobs.NewQueue("edfi-sync", syncRunner.RunQueuedSync, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.EdFi.SyncQueueSize,
		Logger:     logr,
	})
	syncSvc := service.NewSyncService(syncEngine, auditRepo, syncQueue, logr)

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	syncQueue.Start(queueCtx)
	defer syncQueue.Stop()

	// Exports.
	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(gradeRepo, studentRepo, store, signer, logr)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	termHandler := handler.NewTermHandler(termSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	disciplineHandler := handler.NewDisciplineHandler(disciplineSvc)
	settingHandler := handler.NewSettingHandler(settingSvc)
	edfiHandler := handler.NewEdFiHandler(syncSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffUp := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff, models.RoleTeacher)

	users := secured.Group("/users", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordChange, "users"))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	schools := secured.Group("/schools")
	{
		schools.GET("", anyRole, schoolHandler.List)
		schools.GET("/:id", anyRole, schoolHandler.Get)
		schools.POST("", adminOnly, schoolHandler.Create)
		schools.PUT("/:id", adminOnly, schoolHandler.Update)
		schools.DELETE("/:id", adminOnly, schoolHandler.Delete)
	}

	students := secured.Group("/students")
	{
		students.GET("", anyRole, studentHandler.List)
		students.GET("/:id", anyRole, studentHandler.Get)
		students.POST("", staffUp, studentHandler.Create)
		students.PUT("/:id", staffUp, studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)
	}

	staff := secured.Group("/staff", staffUp)
	{
		staff.GET("", staffHandler.List)
		staff.GET("/:id", staffHandler.Get)
		staff.POST("", adminOnly, staffHandler.Create)
		staff.PUT("/:id", adminOnly, staffHandler.Update)
		staff.DELETE("/:id", adminOnly, staffHandler.Delete)
	}

	courses := secured.Group("/courses")
	{
		courses.GET("", anyRole, courseHandler.List)
		courses.GET("/:id", anyRole, courseHandler.Get)
		courses.POST("", staffUp, courseHandler.Create)
		courses.PUT("/:id", staffUp, courseHandler.Update)
		courses.DELETE("/:id", adminOnly, courseHandler.Delete)
	}

	sections := secured.Group("/sections")
	{
		sections.GET("", anyRole, sectionHandler.List)
		sections.GET("/:id", anyRole, sectionHandler.Get)
		sections.POST("", staffUp, sectionHandler.Create)
		sections.PUT("/:id", staffUp, sectionHandler.Update)
		sections.DELETE("/:id", adminOnly, sectionHandler.Delete)
	}

	terms := secured.Group("/terms")
	{
		terms.GET("", anyRole, termHandler.List)
		terms.GET("/active", anyRole, termHandler.GetActive)
		terms.GET("/:id", anyRole, termHandler.Get)
		terms.POST("", adminOnly, termHandler.Create)
		terms.PUT("/:id", adminOnly, termHandler.Update)
		terms.POST("/:id/activate", adminOnly, termHandler.Activate)
		terms.GET("/:id/grading-periods", anyRole, termHandler.ListGradingPeriods)
		terms.POST("/:id/grading-periods", adminOnly, termHandler.CreateGradingPeriod)
	}

	enrollments := secured.Group("/enrollments", staffUp)
	{
		enrollments.POST("", enrollmentHandler.Enroll)
		enrollments.POST("/withdraw/:studentId", enrollmentHandler.Withdraw)
		enrollments.POST("/sections", enrollmentHandler.AddToSection)
		enrollments.POST("/sections/:id/drop", enrollmentHandler.DropFromSection)
		enrollments.GET("/students/:studentId", enrollmentHandler.ListForStudent)
	}

	grades := secured.Group("/grades")
	{
		grades.GET("", anyRole, gradeHandler.List)
		grades.GET("/:id", anyRole, gradeHandler.Get)
		grades.PUT("", anyRole, gradeHandler.Record)
		grades.DELETE("/:id", staffUp, gradeHandler.Delete)
	}

	attendance := secured.Group("/attendance", anyRole)
	{
		attendance.POST("", attendanceHandler.Record)
		attendance.GET("", attendanceHandler.List)
		attendance.GET("/summary/:studentId", attendanceHandler.Summary)
	}

	discipline := secured.Group("/discipline", staffUp)
	{
		discipline.GET("", disciplineHandler.List)
		discipline.GET("/:id", disciplineHandler.Get)
		discipline.POST("", disciplineHandler.Create)
		discipline.PUT("/:id", disciplineHandler.Update)
		discipline.DELETE("/:id", disciplineHandler.Delete)
	}

	settings := secured.Group("/settings")
	{
		settings.GET("", anyRole, settingHandler.List)
		settings.GET("/:key", anyRole, settingHandler.Get)
		settings.PUT("", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordChange, "settings"), settingHandler.Upsert)
	}

	if exportSvc != nil {
		reportHandler := handler.NewReportHandler(exportSvc)
		reports := secured.Group("/reports", staffUp)
		{
			reports.POST("/report-card/:studentId", reportHandler.ReportCard)
		}
		// Download is authenticated by the signed token itself.
		api.GET("/reports/download", reportHandler.Download)
	}

	edfiRoutes := secured.Group("/edfi", adminOnly)
	{
		edfiRoutes.GET("/test-connection", edfiHandler.TestConnection)
		edfiRoutes.POST("/sync-all", edfiHandler.SyncAll)
		edfiRoutes.POST("/sync/schools", edfiHandler.SyncSchools)
		edfiRoutes.POST("/sync/students", edfiHandler.SyncStudents)
		edfiRoutes.POST("/sync/courses", edfiHandler.SyncCourses)
		edfiRoutes.POST("/sync/sections", edfiHandler.SyncSections)
		edfiRoutes.POST("/sync/grades", edfiHandler.SyncGrades)
		edfiRoutes.POST("/sync/school/:id", edfiHandler.SyncSchool)
		edfiRoutes.POST("/sync/student/:id", edfiHandler.SyncStudent)
		edfiRoutes.POST("/sync/course/:id", edfiHandler.SyncCourse)
		edfiRoutes.POST("/sync/section/:id", edfiHandler.SyncSection)
		edfiRoutes.POST("/sync/grade/:id", edfiHandler.SyncGrade)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
