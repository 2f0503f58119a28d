package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/landmark-academy/school-portal-api/api/swagger"
	"github.com/landmark-academy/school-portal-api/internal/handler"
	"github.com/landmark-academy/school-portal-api/internal/middleware"
	"github.com/landmark-academy/school-portal-api/internal/repository"
	"github.com/landmark-academy/school-portal-api/internal/service"
	"github.com/landmark-academy/school-portal-api/pkg/cache"
	"github.com/landmark-academy/school-portal-api/pkg/config"
	"github.com/landmark-academy/school-portal-api/pkg/database"
	"github.com/landmark-academy/school-portal-api/pkg/logger"
	corsmiddleware "github.com/landmark-academy/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/landmark-academy/school-portal-api/pkg/middleware/requestid"
)

// @title School Portal API
// @version 1.0.0
// @description Administration portal for staff, classes, students and results
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classSubjectRepo := repository.NewClassSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	termRepo := repository.NewTermRepository(db)
	resultStatusRepo := repository.NewResultStatusRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheEnabled := cfg.Cache.Enabled && redisClient != nil
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ListTTL, logr, cacheEnabled)

	auditTrail := service.NewAuditTrail(userRepo, logr)
	auditTrail.Start(context.Background())
	defer auditTrail.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	staffSvc := service.NewStaffService(userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, userRepo, cacheSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, validate, logr)
	classSubjectSvc := service.NewClassSubjectService(classSubjectRepo, classRepo, subjectRepo, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	resultStatusSvc := service.NewResultStatusService(resultStatusRepo, classRepo, termRepo, auditTrail, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(studentRepo, classRepo, cfg.Exports.PDFTitle, cfg.Exports.MaxRows, logr)
	}

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Staff:        handler.NewStaffHandler(staffSvc),
		Class:        handler.NewClassHandler(classSvc),
		Subject:      handler.NewSubjectHandler(subjectSvc),
		ClassSubject: handler.NewClassSubjectHandler(classSubjectSvc),
		Student:      handler.NewStudentHandler(studentSvc),
		Result:       handler.NewResultStatusHandler(resultStatusSvc),
		Term:         handler.NewTermHandler(termSvc),
		Export:       handler.NewExportHandler(exportSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r, cfg.APIPrefix, handlers, authSvc, auditTrail)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
