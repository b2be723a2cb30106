package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-prep-api/api/swagger"
	"github.com/noah-isme/exam-prep-api/internal/handler"
	"github.com/noah-isme/exam-prep-api/internal/middleware"
	"github.com/noah-isme/exam-prep-api/internal/repository"
	"github.com/noah-isme/exam-prep-api/internal/service"
	"github.com/noah-isme/exam-prep-api/pkg/cache"
	"github.com/noah-isme/exam-prep-api/pkg/config"
	"github.com/noah-isme/exam-prep-api/pkg/database"
	"github.com/noah-isme/exam-prep-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-prep-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-prep-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-prep-api/pkg/storage"
)

// @title Exam Prep API
// @version 1.0.0
// @description Personal exam preparation tracker: study log, fixed-interval review chains, active pool and rotation queue.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	studyLogRepo := repository.NewStudyLogRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	rotationRepo := repository.NewRotationRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "exam-prep-api",
	})
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	topicSvc := service.NewTopicService(topicRepo, subjectRepo, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, studyLogRepo, validate, logr)
	studyLogSvc := service.NewStudyLogService(studyLogRepo, topicRepo, reviewSvc, validate, logr)
	poolSvc := service.NewPoolService(poolRepo, topicRepo, logr)
	rotationSvc := service.NewRotationService(rotationRepo, topicRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Reviews:  reviewRepo,
		Pool:     poolSvc,
		Rotation: rotationSvc,
		Study:    studyLogRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(studyLogRepo, reviewRepo, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backupSvc *service.BackupService
	if cfg.Backups.Enabled {
		store, err := storage.NewLocalStorage(cfg.Backups.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init backup storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Backups.SignedURLSecret, cfg.Backups.SignedURLTTL)
		backupSvc = service.NewBackupService(backupRepo, store, signer, service.BackupServiceConfig{
			Workers:    cfg.Backups.WorkerConcurrency,
			MaxRetries: cfg.Backups.WorkerRetries,
			ResultTTL:  cfg.Backups.SignedURLTTL,
			APIPrefix:  cfg.APIPrefix,
		}, logr)
		backupSvc.Start(ctx)
		defer backupSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	topicHandler := handler.NewTopicHandler(topicSvc)
	studyLogHandler := handler.NewStudyLogHandler(studyLogSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	poolHandler := handler.NewPoolHandler(poolSvc)
	rotationHandler := handler.NewRotationHandler(rotationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.Use(middleware.InvalidateDashboard(dashboardSvc))

	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	protected.GET("/subjects", subjectHandler.List)
	protected.POST("/subjects", subjectHandler.Create)
	protected.GET("/subjects/:id", subjectHandler.Get)
	protected.PUT("/subjects/:id", subjectHandler.Update)
	protected.DELETE("/subjects/:id", subjectHandler.Delete)

	protected.GET("/topics", topicHandler.List)
	protected.POST("/topics", topicHandler.Create)
	protected.GET("/topics/:id", topicHandler.Get)
	protected.PUT("/topics/:id", topicHandler.Update)
	protected.DELETE("/topics/:id", topicHandler.Delete)
	protected.GET("/topics/:id/study-totals", studyLogHandler.Totals)

	protected.GET("/study-log", studyLogHandler.List)
	protected.POST("/study-log", studyLogHandler.Create)
	protected.GET("/study-log/:id", studyLogHandler.Get)
	protected.DELETE("/study-log/:id", studyLogHandler.Delete)

	protected.GET("/reviews", reviewHandler.ListPending)
	protected.POST("/reviews", reviewHandler.Schedule)
	protected.POST("/reviews/:id/complete", reviewHandler.Complete)
	protected.DELETE("/reviews/:id", reviewHandler.Delete)

	protected.GET("/pool", poolHandler.List)
	protected.POST("/pool", poolHandler.Add)
	protected.PUT("/pool", poolHandler.ReplaceAll)
	protected.GET("/pool/count", poolHandler.Count)
	protected.GET("/pool/:topicId", poolHandler.Contains)
	protected.DELETE("/pool/:topicId", poolHandler.Remove)

	protected.GET("/rotation", rotationHandler.List)
	protected.POST("/rotation", rotationHandler.Append)
	protected.GET("/rotation/next", rotationHandler.NextSuggestion)
	protected.DELETE("/rotation/:topicId", rotationHandler.Remove)
	protected.POST("/rotation/:topicId/move-up", rotationHandler.MoveUp)
	protected.POST("/rotation/:topicId/move-down", rotationHandler.MoveDown)
	protected.PUT("/rotation/:topicId/timebox", rotationHandler.SetTimebox)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard", dashboardHandler.Overview)
		protected.GET("/dashboard/system", dashboardHandler.SystemMetrics)
	}

	protected.GET("/exports", exportHandler.Download)

	if backupSvc != nil {
		backupHandler := handler.NewBackupHandler(backupSvc)
		protected.POST("/backups", backupHandler.Create)
		protected.GET("/backups", backupHandler.List)
		protected.GET("/backups/:id", backupHandler.Get)
		// Downloads are authorised by the signed token in the URL itself.
		api.GET("/backups/download", backupHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
