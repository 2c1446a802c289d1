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

	_ "github.com/noah-isme/csit-timetable-api/api/swagger"
	"github.com/noah-isme/csit-timetable-api/internal/handler"
	"github.com/noah-isme/csit-timetable-api/internal/ingest"
	"github.com/noah-isme/csit-timetable-api/internal/middleware"
	"github.com/noah-isme/csit-timetable-api/internal/models"
	"github.com/noah-isme/csit-timetable-api/internal/repository"
	"github.com/noah-isme/csit-timetable-api/internal/service"
	"github.com/noah-isme/csit-timetable-api/pkg/cache"
	"github.com/noah-isme/csit-timetable-api/pkg/config"
	"github.com/noah-isme/csit-timetable-api/pkg/database"
	"github.com/noah-isme/csit-timetable-api/pkg/jobs"
	"github.com/noah-isme/csit-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/csit-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/csit-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/csit-timetable-api/pkg/storage"
)

// @title CSIT Timetable API
// @version 1.0.0
// @description Constraint-based timetable generation service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "csit-timetable-api",
	})

	loader := ingest.NewLoader(cfg.Dataset, logr)
	timetableSvc := service.NewTimetableService(loader, timetableRepo, cacheRepo, metricsSvc, validate, logr, service.TimetableConfig{
		MaxIterations: cfg.Solver.MaxIterations,
		MaxAttempts:   cfg.Solver.MaxAttempts,
		SolveTimeout:  cfg.Solver.SolveTimeout,
		Seed:          cfg.Solver.Seed,
		MatchStrategy: cfg.Solver.MatchStrategy,
		CacheTTL:      cfg.Cache.SummaryTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exportHandler *handler.ExportHandler
	if cfg.Export.Enabled {
		files, err := storage.NewLocalStorage(cfg.Export.Directory)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Export.SignSecret, cfg.Export.SignTTL)
		exportSvc := service.NewExportService(timetableSvc, files, signer, service.ExportRenderConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Export.ResultTTL,
		}, logr)

		worker := service.NewExportWorker(exportRepo, exportSvc, cfg.Export.MaxRetries, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Export.Workers,
			MaxRetries: cfg.Export.MaxRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		exportJobSvc := service.NewExportJobService(exportRepo, timetableRepo, queue, exportSvc, validate, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Export.ResultTTL,
			CleanupInterval: cfg.Export.CleanupInterval,
			MaxRetries:      cfg.Export.MaxRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
		exportHandler = handler.NewExportHandler(exportJobSvc)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.POST("/timetables/generate",
		middleware.RBAC(models.RoleAdmin, models.RoleScheduler),
		timetableHandler.Generate)
	authed.GET("/timetables/runs", timetableHandler.ListRuns)
	authed.GET("/timetables/runs/:id/summary", timetableHandler.Summary)
	authed.GET("/timetables/runs/:id/entries", timetableHandler.Entries)
	authed.GET("/timetables/runs/:id/export/csv", timetableHandler.ExportCSV)
	authed.GET("/timetables/runs/:id/export/pdf", timetableHandler.ExportPDF)

	if exportHandler != nil {
		authed.POST("/exports",
			middleware.RBAC(models.RoleAdmin, models.RoleScheduler),
			exportHandler.Create)
		authed.GET("/exports/:id", exportHandler.Status)
		// Download is token-authenticated, not JWT-authenticated.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
