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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/youthhub-metrics-api/internal/aggregator"
	"github.com/noah-isme/youthhub-metrics-api/internal/handler"
	"github.com/noah-isme/youthhub-metrics-api/internal/repository"
	"github.com/noah-isme/youthhub-metrics-api/internal/service"
	"github.com/noah-isme/youthhub-metrics-api/pkg/cache"
	"github.com/noah-isme/youthhub-metrics-api/pkg/config"
	"github.com/noah-isme/youthhub-metrics-api/pkg/database"
	"github.com/noah-isme/youthhub-metrics-api/pkg/jobs"
	"github.com/noah-isme/youthhub-metrics-api/pkg/logger"
	"github.com/noah-isme/youthhub-metrics-api/pkg/storage"
)

// @title YouthHub Metrics API
// @version 1.0.0
// @description Reporting and analytics engine for the youth platform
// @BasePath /api/v1
// @schemes http https
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logr, db, redisClient)
	if err != nil {
		logr.Sugar().Fatalw("failed to wire application", "error", err)
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
}

type application struct {
	router   *gin.Engine
	queue    *jobs.Queue
	cron     *cron.Cron
	shutdown func()
}

func build(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	orgRepo := repository.NewOrganizationRepository(db)
	registry := aggregator.NewRegistry(aggregator.Sources{
		Applications:  repository.NewApplicationRepository(db),
		Enrollments:   repository.NewEnrollmentRepository(db),
		BusinessPlans: repository.NewBusinessPlanRepository(db),
		Profiles:      repository.NewProfileRepository(db),
		Messages:      repository.NewMessageRepository(db),
		Certificates:  repository.NewCertificateRepository(db),
	}, aggregator.Options{TopN: cfg.Reports.TopN})

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "metrics:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)

	scopes := service.NewScopeService(orgRepo)
	reports := service.NewReportService(scopes, registry, cacheSvc, metrics, logr, service.ReportServiceConfig{CacheTTL: cfg.Reports.CacheTTL})
	exports := service.NewExportService(nil, nil, nil)
	dashboards := service.NewDashboardService(service.DashboardServiceParams{
		Scopes:    scopes,
		Assembler: reports,
		Cache:     cacheSvc,
		Logger:    logr,
		Config:    service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	analytics := service.NewAnalyticsService(cacheSvc, metrics, logr)
	auth := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	app := &application{shutdown: func() {}}

	var exportJobs *service.ExportJobService
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		jobRepo := repository.NewExportJobRepository(db)

		worker := service.NewExportWorker(service.ExportWorkerParams{
			Repo:       jobRepo,
			Reports:    reports,
			Renderer:   exports,
			Storage:    files,
			Signer:     signer,
			Metrics:    metrics,
			Logger:     logr,
			APIPrefix:  cfg.APIPrefix,
			MaxRetries: cfg.Exports.WorkerRetries,
		})
		app.queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			OnGiveUp:   worker.GiveUp,
			Logger:     logr,
		})
		app.queue.Start(ctx)

		exportJobs = service.NewExportJobService(service.ExportJobServiceParams{
			Repo:      jobRepo,
			Scopes:    scopes,
			Queue:     app.queue,
			Storage:   files,
			Signer:    signer,
			Validator: validate,
			Metrics:   metrics,
			Logger:    logr,
			Config: service.ExportJobServiceConfig{
				APIPrefix:  cfg.APIPrefix,
				ResultTTL:  cfg.Exports.SignedURLTTL,
				MaxRetries: cfg.Exports.WorkerRetries,
			},
		})
		exportJobs.RecoverPendingJobs(ctx)

		app.cron = cron.New()
		if _, err := exportJobs.ScheduleCleanup(app.cron, cfg.Exports.CleanupSchedule); err != nil {
			return nil, fmt.Errorf("schedule export cleanup: %w", err)
		}
		app.cron.Start()

		app.shutdown = func() {
			<-app.cron.Stop().Done()
			app.queue.Stop()
		}
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	reportHandler := handler.NewReportHandler(reports, exports, nil)
	if exportJobs != nil {
		reportHandler = handler.NewReportHandler(reports, exports, exportJobs)
	}

	app.router = newRouter(cfg, logr, routeDeps{
		auth:       auth,
		metrics:    metrics,
		reports:    reportHandler,
		dashboards: handler.NewDashboardHandler(dashboards),
		analytics:  handler.NewAnalyticsHandler(analytics),
		health:     handler.NewMetricsHandler(metrics, checks),
	})
	return app, nil
}
