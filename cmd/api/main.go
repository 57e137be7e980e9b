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
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-tracker-api/api/swagger"
	"github.com/noah-isme/academic-tracker-api/internal/handler"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/repository"
	"github.com/noah-isme/academic-tracker-api/internal/service"
	"github.com/noah-isme/academic-tracker-api/pkg/cache"
	"github.com/noah-isme/academic-tracker-api/pkg/config"
	"github.com/noah-isme/academic-tracker-api/pkg/database"
	"github.com/noah-isme/academic-tracker-api/pkg/jobs"
	"github.com/noah-isme/academic-tracker-api/pkg/logger"
	"github.com/noah-isme/academic-tracker-api/pkg/storage"
)

// @title Academic Tracker API
// @version 1.0.0
// @description Attendance, marks and goal tracking for students
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to wire application", zap.Error(err))
	}
	defer app.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server forced shutdown", zap.Error(err))
	}
}

type app struct {
	router  *gin.Engine
	queue   *jobs.Queue
	reports *service.ReportService
}

func (a *app) close() {
	if a.reports != nil {
		a.reports.StopCleanup()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceSubjectRepository(db)
	marksRepo := repository.NewMarksSubjectRepository(db)
	goalRepo := repository.NewGoalSettingsRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	reportRepo := repository.NewReportRepository(db)

	loc := cfg.Tracker.Location()
	defaults := models.GoalSettings{
		AttendanceGoalPercent: cfg.Tracker.DefaultAttendanceGoal,
		GPAGoal:               cfg.Tracker.DefaultGPAGoal,
		MarksPerCredit:        cfg.Tracker.MarksPerCredit,
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	goalSvc := service.NewGoalSettingsService(goalRepo, defaults, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, goalSvc, cacheSvc, metrics, validate, logr)
	marksSvc := service.NewMarksService(marksRepo, goalSvc, cacheSvc, metrics, validate, logr)
	analyticsSvc := service.NewAnalyticsService(historyRepo, attendanceRepo, marksRepo, goalSvc, cacheSvc, metrics, service.AnalyticsConfig{
		Location:    loc,
		TrendWindow: cfg.Tracker.TrendWindow,
		CacheTTL:    cfg.Cache.TTL,
	}, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Attendance: attendanceRepo,
		Marks:      marksRepo,
		History:    historyRepo,
		Goals:      goalSvc,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Cache.TTL, Location: loc},
	})

	handlers := routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		marks:      handler.NewMarksHandler(marksSvc),
		goals:      handler.NewGoalsHandler(goalSvc),
		analytics:  handler.NewAnalyticsHandler(analyticsSvc),
		dashboard:  handler.NewDashboardHandler(dashboardSvc),
		metrics:    handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	}

	out := &app{}
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("init report storage: %w", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(service.ExportSources{
			Attendance: attendanceRepo,
			Marks:      marksRepo,
			Analytics:  analyticsSvc,
			Goals:      goalSvc,
		}, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil)
		worker := service.NewReportWorker(reportRepo, exporter, metrics, cfg.Reports.WorkerRetries, logr)

		var backend jobs.Backend
		if cfg.Reports.QueueBackend == config.QueueBackendRedis && redisClient != nil {
			backend = jobs.NewRedisBackend(redisClient, cfg.Reports.QueueKey)
		}
		out.queue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Backend:    backend,
			Logger:     logr,
		})
		out.queue.Start(ctx)

		out.reports = service.NewReportService(service.ReportServiceParams{
			Repo:      reportRepo,
			Queue:     out.queue,
			Files:     exporter,
			Tokens:    userRepo,
			Metrics:   metrics,
			Validator: validate,
			Logger:    logr,
			Config: service.ReportServiceConfig{
				ResultTTL:       cfg.Reports.SignedURLTTL,
				CleanupSchedule: cfg.Reports.CleanupSchedule,
			},
		})
		if recovered := out.reports.RecoverPendingJobs(ctx); recovered > 0 {
			logr.Info("recovered queued report jobs", zap.Int("count", recovered))
		}
		if err := out.reports.StartCleanup(ctx); err != nil {
			return nil, fmt.Errorf("start report cleanup: %w", err)
		}
		handlers.reports = handler.NewReportHandler(out.reports, logr)
	}

	out.router = newRouter(cfg, handlers, authSvc, metrics, logr)
	return out, nil
}

// readinessChecks probes Redis only when it was reachable at start; without it
// the service runs with caching disabled and is still ready.
func readinessChecks(db handler.Pinger, redisClient *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return checks
}
