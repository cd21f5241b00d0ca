package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/app"
	"github.com/backoffice-console/backoffice/internal/dashboard"
	jobmetrics "github.com/backoffice-console/backoffice/internal/jobs"
	"github.com/backoffice-console/backoffice/internal/platform/cache"
	"github.com/backoffice-console/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	queueConn, err := jobs.RedisConnOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	apiClient := apiclient.NewClient(cfg.APIBaseURL, cfg.APITimeout,
		apiclient.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
	)
	dashboardService := dashboard.NewService(apiClient,
		dashboard.NewCache(redisClient, cfg.DashboardCacheTTL),
		logger.With(slog.String("component", "dashboard")))
	warmup := jobs.NewDashboardWarmupJob(dashboardService, logger, jobmetrics.NewMetrics(registry))

	scheduled, err := jobs.NewDashboardWarmupTask("schedule")
	if err != nil {
		return err
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		Redis:       queueConn,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    []jobs.TaskHandler{{Type: jobs.TaskDashboardWarmup, Handler: warmup.Handle}},
		Cron: []jobs.CronRegistration{{
			Spec:    cfg.WarmupSchedule,
			Task:    scheduled,
			Options: []asynq.Option{asynq.MaxRetry(1), asynq.Timeout(time.Minute)},
		}},
	})
	if err != nil {
		return err
	}

	inspector := asynq.NewInspector(queueConn)
	defer func() { _ = inspector.Close() }()
	ops := opsServer(cfg.WorkerAddr, registry, jobs.NewHandler(inspector, logger))
	go func() {
		logger.Info("starting ops server", slog.String("addr", cfg.WorkerAddr))
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = ops.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("run worker: %w", err)
	}
	return nil
}

// opsServer exposes worker metrics and queue health.
func opsServer(addr string, registry *prometheus.Registry, jobsHandler *jobs.Handler) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Route("/jobs", jobsHandler.MountRoutes)
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}
