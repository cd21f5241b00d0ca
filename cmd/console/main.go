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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/app"
	"github.com/backoffice-console/backoffice/internal/audit"
	"github.com/backoffice-console/backoffice/internal/categories"
	"github.com/backoffice-console/backoffice/internal/console"
	"github.com/backoffice-console/backoffice/internal/dashboard"
	"github.com/backoffice-console/backoffice/internal/observability"
	"github.com/backoffice-console/backoffice/internal/orders"
	"github.com/backoffice-console/backoffice/internal/platform/cache"
	"github.com/backoffice-console/backoffice/internal/platform/db"
	"github.com/backoffice-console/backoffice/internal/products"
	"github.com/backoffice-console/backoffice/internal/records"
	"github.com/backoffice-console/backoffice/internal/shared"
	"github.com/backoffice-console/backoffice/internal/view"
	"github.com/backoffice-console/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping console startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("console stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer closeWith(logger, "redis", redisClient.Close)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()
	apiClient := apiclient.NewClient(cfg.APIBaseURL, cfg.APITimeout,
		apiclient.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
		apiclient.WithObserver(metrics),
	)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardCache.ListenForInvalidation(ctx)
	dashboardService := dashboard.NewService(apiClient, dashboardCache, logger.With(slog.String("component", "dashboard")))

	hooks := []records.MutationHook{metrics.MutationHook(), dashboardService.MutationHook()}
	if cfg.AuditEnabled() {
		auditHook, closeAudit, err := openAudit(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeAudit()
		hooks = append(hooks, auditHook)
	}
	managerOpts := []records.Option{
		records.WithReporter(records.LogReporter{Logger: logger}),
		records.WithMutationHooks(hooks...),
	}

	sessionManager := shared.NewSessionManager(redisClient, "backoffice_session", cfg.SessionTTL, cfg.IsProduction())
	deps := console.Deps{
		Logger:    logger,
		Templates: templates,
		CSRF:      csrfManager,
		Locker:    shared.NewLocker(redisClient, cfg.MutationLockTTL),
		Sessions:  sessionManager,
	}
	pages := []console.Mountable{
		products.NewPage(products.PageOptions{
			API:            apiClient,
			Uploader:       apiClient,
			MaxUploadBytes: cfg.UploadMaxBytes,
			ManagerOptions: managerOpts,
		}, deps),
		categories.NewPage(apiClient, deps, managerOpts...),
		orders.NewPage(apiClient, deps, managerOpts...),
	}

	queueConn, err := jobs.RedisConnOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}
	inspector := asynq.NewInspector(queueConn)
	defer closeWith(logger, "queue inspector", inspector.Close)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, templates, csrfManager),
		Pages:            pages,
		Metrics:          metrics,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Health:           redisHealth(redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", apiClient.BaseURL()))
	return serve(ctx, server, logger)
}

// openAudit migrates the audit schema and returns the hook writing to it.
func openAudit(ctx context.Context, cfg *app.Config, logger *slog.Logger) (records.MutationHook, func(), error) {
	if err := audit.Migrate(logger, cfg.AuditPGDSN); err != nil {
		return nil, nil, fmt.Errorf("migrate audit trail: %w", err)
	}
	pool, err := db.New(ctx, cfg.AuditPGDSN, "backoffice-console")
	if err != nil {
		return nil, nil, err
	}
	service := audit.NewService(audit.NewPGRepository(pool), logger.With(slog.String("component", "audit")))
	logger.Info("audit trail enabled")
	return service.MutationHook(), pool.Close, nil
}

func redisHealth(client *redis.Client) func(*http.Request) error {
	return func(r *http.Request) error {
		return cache.Ping(r.Context(), client)
	}
}

// serve runs server until ctx is done, then allows ten seconds for in-flight requests.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func closeWith(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close "+name, slog.Any("error", err))
	}
}
