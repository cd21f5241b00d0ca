// Package cli implements consolectl, a headless driver for the console's record
// managers and dashboard.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/dashboard"
	"github.com/backoffice-console/backoffice/internal/platform/cache"
	"github.com/backoffice-console/backoffice/internal/records"
)

const defaultAPIBaseURL = "http://localhost:5000/api"

// API is the REST surface consolectl drives.
type API interface {
	records.API
}

// Options carries the process streams and an optional API factory for tests.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	NewAPI func(baseURL string, timeout time.Duration) API
}

type app struct {
	opts      Options
	apiURL    string
	timeout   time.Duration
	output    string
	redisAddr string
	logger    *slog.Logger
	redis     *redis.Client
}

// NewRootCommand builds the consolectl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "consolectl",
		Short:         "Manage products, categories and orders from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parseFormat(a.output); err != nil {
				return err
			}
			a.logger = slog.New(slog.NewTextHandler(a.opts.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.redis != nil {
				return a.redis.Close()
			}
			return nil
		},
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api-url", envOr("API_BASE_URL", defaultAPIBaseURL), "REST API base URL")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.StringVarP(&a.output, "output", "o", string(formatTable), "output format: table, json or yaml")
	flags.StringVar(&a.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis address; mutations bump the dashboard cache when set")

	root.AddCommand(
		a.listCommand(),
		a.deleteCommand(),
		a.createCommand(),
		a.dashboardCommand(),
		a.warmupCommand(),
		a.auditCommand(),
	)
	return root
}

func (a *app) api() API {
	if a.opts.NewAPI != nil {
		return a.opts.NewAPI(a.apiURL, a.timeout)
	}
	return apiclient.NewClient(a.apiURL, a.timeout)
}

// managerOptions logs failures and, with Redis configured, invalidates the
// dashboard cache after each mutation.
func (a *app) managerOptions(ctx context.Context) ([]records.Option, error) {
	opts := []records.Option{records.WithReporter(records.LogReporter{Logger: a.logger})}
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	if client != nil {
		dashCache := dashboard.NewCache(client, 0)
		opts = append(opts, records.WithMutationHooks(dashboard.NewService(nil, dashCache, a.logger).MutationHook()))
	}
	return opts, nil
}

func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redisAddr == "" {
		return nil, nil
	}
	if a.redis == nil {
		client, err := cache.New(ctx, a.redisAddr)
		if err != nil {
			return nil, err
		}
		a.redis = client
	}
	return a.redis, nil
}

func (a *app) format() format {
	f, _ := parseFormat(a.output)
	return f
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
