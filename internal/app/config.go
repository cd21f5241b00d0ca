package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL   string        `envconfig:"API_BASE_URL" default:"http://localhost:5000/api"`
	APITimeout   time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	APIRateLimit float64       `envconfig:"API_RATE_LIMIT" default:"0"`
	APIRateBurst int           `envconfig:"API_RATE_BURST" default:"10"`

	RedisAddr  string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"60s"`
	UploadMaxBytes    int64         `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`
	MutationLockTTL   time.Duration `envconfig:"MUTATION_LOCK_TTL" default:"30s"`

	AdminUser         string `envconfig:"ADMIN_USER"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	AuditPGDSN string `envconfig:"AUDIT_PG_DSN"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerAddr        string `envconfig:"WORKER_ADDR" default:":9091"`
	WarmupSchedule    string `envconfig:"DASHBOARD_WARMUP_SCHEDULE" default:"@every 10m"`
}

// LoadConfig reads configuration from environment variables, after loading a .env
// file when one exists in the working directory.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	// Values already present in the environment win over the file.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("app: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q must be absolute", c.APIBaseURL)
	}
	if (c.AdminUser == "") != (c.AdminPasswordHash == "") {
		return errors.New("admin user and password hash must be set together")
	}
	if c.APIRateLimit < 0 {
		return errors.New("api rate limit must not be negative")
	}
	return nil
}

// IsProduction returns true when the console runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AdminGateEnabled reports whether basic auth protects the console.
func (c *Config) AdminGateEnabled() bool {
	return c != nil && c.AdminUser != "" && c.AdminPasswordHash != ""
}

// AuditEnabled reports whether mutation attempts are written to Postgres.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.AuditPGDSN != ""
}
