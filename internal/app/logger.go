package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger on stdout.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

// newLogger writes JSON when LOG_FORMAT=json and logfmt-style text otherwise. Unknown
// levels fall back to info.
func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(out, opts)
	}
	return slog.New(h).With(slog.String("env", cfg.AppEnv))
}
