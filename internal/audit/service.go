// Package audit records console mutation attempts in Postgres.
package audit

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/backoffice-console/backoffice/internal/platform/db"
	"github.com/backoffice-console/backoffice/internal/records"
	"github.com/backoffice-console/backoffice/internal/shared"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	writeTimeout = 2 * time.Second
	maxRecent    = 500
)

// Entry is one row of console_audit.
type Entry struct {
	At       time.Time `json:"at" yaml:"at"`
	Operator string    `json:"operator" yaml:"operator"`
	Resource string    `json:"resource" yaml:"resource"`
	Action   string    `json:"action" yaml:"action"`
	RecordID string    `json:"recordId,omitempty" yaml:"recordId,omitempty"`
	Outcome  string    `json:"outcome" yaml:"outcome"`
	Error    string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Repository persists and lists entries.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Recent(ctx context.Context, resource string, limit int) ([]Entry, error)
}

// Service writes mutation attempts and reads them back.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds an audit service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Migrate creates or upgrades the console_audit table.
func Migrate(logger *slog.Logger, dsn string) error {
	return db.Migrate(logger, dsn, migrations, "migrations")
}

// Record stores one mutation attempt.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Resource == "" || e.Action == "" {
		return errors.New("audit: entry requires resource and action")
	}
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	if e.Operator == "" {
		e.Operator = "anonymous"
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	return s.repo.Insert(ctx, e)
}

// Recent lists the newest entries, optionally for one resource.
func (s *Service) Recent(ctx context.Context, resource string, limit int) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	entries, err := s.repo.Recent(ctx, resource, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	return entries, nil
}

// MutationHook records every create, update and delete attempt. Write failures are
// logged and never affect the mutation itself.
func (s *Service) MutationHook() records.MutationHook {
	return records.MutationHookFunc(func(ctx context.Context, m records.Mutation) {
		entry := Entry{
			Operator: shared.OperatorFromContext(ctx),
			Resource: m.Resource,
			Action:   string(m.Op),
			RecordID: m.RecordID,
			Outcome:  OutcomeSuccess,
		}
		if m.Err != nil {
			entry.Outcome = OutcomeFailure
			entry.Error = m.Err.Error()
		}
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := s.Record(writeCtx, entry); err != nil {
			s.logger.ErrorContext(ctx, "audit write failed",
				slog.String("resource", m.Resource),
				slog.String("action", string(m.Op)),
				slog.Any("error", err),
			)
		}
	})
}
