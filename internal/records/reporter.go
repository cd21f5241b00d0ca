package records

import (
	"context"
	"log/slog"
)

// Operation names a Manager action for reporting.
type Operation string

const (
	OpLoad   Operation = "load"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Reporter is the single sink for failed operations.
type Reporter interface {
	Report(ctx context.Context, op Operation, resource string, err error)
}

// LogReporter reports failures through slog.
type LogReporter struct {
	Logger *slog.Logger
}

// Report logs the failure at error level.
func (r LogReporter) Report(ctx context.Context, op Operation, resource string, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "record operation failed",
		slog.String("op", string(op)),
		slog.String("resource", resource),
		slog.Any("error", err),
	)
}

// Mutation describes a completed create, update or delete attempt.
type Mutation struct {
	Resource string
	Op       Operation
	RecordID string
	Err      error
}

// MutationHook is notified after every mutation attempt, successful or not.
type MutationHook interface {
	AfterMutation(ctx context.Context, m Mutation)
}

// MutationHookFunc adapts a function to MutationHook.
type MutationHookFunc func(ctx context.Context, m Mutation)

// AfterMutation calls f.
func (f MutationHookFunc) AfterMutation(ctx context.Context, m Mutation) {
	f(ctx, m)
}
