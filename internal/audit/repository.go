package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores entries in console_audit.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository wraps a pgx pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends one entry.
func (r *PGRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO console_audit (occurred_at, operator, resource, action, record_id, outcome, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.At, e.Operator, e.Resource, e.Action, e.RecordID, e.Outcome, e.Error)
	return err
}

// Recent returns the newest entries first. An empty resource matches all.
func (r *PGRepository) Recent(ctx context.Context, resource string, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT occurred_at, operator, resource, action, record_id, outcome, error
		 FROM console_audit
		 WHERE ($1 = '' OR resource = $1)
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`,
		resource, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.At, &e.Operator, &e.Resource, &e.Action, &e.RecordID, &e.Outcome, &e.Error)
		return e, err
	})
}
