package adapters

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGXExecutor is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PGXExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PGXAdapter implements DBAdapter for pgx.
type PGXAdapter struct {
	db PGXExecutor
}

// NewPGXAdapter creates a new PGX adapter.
func NewPGXAdapter(db PGXExecutor) *PGXAdapter {
	return &PGXAdapter{db: db}
}

// Exec executes a statement and returns the wrapped command tag.
func (p *PGXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	tag, err := p.db.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

// pgxResult wraps pgconn.CommandTag to implement the DBResult interface.
type pgxResult struct {
	tag pgconn.CommandTag
}

func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
