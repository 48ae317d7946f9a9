package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx. It accepts *sqlx.DB as well as *sqlx.Tx.
type SQLXAdapter struct {
	db sqlx.ExecerContext
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db sqlx.ExecerContext) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Exec executes a statement using sqlx and returns its result.
func (s *SQLXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return result, nil
}
