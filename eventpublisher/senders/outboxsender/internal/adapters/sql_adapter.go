package adapters

import (
	"context"
	"database/sql"
)

// SQLExecutor is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLAdapter implements DBAdapter for database/sql.
type SQLAdapter struct {
	db SQLExecutor
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db SQLExecutor) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return result, nil
}
