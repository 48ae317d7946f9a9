package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the outbox sender.
type DBAdapter interface {
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
