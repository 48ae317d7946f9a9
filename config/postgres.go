package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	defaultMinConnections  = int32(1)
	defaultMaxConnIdleTime = time.Minute * 5
)

// PGXPoolConfig creates a pgxpool.Config for the outbox database.
func PGXPoolConfig(cfg OutboxConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec
	poolConfig.MinConns = min(defaultMinConnections, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	return poolConfig, nil
}

// OpenPGXPool connects a pgxpool.Pool to the outbox database and pings it.
func OpenPGXPool(ctx context.Context, cfg OutboxConfig) (*pgxpool.Pool, error) {
	poolConfig, err := PGXPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, pingErr
	}

	return pool, nil
}

// OpenSQLDB opens a *sql.DB with the lib/pq driver and pings it.
func OpenSQLDB(ctx context.Context, cfg OutboxConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	configurePool(db, cfg)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

// OpenSQLX opens a *sqlx.DB with the lib/pq driver and pings it.
func OpenSQLX(ctx context.Context, cfg OutboxConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	configurePool(db.DB, cfg)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, pingErr
	}

	return db, nil
}

func configurePool(db *sql.DB, cfg OutboxConfig) {
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(max(cfg.MaxConns/4, 1))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}
