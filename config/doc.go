// Package config loads the application-level configuration of the eventpublisher command.
//
// Values come from an optional YAML, JSON or TOML file, overridden by EVENTPUBLISHER_* environment
// variables (nested keys joined by underscores, e.g. EVENTPUBLISHER_KAFKA_BROKERS), on top of defaults.
//
// It also contains the connection helpers for the PostgreSQL outbox (pgx.Pool, sql.DB, sqlx.DB)
// and the OpenTelemetry provider setup.
package config
