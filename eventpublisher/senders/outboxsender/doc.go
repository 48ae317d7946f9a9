// Package outboxsender implements eventpublisher.Sender as a transactional outbox in PostgreSQL.
//
// Instead of talking to a broker, the sender inserts every envelope into an outbox table.
// When it is built from a transaction (pgx.Tx, *sql.Tx, *sqlx.Tx), the envelope is committed atomically
// with the caller's own changes, and a separate relay forwards the rows to the broker.
//
// The sender supports three database adapters:
//   - pgx (*pgxpool.Pool, *pgx.Conn, pgx.Tx)
//   - database/sql (*sql.DB, *sql.Tx), typically with the lib/pq driver
//   - sqlx (*sqlx.DB, *sqlx.Tx)
package outboxsender
