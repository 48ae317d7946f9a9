// Package adapters provide database adapter implementations for the PostgreSQL outbox sender.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx (pool or transaction), database/sql (DB or Tx), and sqlx. All adapters provide equivalent
// functionality through a common DBAdapter interface, so the outbox can be written inside the
// caller's own transaction whichever library the caller uses.
package adapters
