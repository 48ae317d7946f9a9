package outboxsender

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/outboxsender/internal/adapters"
)

const (
	defaultTableName         = "outbox"
	dialectPostgres          = "postgres"
	castJsonb                = "?::jsonb"
	colMessageID             = "message_id"
	colTopic                 = "topic"
	colEventType             = "event_type"
	colCorrelationID         = "correlation_id"
	colCausationID           = "causation_id"
	colOccurredAt            = "occurred_at"
	colCreatedAt             = "created_at"
	colHeaders               = "headers"
	colPayload               = "payload"
	logMsgBuildInsertFailed  = "failed to build outbox insert"
	logMsgDBExecFailed       = "database execution failed during outbox insert"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgDuplicateMessage   = "outbox already contains message"
	logMsgSQLExecuted        = "executed sql for: outbox insert"
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrTopic             = "topic"
	logAttrMessageID         = "message_id"
	logAttrTable             = "table"
)

var (
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
	ErrEmptyTableName        = errors.New("empty outbox table name supplied")
	ErrEmptyTopic            = errors.New("empty topic supplied")
	ErrBuildingQueryFailed   = errors.New("building outbox query failed")
)

// Option defines a functional option for configuring SenderFactory.
type Option func(*SenderFactory) error

// WithTableName sets the outbox table name.
func WithTableName(tableName string) Option {
	return func(f *SenderFactory) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		f.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the SenderFactory.
//
// Debug level: the executed insert statement
// Warn level: duplicate message IDs that were ignored
// Error level: failing inserts.
func WithLogger(logger eventpublisher.Logger) Option {
	return func(f *SenderFactory) error {
		f.logger = logger
		return nil
	}
}

// SenderFactory is an eventpublisher.SenderFactory that writes to a PostgreSQL outbox table.
type SenderFactory struct {
	db        adapters.DBAdapter
	tableName string
	logger    eventpublisher.Logger
}

// NewSenderFactoryFromPGXPool creates a SenderFactory using a pgx Pool.
func NewSenderFactoryFromPGXPool(db *pgxpool.Pool, options ...Option) (*SenderFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSenderFactory(adapters.NewPGXAdapter(db), options...)
}

// NewSenderFactoryFromPGX creates a SenderFactory using any pgx executor, typically a pgx.Tx.
func NewSenderFactoryFromPGX(db adapters.PGXExecutor, options ...Option) (*SenderFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSenderFactory(adapters.NewPGXAdapter(db), options...)
}

// NewSenderFactoryFromSQLDB creates a SenderFactory using a sql.DB.
func NewSenderFactoryFromSQLDB(db *sql.DB, options ...Option) (*SenderFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSenderFactory(adapters.NewSQLAdapter(db), options...)
}

// NewSenderFactoryFromSQLTx creates a SenderFactory that writes inside the given sql.Tx.
func NewSenderFactoryFromSQLTx(tx *sql.Tx, options ...Option) (*SenderFactory, error) {
	if tx == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSenderFactory(adapters.NewSQLAdapter(tx), options...)
}

// NewSenderFactoryFromSQLX creates a SenderFactory using a sqlx.DB or sqlx.Tx.
func NewSenderFactoryFromSQLX(db sqlx.ExecerContext, options ...Option) (*SenderFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSenderFactory(adapters.NewSQLXAdapter(db), options...)
}

func newSenderFactory(db adapters.DBAdapter, options ...Option) (*SenderFactory, error) {
	f := &SenderFactory{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// GetTopicSender returns a Sender that records the topic in every outbox row.
func (f *SenderFactory) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	return OutboxSender{factory: f, topic: topic}, nil
}

// EnsureTable creates the outbox table if it does not exist.
func (f *SenderFactory) EnsureTable(ctx context.Context) error {
	_, err := f.db.Exec(ctx, CreateTableSQL(f.tableName))

	return err
}

// CreateTableSQL returns the DDL for an outbox table.
func CreateTableSQL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	%s uuid PRIMARY KEY,
	%s text NOT NULL,
	%s text NOT NULL,
	%s text NOT NULL,
	%s text NOT NULL DEFAULT '',
	%s timestamp with time zone NOT NULL,
	%s timestamp with time zone NOT NULL,
	%s jsonb NOT NULL,
	%s jsonb NOT NULL,
	published_at timestamp with time zone
)`,
		tableName,
		colMessageID, colTopic, colEventType, colCorrelationID, colCausationID,
		colOccurredAt, colCreatedAt, colHeaders, colPayload,
	)
}

// OutboxSender inserts envelopes for one topic into the outbox table.
type OutboxSender struct {
	factory *SenderFactory
	topic   string
}

// Send inserts the envelope. A row with the same message ID is left untouched, which makes Send idempotent.
func (s OutboxSender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	f := s.factory

	sqlQuery, err := f.buildInsertQuery(s.topic, envelope)
	if err != nil {
		if f.logger != nil {
			f.logger.Error(logMsgBuildInsertFailed, logAttrError, err.Error(), logAttrTopic, s.topic)
		}

		return err
	}

	result, err := f.db.Exec(ctx, sqlQuery)
	if err != nil {
		if f.logger != nil {
			f.logger.Error(logMsgDBExecFailed, logAttrError, err.Error(), logAttrQuery, sqlQuery)
		}

		return fmt.Errorf("outbox: insert into %s: %w", f.tableName, err)
	}

	if f.logger != nil {
		f.logger.Debug(logMsgSQLExecuted, logAttrQuery, sqlQuery)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		if f.logger != nil {
			f.logger.Error(logMsgRowsAffectedFailed, logAttrError, err.Error())
		}

		return err
	}

	if rowsAffected == 0 && f.logger != nil {
		f.logger.Warn(logMsgDuplicateMessage, logAttrTable, f.tableName, logAttrMessageID, envelope.MessageID)
	}

	return nil
}

func (f *SenderFactory) buildInsertQuery(topic string, envelope *eventpublisher.Envelope) (string, error) {
	// ConfigCompatibleWithStandardLibrary sorts map keys, so equal headers always render equally.
	headersJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(envelope.TransportHeaders())
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(f.tableName).
		Rows(goqu.Record{
			colMessageID:     envelope.MessageID,
			colTopic:         topic,
			colEventType:     envelope.EventType,
			colCorrelationID: envelope.CorrelationID,
			colCausationID:   envelope.CausationID,
			colOccurredAt:    envelope.OccurredAt,
			colCreatedAt:     envelope.CreatedAt,
			colHeaders:       goqu.L(castJsonb, string(headersJSON)),
			colPayload:       goqu.L(castJsonb, string(envelope.PayloadJSON)),
		}).
		OnConflict(goqu.DoNothing())

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}
