package eventpublisher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// EnvelopeFactory turns a typed event into a transport envelope.
// It must be deterministic for a given event, apart from generated IDs and timestamps.
type EnvelopeFactory interface {
	Create(ctx context.Context, event Event) (*Envelope, error)
}

// JSONEnvelopeFactory serializes events to JSON and stamps message, correlation and causation IDs.
type JSONEnvelopeFactory struct {
	newMessageID func() (uuid.UUID, error)
	now          func() time.Time
}

// JSONEnvelopeFactoryOption configures a JSONEnvelopeFactory.
type JSONEnvelopeFactoryOption func(*JSONEnvelopeFactory)

// WithClock replaces time.Now as the source of envelope creation timestamps.
func WithClock(now func() time.Time) JSONEnvelopeFactoryOption {
	return func(f *JSONEnvelopeFactory) {
		f.now = now
	}
}

// WithMessageIDGenerator replaces the default UUIDv7 message ID generator.
func WithMessageIDGenerator(generate func() (uuid.UUID, error)) JSONEnvelopeFactoryOption {
	return func(f *JSONEnvelopeFactory) {
		f.newMessageID = generate
	}
}

// NewJSONEnvelopeFactory creates a JSONEnvelopeFactory using UUIDv7 message IDs and the UTC wall clock.
func NewJSONEnvelopeFactory(options ...JSONEnvelopeFactoryOption) JSONEnvelopeFactory {
	f := JSONEnvelopeFactory{
		newMessageID: uuid.NewV7,
		now:          func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(&f)
	}

	return f
}

// Create serializes the event and builds its Envelope.
//
// The correlation ID is taken from the context (see WithCorrelationID) and defaults to the new message ID,
// the causation ID is taken from the context (see WithCausationID) if present.
func (f JSONEnvelopeFactory) Create(ctx context.Context, event Event) (*Envelope, error) {
	if event == nil {
		return nil, ErrNilEvent
	}

	payloadJSON, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return nil, errors.Join(ErrBuildingEnvelopeFailed, err)
	}

	messageID, err := f.newMessageID()
	if err != nil {
		return nil, errors.Join(ErrBuildingEnvelopeFailed, err)
	}

	envelope, err := BuildEnvelope(messageID.String(), event.EventType(), event.HasOccurredAt(), f.now(), payloadJSON)
	if err != nil {
		return nil, errors.Join(ErrBuildingEnvelopeFailed, err)
	}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		envelope.CorrelationID = correlationID
	}

	envelope.CausationID = GetCausationID(ctx)

	return envelope, nil
}
