package eventpublisher

import "context"

// contextKey is a private type to prevent context key collisions.
type contextKey string

const (
	// CorrelationIDKey is the context key used to carry the correlation ID into envelopes.
	CorrelationIDKey contextKey = "eventpublisher.correlation_id"

	// CausationIDKey is the context key used to carry the causation ID into envelopes.
	CausationIDKey contextKey = "eventpublisher.causation_id"
)

// WithCorrelationID returns a context that makes the JSONEnvelopeFactory stamp the given correlation ID
// onto every envelope built from it.
//
// Example usage:
//
//	ctx = eventpublisher.WithCorrelationID(ctx, incomingMessage.CorrelationID)
//	err := publisher.Publish(ctx, event)
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// WithCausationID returns a context that makes the JSONEnvelopeFactory stamp the given causation ID
// onto every envelope built from it. Typically, this is the message ID of the message being handled.
func WithCausationID(ctx context.Context, causationID string) context.Context {
	return context.WithValue(ctx, CausationIDKey, causationID)
}

// GetCorrelationID extracts the correlation ID from the context, or returns an empty string.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}

	return ""
}

// GetCausationID extracts the causation ID from the context, or returns an empty string.
func GetCausationID(ctx context.Context) string {
	if id, ok := ctx.Value(CausationIDKey).(string); ok {
		return id
	}

	return ""
}
