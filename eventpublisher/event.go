package eventpublisher

import (
	"time"
)

// Event represents a domain event that can be published.
//
// Implementations must be serializable by the configured EnvelopeFactory, for the default
// JSONEnvelopeFactory this means JSON-marshalable.
type Event interface {
	// EventType returns the string identifier for this event type.
	EventType() string

	// HasOccurredAt returns when this event occurred.
	HasOccurredAt() time.Time
}
