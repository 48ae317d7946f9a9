package eventpublisher

import (
	"slices"
)

// KnownMessageTypes is the registry of event types that may be published.
type KnownMessageTypes interface {
	IsRegistered(eventType string) bool
}

// TypeRegistry is an immutable KnownMessageTypes implementation.
// It is built once at startup and is safe for concurrent use.
type TypeRegistry struct {
	eventTypes map[string]struct{}
}

// NewTypeRegistry creates a TypeRegistry for the given event types.
// Returns ErrEmptyEventType if any of them is empty.
func NewTypeRegistry(eventTypes ...string) (TypeRegistry, error) {
	registry := TypeRegistry{eventTypes: make(map[string]struct{}, len(eventTypes))}

	for _, eventType := range eventTypes {
		if eventType == "" {
			return TypeRegistry{}, ErrEmptyEventType
		}

		registry.eventTypes[eventType] = struct{}{}
	}

	return registry, nil
}

// NewTypeRegistryFromEvents creates a TypeRegistry from example event values.
func NewTypeRegistryFromEvents(events ...Event) (TypeRegistry, error) {
	eventTypes := make([]string, 0, len(events))

	for _, event := range events {
		if event == nil {
			return TypeRegistry{}, ErrNilEvent
		}

		eventTypes = append(eventTypes, event.EventType())
	}

	return NewTypeRegistry(eventTypes...)
}

// IsRegistered reports whether the event type was registered.
func (r TypeRegistry) IsRegistered(eventType string) bool {
	_, ok := r.eventTypes[eventType]

	return ok
}

// EventTypes returns all registered event types in sorted order.
func (r TypeRegistry) EventTypes() []string {
	eventTypes := make([]string, 0, len(r.eventTypes))
	for eventType := range r.eventTypes {
		eventTypes = append(eventTypes, eventType)
	}

	slices.Sort(eventTypes)

	return eventTypes
}

// KnownTypeGuard rejects event types that are not publishable before any I/O happens.
type KnownTypeGuard struct {
	knownTypes KnownMessageTypes
}

// NewKnownTypeGuard creates a KnownTypeGuard backed by the given registry.
func NewKnownTypeGuard(knownTypes KnownMessageTypes) KnownTypeGuard {
	return KnownTypeGuard{knownTypes: knownTypes}
}

// Check returns an *UnknownMessageTypeError (matching ErrUnknownMessageType) if the event type
// was never registered.
func (g KnownTypeGuard) Check(eventType string) error {
	if g.knownTypes == nil || !g.knownTypes.IsRegistered(eventType) {
		return &UnknownMessageTypeError{EventType: eventType}
	}

	return nil
}
