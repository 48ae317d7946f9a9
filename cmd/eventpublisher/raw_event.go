package main

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrMissingEventType = errors.New("event type missing")
	ErrInvalidEventData = errors.New("event data is not valid json")
)

// RawEvent is an event given as type name plus JSON payload, as read from flags or a JSON lines file.
// It serializes to its payload.
type RawEvent struct {
	Type          string              `json:"type"`
	Data          jsoniter.RawMessage `json:"data"`
	OccurredAt    time.Time           `json:"occurred_at"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	CausationID   string              `json:"causation_id,omitempty"`
}

// NewRawEvent validates the fields and defaults OccurredAt to now.
func NewRawEvent(eventType string, data []byte, occurredAt time.Time) (RawEvent, error) {
	if eventType == "" {
		return RawEvent{}, ErrMissingEventType
	}

	if len(data) == 0 {
		data = []byte("{}")
	}

	if !jsoniter.Valid(data) {
		return RawEvent{}, ErrInvalidEventData
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return RawEvent{Type: eventType, Data: data, OccurredAt: occurredAt}, nil
}

func (e RawEvent) EventType() string {
	return e.Type
}

func (e RawEvent) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// MarshalJSON returns the payload, so the envelope carries the data and not this wrapper.
func (e RawEvent) MarshalJSON() ([]byte, error) {
	return e.Data, nil
}

// parseRawEventLine decodes one line of a JSON lines input file.
func parseRawEventLine(line []byte) (RawEvent, error) {
	decoded := struct {
		Type          string              `json:"type"`
		Data          jsoniter.RawMessage `json:"data"`
		OccurredAt    time.Time           `json:"occurred_at"`
		CorrelationID string              `json:"correlation_id"`
		CausationID   string              `json:"causation_id"`
	}{}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(line, &decoded); err != nil {
		return RawEvent{}, errors.Join(ErrInvalidEventData, err)
	}

	event, err := NewRawEvent(decoded.Type, decoded.Data, decoded.OccurredAt)
	if err != nil {
		return RawEvent{}, err
	}

	event.CorrelationID = decoded.CorrelationID
	event.CausationID = decoded.CausationID

	return event, nil
}
