package eventpublisher

import (
	"errors"
	"maps"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidPayloadJSON = errors.New("payload json is not valid")

const (
	// ContentTypeJSON is the content type of envelopes built by the JSONEnvelopeFactory.
	ContentTypeJSON = "application/json"

	HeaderMessageID     = "message-id"
	HeaderCorrelationID = "correlation-id"
	HeaderCausationID   = "causation-id"
	HeaderEventType     = "event-type"
	HeaderContentType   = "content-type"
)

// Envelope is the unit that is actually sent to the broker: the serialized event plus transport headers.
//
// One Envelope is created per Publish call and handed by pointer to every interceptor and to the Sender,
// so header changes made by a before-hook are visible to later hooks and to the Sender.
//
// While its properties are exported, it should only be constructed with BuildEnvelope or an EnvelopeFactory.
type Envelope struct {
	MessageID     string
	CorrelationID string
	CausationID   string
	EventType     string
	OccurredAt    time.Time
	CreatedAt     time.Time
	ContentType   string
	Headers       map[string]string
	PayloadJSON   []byte
}

// BuildEnvelope is a factory method for Envelope.
//
// Returns ErrInvalidPayloadJSON if payloadJSON is not valid JSON.
func BuildEnvelope(
	messageID string,
	eventType string,
	occurredAt time.Time,
	createdAt time.Time,
	payloadJSON []byte,
) (*Envelope, error) {

	if !jsoniter.ConfigFastest.Valid(payloadJSON) {
		return nil, ErrInvalidPayloadJSON
	}

	return &Envelope{
		MessageID:     messageID,
		CorrelationID: messageID,
		EventType:     eventType,
		OccurredAt:    occurredAt,
		CreatedAt:     createdAt,
		ContentType:   ContentTypeJSON,
		Headers:       make(map[string]string),
		PayloadJSON:   payloadJSON,
	}, nil
}

// SetHeader adds or replaces a custom transport header.
func (e *Envelope) SetHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}

	e.Headers[key] = value
}

// Header returns the value of a custom transport header, or an empty string.
func (e *Envelope) Header(key string) string {
	return e.Headers[key]
}

// HeadersCopy returns a copy of the custom transport headers.
func (e *Envelope) HeadersCopy() map[string]string {
	if e.Headers == nil {
		return make(map[string]string)
	}

	return maps.Clone(e.Headers)
}

// TransportHeaders returns the custom headers merged with the well-known envelope properties.
// Transports use it to map the envelope onto their native header representation.
// Well-known properties win over custom headers with the same key.
func (e *Envelope) TransportHeaders() map[string]string {
	headers := make(map[string]string, len(e.Headers)+5)
	maps.Copy(headers, e.Headers)

	headers[HeaderMessageID] = e.MessageID
	headers[HeaderEventType] = e.EventType
	headers[HeaderContentType] = e.ContentType

	if e.CorrelationID != "" {
		headers[HeaderCorrelationID] = e.CorrelationID
	}

	if e.CausationID != "" {
		headers[HeaderCausationID] = e.CausationID
	}

	return headers
}
