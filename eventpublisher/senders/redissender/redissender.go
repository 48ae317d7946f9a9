// Package redissender implements eventpublisher.Sender for Redis Streams.
//
// Each topic is one stream. Every envelope becomes one stream entry with its headers and payload as fields.
package redissender

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const (
	FieldMessageID     = "message_id"
	FieldEventType     = "event_type"
	FieldCorrelationID = "correlation_id"
	FieldCausationID   = "causation_id"
	FieldOccurredAt    = "occurred_at"
	FieldHeaders       = "headers"
	FieldPayload       = "payload"
)

var ErrEmptyStream = errors.New("redis stream name is empty")

// StreamAdder is the subset of redis.Cmdable used by the senders. *redis.Client satisfies it.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Option configures a SenderFactory.
type Option func(*SenderFactory)

// WithMaxLen caps every stream at approximately maxLen entries.
func WithMaxLen(maxLen int64) Option {
	return func(f *SenderFactory) {
		f.maxLen = maxLen
	}
}

// WithStreamPrefix prepends prefix to every stream name.
func WithStreamPrefix(prefix string) Option {
	return func(f *SenderFactory) {
		f.prefix = prefix
	}
}

// SenderFactory is an eventpublisher.SenderFactory for Redis streams.
type SenderFactory struct {
	client StreamAdder
	maxLen int64
	prefix string
}

// NewSenderFactory creates a SenderFactory appending through client.
func NewSenderFactory(client StreamAdder, options ...Option) (*SenderFactory, error) {
	if client == nil {
		return nil, eventpublisher.ErrNilCollaborator
	}

	f := &SenderFactory{client: client}
	for _, option := range options {
		option(f)
	}

	return f, nil
}

// GetTopicSender returns a Sender appending to the stream named after the topic.
func (f *SenderFactory) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	if topic == "" {
		return nil, ErrEmptyStream
	}

	return StreamSender{client: f.client, stream: f.prefix + topic, maxLen: f.maxLen}, nil
}

// StreamSender appends envelopes to one stream.
type StreamSender struct {
	client StreamAdder
	stream string
	maxLen int64
}

// Send appends the envelope as one stream entry.
func (s StreamSender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	values, err := ToValues(envelope)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}

	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: xadd to %s: %w", s.stream, err)
	}

	return nil
}

// ToValues maps an envelope onto stream entry fields. Custom headers are stored as one JSON object.
func ToValues(envelope *eventpublisher.Envelope) (map[string]any, error) {
	headersJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(envelope.Headers)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal headers: %w", err)
	}

	return map[string]any{
		FieldMessageID:     envelope.MessageID,
		FieldEventType:     envelope.EventType,
		FieldCorrelationID: envelope.CorrelationID,
		FieldCausationID:   envelope.CausationID,
		FieldOccurredAt:    envelope.OccurredAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		FieldHeaders:       string(headersJSON),
		FieldPayload:       string(envelope.PayloadJSON),
	}, nil
}
