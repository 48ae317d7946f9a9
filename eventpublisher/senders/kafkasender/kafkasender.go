package kafkasender

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

var ErrEmptyTopic = errors.New("kafka topic is empty after sanitizing")

// Writer is the subset of *kafka.Writer used by the senders.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the connection settings for NewWriter.
type Config struct {
	Brokers                []string
	Username               string
	Password               string
	WriteTimeout           time.Duration
	AllowAutoTopicCreation bool
}

// NewWriter creates a synchronous kafka.Writer that waits for all in-sync replicas.
// SASL/PLAIN over TLS is enabled when Username and Password are set.
func NewWriter(cfg Config) *kafka.Writer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Murmur2Balancer{},
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		Async:                  false,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
	}

	if cfg.Username != "" && cfg.Password != "" {
		w.Transport = &kafka.Transport{
			DialTimeout: 20 * time.Second,
			IdleTimeout: 45 * time.Second,
			TLS:         &tls.Config{MinVersion: tls.VersionTLS12},
			SASL: plain.Mechanism{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		}
	}

	return w
}

// KeyFunc derives the Kafka message key, which determines the partition, from the envelope.
type KeyFunc func(envelope *eventpublisher.Envelope) []byte

// ByCorrelationID keys messages by their correlation ID, so that correlated events keep their order.
func ByCorrelationID(envelope *eventpublisher.Envelope) []byte {
	return []byte(envelope.CorrelationID)
}

// ByMessageID keys messages by their message ID, which spreads them evenly over partitions.
func ByMessageID(envelope *eventpublisher.Envelope) []byte {
	return []byte(envelope.MessageID)
}

// Option configures a SenderFactory.
type Option func(*SenderFactory)

// WithKeyFunc replaces the default ByMessageID key function.
func WithKeyFunc(keyFunc KeyFunc) Option {
	return func(f *SenderFactory) {
		if keyFunc != nil {
			f.keyFunc = keyFunc
		}
	}
}

// SenderFactory is an eventpublisher.SenderFactory for Kafka topics.
type SenderFactory struct {
	writer  Writer
	keyFunc KeyFunc
}

// NewSenderFactory creates a SenderFactory writing through writer.
func NewSenderFactory(writer Writer, options ...Option) (*SenderFactory, error) {
	if writer == nil {
		return nil, eventpublisher.ErrNilCollaborator
	}

	f := &SenderFactory{writer: writer, keyFunc: ByMessageID}
	for _, option := range options {
		option(f)
	}

	return f, nil
}

// GetTopicSender returns a Sender for the sanitized topic.
func (f *SenderFactory) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	sanitized := sanitizeTopic(topic)
	if sanitized == "" {
		return nil, ErrEmptyTopic
	}

	return TopicSender{writer: f.writer, topic: sanitized, keyFunc: f.keyFunc}, nil
}

// Close flushes and closes the shared writer.
func (f *SenderFactory) Close() error {
	return f.writer.Close()
}

// TopicSender writes envelopes to one Kafka topic.
type TopicSender struct {
	writer  Writer
	topic   string
	keyFunc KeyFunc
}

// Topic returns the sanitized topic name.
func (s TopicSender) Topic() string {
	return s.topic
}

// Send writes the envelope as one Kafka message and blocks until the brokers acknowledged it.
func (s TopicSender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	if err := s.writer.WriteMessages(ctx, ToMessage(s.topic, s.keyFunc(envelope), envelope)); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", s.topic, err)
	}

	return nil
}

// ToMessage maps an envelope onto a Kafka message. Headers are sorted by key.
func ToMessage(topic string, key []byte, envelope *eventpublisher.Envelope) kafka.Message {
	transportHeaders := envelope.TransportHeaders()

	headers := make([]kafka.Header, 0, len(transportHeaders))
	for _, name := range slices.Sorted(maps.Keys(transportHeaders)) {
		headers = append(headers, kafka.Header{Key: name, Value: []byte(transportHeaders[name])})
	}

	return kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   envelope.PayloadJSON,
		Headers: headers,
		Time:    envelope.CreatedAt,
	}
}

// sanitizeTopic replaces characters that some managed Kafka offerings reject in topic names.
// Policy: '/' becomes '-', everything is lower-cased, surrounding whitespace is dropped.
func sanitizeTopic(topic string) string {
	topic = strings.TrimSpace(topic)

	var b strings.Builder
	b.Grow(len(topic))
	for _, r := range topic {
		switch r {
		case '/':
			b.WriteByte('-')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}
