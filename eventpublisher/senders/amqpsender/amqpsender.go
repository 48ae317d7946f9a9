// Package amqpsender implements eventpublisher.Sender for AMQP 0-9-1 brokers such as RabbitMQ.
//
// Topics map onto routing keys of one topic exchange.
package amqpsender

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const appID = "eventpublisher"

var ErrEmptyRoutingKey = errors.New("amqp routing key is empty")

// Channel is the subset of *amqp.Channel used by the senders.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

// Dial connects to the broker and opens a channel.
// The caller owns both and closes the connection after the channel.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}

	return conn, ch, nil
}

// Option configures a SenderFactory.
type Option func(*SenderFactory)

// WithMandatory makes the broker return messages that cannot be routed to any queue.
func WithMandatory() Option {
	return func(f *SenderFactory) {
		f.mandatory = true
	}
}

// WithTransientDelivery publishes non-persistent messages.
func WithTransientDelivery() Option {
	return func(f *SenderFactory) {
		f.deliveryMode = amqp.Transient
	}
}

// WithExchangeDeclaration declares the exchange as a durable topic exchange when the factory is created.
// Without it the exchange must already exist.
func WithExchangeDeclaration() Option {
	return func(f *SenderFactory) {
		f.declareExchange = true
	}
}

// SenderFactory is an eventpublisher.SenderFactory publishing to one exchange.
type SenderFactory struct {
	channel         Channel
	exchange        string
	mandatory       bool
	declareExchange bool
	deliveryMode    uint8
}

// NewSenderFactory creates a SenderFactory.
func NewSenderFactory(channel Channel, exchange string, options ...Option) (*SenderFactory, error) {
	if channel == nil {
		return nil, eventpublisher.ErrNilCollaborator
	}

	f := &SenderFactory{
		channel:      channel,
		exchange:     exchange,
		deliveryMode: amqp.Persistent,
	}

	for _, option := range options {
		option(f)
	}

	if f.declareExchange && exchange != "" {
		if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("amqp declare exchange %s: %w", exchange, err)
		}
	}

	return f, nil
}

// GetTopicSender returns a Sender using topic as the routing key.
func (f *SenderFactory) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	if topic == "" {
		return nil, ErrEmptyRoutingKey
	}

	return RoutingKeySender{factory: f, routingKey: topic}, nil
}

// Close closes the channel.
func (f *SenderFactory) Close() error {
	return f.channel.Close()
}

// RoutingKeySender publishes envelopes with one routing key.
type RoutingKeySender struct {
	factory    *SenderFactory
	routingKey string
}

// Send publishes the envelope to the factory's exchange.
func (s RoutingKeySender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	err := s.factory.channel.PublishWithContext(
		ctx,
		s.factory.exchange,
		s.routingKey,
		s.factory.mandatory,
		false, // immediate
		ToPublishing(envelope, s.factory.deliveryMode),
	)
	if err != nil {
		return fmt.Errorf("amqp: publish to %s/%s: %w", s.factory.exchange, s.routingKey, err)
	}

	return nil
}

// ToPublishing maps an envelope onto AMQP message properties and headers.
func ToPublishing(envelope *eventpublisher.Envelope, deliveryMode uint8) amqp.Publishing {
	headers := amqp.Table{}
	for key, value := range envelope.TransportHeaders() {
		headers[key] = value
	}

	return amqp.Publishing{
		Headers:       headers,
		ContentType:   envelope.ContentType,
		DeliveryMode:  deliveryMode,
		CorrelationId: envelope.CorrelationID,
		MessageId:     envelope.MessageID,
		Timestamp:     envelope.CreatedAt,
		Type:          envelope.EventType,
		AppId:         appID,
		Body:          envelope.PayloadJSON,
	}
}
