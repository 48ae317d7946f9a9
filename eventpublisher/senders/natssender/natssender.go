// Package natssender implements eventpublisher.Sender for NATS core subjects.
package natssender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nats-io/nats.go"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

var ErrInvalidSubject = errors.New("invalid nats subject")

// Conn is the subset of *nats.Conn used by the senders.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Connect connects to the NATS server at url. An empty url falls back to nats.DefaultURL.
func Connect(url string, options ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, append([]nats.Option{nats.Name("eventpublisher")}, options...)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	return nc, nil
}

// Option configures a SenderFactory.
type Option func(*SenderFactory)

// WithSubjectPrefix prepends prefix and a dot to every subject.
func WithSubjectPrefix(prefix string) Option {
	return func(f *SenderFactory) {
		f.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// SenderFactory is an eventpublisher.SenderFactory for NATS subjects.
type SenderFactory struct {
	conn   Conn
	prefix string
}

// NewSenderFactory creates a SenderFactory publishing through conn.
func NewSenderFactory(conn Conn, options ...Option) (*SenderFactory, error) {
	if conn == nil {
		return nil, eventpublisher.ErrNilCollaborator
	}

	f := &SenderFactory{conn: conn}
	for _, option := range options {
		option(f)
	}

	return f, nil
}

// GetTopicSender maps the topic onto a subject. '/' separators become subject tokens.
func (f *SenderFactory) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	subject := strings.ReplaceAll(topic, "/", ".")
	if f.prefix != "" {
		subject = f.prefix + "." + subject
	}

	if err := validateSubject(subject); err != nil {
		return nil, err
	}

	return SubjectSender{conn: f.conn, subject: subject}, nil
}

// Close drains the connection, so buffered messages are delivered before it closes.
func (f *SenderFactory) Close() error {
	return f.conn.Drain()
}

// SubjectSender publishes envelopes to one subject.
type SubjectSender struct {
	conn    Conn
	subject string
}

// Subject returns the subject the sender publishes to.
func (s SubjectSender) Subject() string {
	return s.subject
}

// Send publishes the envelope and flushes, so a returned nil means the server received it.
func (s SubjectSender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	if err := s.conn.PublishMsg(ToMsg(s.subject, envelope)); err != nil {
		return fmt.Errorf("nats: publish to %s: %w", s.subject, err)
	}

	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats: flush after publish to %s: %w", s.subject, err)
	}

	return nil
}

// ToMsg maps an envelope onto a NATS message with headers.
func ToMsg(subject string, envelope *eventpublisher.Envelope) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = envelope.PayloadJSON

	for key, value := range envelope.TransportHeaders() {
		msg.Header.Set(key, value)
	}

	// JetStream deduplicates on this header.
	msg.Header.Set(nats.MsgIdHdr, envelope.MessageID)

	return msg
}

func validateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSubject)
	}

	for _, token := range strings.Split(subject, ".") {
		if token == "" {
			return fmt.Errorf("%w: empty token in %q", ErrInvalidSubject, subject)
		}
	}

	if strings.ContainsFunc(subject, unicode.IsSpace) {
		return fmt.Errorf("%w: whitespace in %q", ErrInvalidSubject, subject)
	}

	return nil
}
