package testdoubles

import (
	"context"
	"maps"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

// SentEnvelope is a snapshot of an envelope taken at the time it was sent.
type SentEnvelope struct {
	Topic       string
	MessageID   string
	EventType   string
	Headers     map[string]string
	PayloadJSON []byte
}

// SenderSpy is an eventpublisher.Sender that captures sent envelopes.
// It can be configured to fail, to panic, or to block until its context is cancelled.
type SenderSpy struct {
	topic          string
	sent           []SentEnvelope
	err            error
	panicWith      any
	blockUntilDone bool
	started        chan struct{}
	mu             sync.Mutex
}

// NewSenderSpy creates a SenderSpy that succeeds.
func NewSenderSpy() *SenderSpy {
	return &SenderSpy{started: make(chan struct{}, 1)}
}

// FailingWith makes Send return err.
func (s *SenderSpy) FailingWith(err error) *SenderSpy {
	s.err = err
	return s
}

// PanickingWith makes Send panic with value.
func (s *SenderSpy) PanickingWith(value any) *SenderSpy {
	s.panicWith = value
	return s
}

// BlockingUntilCancelled makes Send block until its context is done and return the context error.
func (s *SenderSpy) BlockingUntilCancelled() *SenderSpy {
	s.blockUntilDone = true
	return s
}

// Started is signaled when Send was entered.
func (s *SenderSpy) Started() <-chan struct{} {
	return s.started
}

// Send implements eventpublisher.Sender.
func (s *SenderSpy) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentEnvelope{
		Topic:       s.topic,
		MessageID:   envelope.MessageID,
		EventType:   envelope.EventType,
		Headers:     maps.Clone(envelope.Headers),
		PayloadJSON: append([]byte(nil), envelope.PayloadJSON...),
	})
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}

	if s.panicWith != nil {
		panic(s.panicWith)
	}

	if s.blockUntilDone {
		<-ctx.Done()
		return ctx.Err()
	}

	return s.err
}

// Sent returns a copy of all captured envelopes.
func (s *SenderSpy) Sent() []SentEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SentEnvelope(nil), s.sent...)
}

// SendCount returns the number of Send calls.
func (s *SenderSpy) SendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sent)
}

// SenderFactorySpy is an eventpublisher.SenderFactory that hands out one SenderSpy for all topics
// and counts the lookups.
type SenderFactorySpy struct {
	sender *SenderSpy
	err    error
	topics []string
	mu     sync.Mutex
}

// NewSenderFactorySpy creates a SenderFactorySpy handing out sender.
func NewSenderFactorySpy(sender *SenderSpy) *SenderFactorySpy {
	return &SenderFactorySpy{sender: sender}
}

// FailingWith makes GetTopicSender return err.
func (f *SenderFactorySpy) FailingWith(err error) *SenderFactorySpy {
	f.err = err
	return f
}

// GetTopicSender implements eventpublisher.SenderFactory.
func (f *SenderFactorySpy) GetTopicSender(topic string) (eventpublisher.Sender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.topics = append(f.topics, topic)

	if f.err != nil {
		return nil, f.err
	}

	f.sender.mu.Lock()
	f.sender.topic = topic
	f.sender.mu.Unlock()

	return f.sender, nil
}

// Topics returns all topics that were looked up, in order.
func (f *SenderFactorySpy) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.topics...)
}

// CallCount returns the number of GetTopicSender calls.
func (f *SenderFactorySpy) CallCount() int {
	return len(f.Topics())
}

// MockSender is a testify mock for eventpublisher.Sender.
type MockSender struct {
	mock.Mock
}

// NewMockSender creates a MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, envelope *eventpublisher.Envelope) error {
	return m.Called(ctx, envelope).Error(0)
}

var _ eventpublisher.Sender = (*MockSender)(nil)
var _ eventpublisher.Sender = (*SenderSpy)(nil)
var _ eventpublisher.SenderFactory = (*SenderFactorySpy)(nil)
