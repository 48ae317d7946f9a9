package eventpublisher

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Sender delivers an envelope to one destination. It is the single point of network I/O of a Publish call.
// Timeouts are the Sender's responsibility.
type Sender interface {
	Send(ctx context.Context, envelope *Envelope) error
}

// SenderFactory hands out the Sender for a topic.
type SenderFactory interface {
	GetTopicSender(topic string) (Sender, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, envelope *Envelope) error

func (f SenderFunc) Send(ctx context.Context, envelope *Envelope) error {
	return f(ctx, envelope)
}

// CachingSenderFactory creates one Sender per topic on first use and reuses it afterward.
// It is safe for concurrent use.
type CachingSenderFactory struct {
	create  func(topic string) (Sender, error)
	senders map[string]Sender
	mu      sync.Mutex
}

// NewCachingSenderFactory creates a CachingSenderFactory around the given constructor.
func NewCachingSenderFactory(create func(topic string) (Sender, error)) *CachingSenderFactory {
	return &CachingSenderFactory{
		create:  create,
		senders: make(map[string]Sender),
	}
}

// GetTopicSender returns the cached Sender for topic, creating it if needed.
func (f *CachingSenderFactory) GetTopicSender(topic string) (Sender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sender, ok := f.senders[topic]; ok {
		return sender, nil
	}

	sender, err := f.create(topic)
	if err != nil {
		return nil, err
	}

	f.senders[topic] = sender

	return sender, nil
}

// Close closes every cached Sender that implements io.Closer and empties the cache.
func (f *CachingSenderFactory) Close() error {
	f.mu.Lock()
	senders := f.senders
	f.senders = make(map[string]Sender)
	f.mu.Unlock()

	var errs []error
	for _, sender := range senders {
		if closer, ok := sender.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
