package kafkasender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	mu       sync.Mutex
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEnvelope(t *testing.T) *eventpublisher.Envelope {
	t.Helper()

	createdAt := time.Date(2024, 5, 17, 10, 31, 0, 0, time.UTC)
	envelope, err := eventpublisher.BuildEnvelope("msg-1", "OrderCreated", createdAt.Add(-time.Minute), createdAt, []byte(`{"orderId":"order-1"}`))
	require.NoError(t, err)

	envelope.CorrelationID = "corr-1"
	envelope.SetHeader("tenant-id", "acme")

	return envelope
}

func Test_TopicSender_Send(t *testing.T) {
	// arrange
	writer := &fakeWriter{}
	factory, err := NewSenderFactory(writer)
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("Orders/Created")
	require.NoError(t, err)

	// act
	err = sender.Send(context.Background(), testEnvelope(t))

	// assert
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "orders-created", msg.Topic)
	assert.Equal(t, []byte("msg-1"), msg.Key)
	assert.JSONEq(t, `{"orderId":"order-1"}`, string(msg.Value))
	assert.Equal(t, time.Date(2024, 5, 17, 10, 31, 0, 0, time.UTC), msg.Time)
	assert.Equal(t, []kafka.Header{
		{Key: "content-type", Value: []byte("application/json")},
		{Key: "correlation-id", Value: []byte("corr-1")},
		{Key: "event-type", Value: []byte("OrderCreated")},
		{Key: "message-id", Value: []byte("msg-1")},
		{Key: "tenant-id", Value: []byte("acme")},
	}, msg.Headers)
}

func Test_TopicSender_Send_With_CorrelationKey(t *testing.T) {
	writer := &fakeWriter{}
	factory, err := NewSenderFactory(writer, WithKeyFunc(ByCorrelationID))
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), testEnvelope(t)))

	assert.Equal(t, []byte("corr-1"), writer.messages[0].Key)
}

func Test_TopicSender_Send_When_WriteFails(t *testing.T) {
	writeErr := errors.New("leader not available")
	factory, err := NewSenderFactory(&fakeWriter{err: writeErr})
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)

	err = sender.Send(context.Background(), testEnvelope(t))

	assert.ErrorIs(t, err, writeErr)
	assert.Contains(t, err.Error(), "orders.created")
}

func Test_SenderFactory_Failures(t *testing.T) {
	_, err := NewSenderFactory(nil)
	assert.ErrorIs(t, err, eventpublisher.ErrNilCollaborator)

	factory, err := NewSenderFactory(&fakeWriter{})
	require.NoError(t, err)

	_, err = factory.GetTopicSender("  ")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func Test_SenderFactory_Close_Closes_The_Writer(t *testing.T) {
	writer := &fakeWriter{}
	factory, err := NewSenderFactory(writer)
	require.NoError(t, err)

	require.NoError(t, factory.Close())
	assert.True(t, writer.closed)
}

func Test_SanitizeTopic(t *testing.T) {
	assert.Equal(t, "orders-created", sanitizeTopic("Orders/Created"))
	assert.Equal(t, "orders.created", sanitizeTopic(" orders.created "))
	assert.Equal(t, "", sanitizeTopic(""))
}

func Test_NewWriter(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		w := NewWriter(Config{Brokers: []string{"localhost:9092"}, WriteTimeout: 5 * time.Second})

		assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
		assert.Equal(t, 5*time.Second, w.WriteTimeout)
		assert.False(t, w.Async)
		assert.Nil(t, w.Transport)
		assert.Empty(t, w.Topic)
	})

	t.Run("sasl", func(t *testing.T) {
		w := NewWriter(Config{Brokers: []string{"broker:9096"}, Username: "user", Password: "secret"})

		transport, ok := w.Transport.(*kafka.Transport)
		require.True(t, ok)
		assert.Equal(t, plain.Mechanism{Username: "user", Password: "secret"}, transport.SASL)
		assert.NotNil(t, transport.TLS)
	})
}
