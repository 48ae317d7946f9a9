package amqpsender

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/testutil/testdoubles"
)

type publishCall struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
}

type fakeChannel struct {
	published  []publishCall
	declared   []string
	publishErr error
	declareErr error
	closed     bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}

	c.published = append(c.published, publishCall{exchange: exchange, key: key, mandatory: mandatory, msg: msg})

	return nil
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return c.declareErr
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func testEnvelope(t *testing.T) *eventpublisher.Envelope {
	t.Helper()

	envelope, err := eventpublisher.NewJSONEnvelopeFactory().Create(context.Background(), testdoubles.FixtureOrderCreated("order-1"))
	require.NoError(t, err)
	envelope.SetHeader("tenant-id", "acme")

	return envelope
}

func Test_RoutingKeySender_Send(t *testing.T) {
	// arrange
	channel := &fakeChannel{}
	factory, err := NewSenderFactory(channel, "domain-events", WithMandatory())
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)

	envelope := testEnvelope(t)

	// act
	err = sender.Send(context.Background(), envelope)

	// assert
	require.NoError(t, err)
	assert.Empty(t, channel.declared)
	require.Len(t, channel.published, 1)

	call := channel.published[0]
	assert.Equal(t, "domain-events", call.exchange)
	assert.Equal(t, "orders.created", call.key)
	assert.True(t, call.mandatory)
	assert.Equal(t, envelope.MessageID, call.msg.MessageId)
	assert.Equal(t, envelope.CorrelationID, call.msg.CorrelationId)
	assert.Equal(t, "OrderCreated", call.msg.Type)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, envelope.CreatedAt, call.msg.Timestamp)
	assert.Equal(t, envelope.PayloadJSON, call.msg.Body)
	assert.Equal(t, "acme", call.msg.Headers["tenant-id"])
	assert.Equal(t, envelope.MessageID, call.msg.Headers[eventpublisher.HeaderMessageID])
}

func Test_RoutingKeySender_Send_When_PublishFails(t *testing.T) {
	publishErr := errors.New("channel closed")
	factory, err := NewSenderFactory(&fakeChannel{publishErr: publishErr}, "domain-events", WithTransientDelivery())
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)

	assert.ErrorIs(t, sender.Send(context.Background(), testEnvelope(t)), publishErr)
}

func Test_NewSenderFactory_Failures(t *testing.T) {
	_, err := NewSenderFactory(nil, "domain-events")
	assert.ErrorIs(t, err, eventpublisher.ErrNilCollaborator)

	declareErr := errors.New("access refused")
	_, err = NewSenderFactory(&fakeChannel{declareErr: declareErr}, "domain-events", WithExchangeDeclaration())
	assert.ErrorIs(t, err, declareErr)
}

func Test_NewSenderFactory_WithExchangeDeclaration(t *testing.T) {
	channel := &fakeChannel{}

	_, err := NewSenderFactory(channel, "domain-events", WithExchangeDeclaration())

	require.NoError(t, err)
	assert.Equal(t, []string{"domain-events:topic"}, channel.declared)
}

func Test_SenderFactory_Default_Exchange(t *testing.T) {
	channel := &fakeChannel{}
	factory, err := NewSenderFactory(channel, "", WithExchangeDeclaration())
	require.NoError(t, err)
	assert.Empty(t, channel.declared)

	_, err = factory.GetTopicSender("")
	assert.ErrorIs(t, err, ErrEmptyRoutingKey)

	require.NoError(t, factory.Close())
	assert.True(t, channel.closed)
}

func Test_ToPublishing_Transient(t *testing.T) {
	assert.Equal(t, amqp.Transient, ToPublishing(testEnvelope(t), amqp.Transient).DeliveryMode)
}
