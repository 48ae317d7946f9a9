package redissender

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/testutil/testdoubles"
)

type fakeStreamAdder struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStreamAdder) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)

	cmd := redis.NewStringCmd(ctx, "xadd", a.Stream)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}

	cmd.SetVal("1715941800000-0")

	return cmd
}

func testEnvelope(t *testing.T) *eventpublisher.Envelope {
	t.Helper()

	envelope, err := eventpublisher.NewJSONEnvelopeFactory().Create(
		eventpublisher.WithCausationID(context.Background(), "cause-1"),
		testdoubles.FixtureOrderCreated("order-1"),
	)
	require.NoError(t, err)
	envelope.SetHeader("tenant-id", "acme")

	return envelope
}

func Test_StreamSender_Send(t *testing.T) {
	// arrange
	client := &fakeStreamAdder{}
	factory, err := NewSenderFactory(client, WithStreamPrefix("events:"), WithMaxLen(10_000))
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)

	envelope := testEnvelope(t)

	// act
	err = sender.Send(context.Background(), envelope)

	// assert
	require.NoError(t, err)
	require.Len(t, client.calls, 1)

	args := client.calls[0]
	assert.Equal(t, "events:orders.created", args.Stream)
	assert.Equal(t, int64(10_000), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, envelope.MessageID, values[FieldMessageID])
	assert.Equal(t, "OrderCreated", values[FieldEventType])
	assert.Equal(t, "cause-1", values[FieldCausationID])
	assert.Equal(t, "2024-05-17T10:30:00.000000Z", values[FieldOccurredAt])
	assert.JSONEq(t, `{"tenant-id":"acme"}`, values[FieldHeaders].(string))
	assert.Equal(t, string(envelope.PayloadJSON), values[FieldPayload])
}

func Test_StreamSender_Send_Without_MaxLen(t *testing.T) {
	client := &fakeStreamAdder{}
	factory, err := NewSenderFactory(client)
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), testEnvelope(t)))

	assert.Zero(t, client.calls[0].MaxLen)
	assert.False(t, client.calls[0].Approx)
}

func Test_StreamSender_Send_When_XAddFails(t *testing.T) {
	xaddErr := errors.New("OOM command not allowed")
	factory, err := NewSenderFactory(&fakeStreamAdder{err: xaddErr})
	require.NoError(t, err)

	sender, err := factory.GetTopicSender("orders.created")
	require.NoError(t, err)

	assert.ErrorIs(t, sender.Send(context.Background(), testEnvelope(t)), xaddErr)
}

func Test_SenderFactory_Failures(t *testing.T) {
	_, err := NewSenderFactory(nil)
	assert.ErrorIs(t, err, eventpublisher.ErrNilCollaborator)

	factory, err := NewSenderFactory(&fakeStreamAdder{})
	require.NoError(t, err)

	_, err = factory.GetTopicSender("")
	assert.ErrorIs(t, err, ErrEmptyStream)
}
