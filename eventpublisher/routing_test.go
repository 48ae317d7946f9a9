package eventpublisher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher" //nolint:revive
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/testutil/testdoubles"
)

func Test_DottedLowerCase(t *testing.T) {
	tests := []struct {
		eventType string
		expected  string
	}{
		{eventType: "OrderCreated", expected: "order.created"},
		{eventType: "HTTPRequestFailed", expected: "http.request.failed"},
		{eventType: "Order2Shipped", expected: "order2.shipped"},
		{eventType: "orderCreated", expected: "order.created"},
		{eventType: "Created", expected: "created"},
		{eventType: "", expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.eventType, func(t *testing.T) {
			assert.Equal(t, tc.expected, DottedLowerCase(tc.eventType))
		})
	}
}

func Test_TableRouter_Route(t *testing.T) {
	router := NewTableRouter(
		WithTopicRoute("OrderCreated", "orders.created"),
		WithQueueRoute("OrderCreated", "billing-orders"),
		WithDestinationPrefix("shop."),
	)

	tests := []struct {
		name      string
		eventType string
		kind      DestinationKind
		expected  string
	}{
		{name: "explicit_topic_route_is_used_verbatim", eventType: "OrderCreated", kind: DestinationTopic, expected: "orders.created"},
		{name: "explicit_queue_route_is_used_verbatim", eventType: "OrderCreated", kind: DestinationQueue, expected: "billing-orders"},
		{name: "convention_with_prefix_for_unrouted_topic", eventType: "OrderShipped", kind: DestinationTopic, expected: "shop.order.shipped"},
		{name: "convention_with_prefix_for_unrouted_queue", eventType: "OrderShipped", kind: DestinationQueue, expected: "shop.order.shipped"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			destination, err := router.Route(tc.eventType, tc.kind)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, destination)
		})
	}
}

func Test_TableRouter_Route_Failures(t *testing.T) {
	t.Run("empty_event_type", func(t *testing.T) {
		_, err := NewTableRouter().Route("", DestinationTopic)

		assert.ErrorIs(t, err, ErrEmptyEventType)
	})

	t.Run("no_route_without_convention", func(t *testing.T) {
		router := NewTableRouter(WithNamingConvention(nil), WithTopicRoute("OrderCreated", "orders.created"))

		_, err := router.Route("OrderShipped", DestinationTopic)
		assert.ErrorIs(t, err, ErrNoRouteFound)

		_, err = router.Route("OrderCreated", DestinationQueue)
		assert.ErrorIs(t, err, ErrNoRouteFound)
	})

	t.Run("custom_convention", func(t *testing.T) {
		router := NewTableRouter(WithNamingConvention(func(eventType string) string { return "events-" + eventType }))

		destination, err := router.Route("OrderShipped", DestinationTopic)
		require.NoError(t, err)
		assert.Equal(t, "events-OrderShipped", destination)
	})
}

func Test_DestinationKind_String(t *testing.T) {
	assert.Equal(t, "topic", DestinationTopic.String())
	assert.Equal(t, "queue", DestinationQueue.String())
}

func Test_TypeRegistry(t *testing.T) {
	t.Run("registered_types", func(t *testing.T) {
		registry, err := NewTypeRegistry("OrderShipped", "OrderCreated")

		require.NoError(t, err)
		assert.True(t, registry.IsRegistered("OrderCreated"))
		assert.False(t, registry.IsRegistered("OrderRefunded"))
		assert.False(t, registry.IsRegistered(""))
		assert.Equal(t, []string{"OrderCreated", "OrderShipped"}, registry.EventTypes())
	})

	t.Run("empty_type_is_rejected", func(t *testing.T) {
		_, err := NewTypeRegistry("OrderCreated", "")

		assert.ErrorIs(t, err, ErrEmptyEventType)
	})

	t.Run("from_events", func(t *testing.T) {
		registry, err := NewTypeRegistryFromEvents(testdoubles.FixtureOrderCreated("order-1"))

		require.NoError(t, err)
		assert.Equal(t, []string{"OrderCreated"}, registry.EventTypes())
	})

	t.Run("from_nil_event", func(t *testing.T) {
		_, err := NewTypeRegistryFromEvents(nil)

		assert.ErrorIs(t, err, ErrNilEvent)
	})
}

func Test_KnownTypeGuard_Check(t *testing.T) {
	registry, err := NewTypeRegistry("OrderCreated")
	require.NoError(t, err)

	guard := NewKnownTypeGuard(registry)

	assert.NoError(t, guard.Check("OrderCreated"))

	err = guard.Check("OrderRefunded")
	require.ErrorIs(t, err, ErrUnknownMessageType)
	assert.Contains(t, err.Error(), "OrderRefunded")

	assert.ErrorIs(t, NewKnownTypeGuard(nil).Check("OrderCreated"), ErrUnknownMessageType)
}
