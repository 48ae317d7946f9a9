package testdoubles

import (
	"time"
)

const (
	OrderCreatedEventType  = "OrderCreated"
	OrderShippedEventType  = "OrderShipped"
	OrderRefundedEventType = "OrderRefunded"
)

// OrderCreated is a fixture event.
type OrderCreated struct {
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	TotalCents int64     `json:"totalCents"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e OrderCreated) EventType() string { return OrderCreatedEventType }

func (e OrderCreated) HasOccurredAt() time.Time { return e.OccurredAt }

// OrderShipped is a fixture event.
type OrderShipped struct {
	OrderID    string    `json:"orderId"`
	Carrier    string    `json:"carrier"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e OrderShipped) EventType() string { return OrderShippedEventType }

func (e OrderShipped) HasOccurredAt() time.Time { return e.OccurredAt }

// OrderRefunded is a fixture event that is deliberately not registered in FixtureRegistryTypes.
type OrderRefunded struct {
	OrderID    string    `json:"orderId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e OrderRefunded) EventType() string { return OrderRefundedEventType }

func (e OrderRefunded) HasOccurredAt() time.Time { return e.OccurredAt }

// UnserializableEvent fails JSON serialization because of its channel field.
type UnserializableEvent struct {
	Broken chan int `json:"broken"`
}

func (e UnserializableEvent) EventType() string { return OrderCreatedEventType }

func (e UnserializableEvent) HasOccurredAt() time.Time { return time.Time{} }

// FixtureRegistryTypes are the event types registered by the publisher tests.
func FixtureRegistryTypes() []string {
	return []string{OrderCreatedEventType, OrderShippedEventType}
}

// FixtureOrderCreated builds an OrderCreated event at a fixed point in time.
func FixtureOrderCreated(orderID string) OrderCreated {
	return OrderCreated{
		OrderID:    orderID,
		CustomerID: "customer-1",
		TotalCents: 4999,
		OccurredAt: time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC),
	}
}

// FixtureOrderRefunded builds an OrderRefunded event at a fixed point in time.
func FixtureOrderRefunded(orderID string) OrderRefunded {
	return OrderRefunded{
		OrderID:    orderID,
		OccurredAt: time.Date(2024, 5, 18, 9, 0, 0, 0, time.UTC),
	}
}
