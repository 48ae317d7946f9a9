// Package eventpublisher provides the send-side pipeline for publishing domain events to a message broker.
//
// This package defines the publisher state machine together with the interfaces of its collaborators:
// the known-type registry, the envelope factory, the router, the per-call scope, the outbound
// interceptors and the transport senders. Concrete transports live in the senders subpackages.
//
// A single Publish call walks through these steps:
//   - Validate the event type against the registry of known message types
//   - Build the transport envelope and resolve the destination topic
//   - Open a scope and create a fresh interceptor chain from it
//   - Run before-hooks in construction order, send, then run after-hooks in reverse order
//   - On failure run every interceptor's error-hook in reverse order
//   - Close the scope, on every exit path
//
// Common usage pattern:
//
//	registry, _ := eventpublisher.NewTypeRegistry("OrderCreated", "OrderShipped")
//	router := eventpublisher.NewTableRouter(eventpublisher.WithTopicRoute("OrderCreated", "orders.created"))
//
//	publisher, err := eventpublisher.NewEventPublisher(
//		eventpublisher.NewKnownTypeGuard(registry),
//		eventpublisher.NewJSONEnvelopeFactory(),
//		router,
//		kafkaSenders,
//		eventpublisher.WithInterceptors(interceptors.NewCorrelationHeaders),
//		eventpublisher.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	err = publisher.Publish(ctx, orderCreated)
//
// By default a failing send is reported to the error-hooks and the logger but not returned to the caller.
// Use WithPublishErrorPropagation to receive it.
package eventpublisher
