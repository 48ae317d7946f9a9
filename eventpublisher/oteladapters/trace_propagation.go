package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

// TracePropagationInterceptor writes the trace context of the publish call into the envelope headers
// (traceparent, tracestate, baggage with the default propagator), so consumers can continue the trace.
// Failures are recorded on the active span.
//
// It is stateless, register it with eventpublisher.Shared.
type TracePropagationInterceptor struct {
	propagator propagation.TextMapPropagator
}

// NewTracePropagationInterceptor creates the interceptor. A nil propagator falls back to the global one.
func NewTracePropagationInterceptor(propagator propagation.TextMapPropagator) *TracePropagationInterceptor {
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return &TracePropagationInterceptor{propagator: propagator}
}

// BeforeSend injects the trace context into the envelope headers.
func (i *TracePropagationInterceptor) BeforeSend(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
	carrier := propagation.MapCarrier{}
	i.propagator.Inject(ctx, carrier)

	for key, value := range carrier {
		envelope.SetHeader(key, value)
	}

	return nil
}

func (i *TracePropagationInterceptor) AfterSend(context.Context, eventpublisher.Event, *eventpublisher.Envelope) error {
	return nil
}

// OnError records the failure on the span of the publish call.
func (i *TracePropagationInterceptor) OnError(ctx context.Context, _ eventpublisher.Event, _ *eventpublisher.Envelope, err error) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return nil
}

var _ eventpublisher.Interceptor = (*TracePropagationInterceptor)(nil)
