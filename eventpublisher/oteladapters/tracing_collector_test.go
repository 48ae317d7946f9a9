package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/oteladapters"
)

func newTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter, *trace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter, provider
}

func Test_TracingCollector_StartSpan_CreatesProducerSpanWithAttributes(t *testing.T) {
	// arrange
	collector, exporter, _ := newTracingCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "eventpublisher.publish", map[string]string{
		"event_type": "OrderCreated",
	})
	collector.FinishSpan(spanCtx, "success", map[string]string{"topic": "orders.created"})

	// assert
	assert.True(t, oteltrace.SpanContextFromContext(ctx).IsValid(), "the returned context should carry the span")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "eventpublisher.publish", span.Name)
	assert.Equal(t, oteltrace.SpanKindProducer, span.SpanKind)
	assertSpanHasAttribute(t, span, "event_type", "OrderCreated")
	assertSpanHasAttribute(t, span, "topic", "orders.created")
	assert.Equal(t, codes.Ok, span.Status.Code)
}

func Test_TracingCollector_FinishSpan_MapsStatus(t *testing.T) {
	testCases := []struct {
		name                string
		status              string
		attrs               map[string]string
		expectedCode        codes.Code
		expectedDescription string
	}{
		{
			name:         "success",
			status:       "success",
			expectedCode: codes.Ok,
		},
		{
			name:                "error_with_error_type",
			status:              "error",
			attrs:               map[string]string{"error_type": "send"},
			expectedCode:        codes.Error,
			expectedDescription: "send",
		},
		{
			name:                "error_without_error_type",
			status:              "error",
			expectedCode:        codes.Error,
			expectedDescription: "publish failed",
		},
		{
			name:         "unknown_status",
			status:       "skipped",
			expectedCode: codes.Unset,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			collector, exporter, _ := newTracingCollector()
			_, spanCtx := collector.StartSpan(context.Background(), "eventpublisher.publish", nil)

			// act
			collector.FinishSpan(spanCtx, tc.status, tc.attrs)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
			assert.Equal(t, tc.expectedDescription, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContexts(t *testing.T) {
	// arrange
	collector, exporter, _ := newTracingCollector()

	// act
	collector.FinishSpan(nil, "success", nil)

	// assert
	assert.Empty(t, exporter.GetSpans())
}

func Test_OTelSpanContext_AddAttribute(t *testing.T) {
	// arrange
	collector, exporter, _ := newTracingCollector()
	_, spanCtx := collector.StartSpan(context.Background(), "eventpublisher.publish", nil)

	// act
	spanCtx.AddAttribute("interceptor_count", "3")
	spanCtx.SetStatus("error")
	collector.FinishSpan(spanCtx, "error", map[string]string{"error_type": "interceptor"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "interceptor_count", "3")
	assert.Equal(t, "interceptor", spans[0].Status.Description, "the final status should win")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, expectedValue, attr.Value.AsString(), "attribute %s", key)
			return
		}
	}

	t.Errorf("span has no attribute %s", key)
}
