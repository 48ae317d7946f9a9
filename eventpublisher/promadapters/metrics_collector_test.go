package promadapters_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/promadapters"
)

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("eventpublisher_events_published_total", map[string]string{"topic": "orders.created", "event_type": "OrderCreated"})
	collector.IncrementCounter("eventpublisher_events_published_total", map[string]string{"topic": "orders.created", "event_type": "OrderCreated"})
	collector.IncrementCounter("eventpublisher_events_published_total", map[string]string{"topic": "orders.shipped", "event_type": "OrderShipped"})

	// assert
	expected := `
# HELP eventpublisher_events_published_total Number of events handed to the transport successfully.
# TYPE eventpublisher_events_published_total counter
eventpublisher_events_published_total{event_type="OrderCreated",topic="orders.created"} 2
eventpublisher_events_published_total{event_type="OrderShipped",topic="orders.shipped"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "eventpublisher_events_published_total"))
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry, promadapters.WithBuckets([]float64{0.1, 1}))

	// act
	collector.RecordDuration("eventpublisher_publish_duration_seconds", 150*time.Millisecond, map[string]string{"status": "success"})

	// assert
	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	histogram := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
	assert.InDelta(t, 0.15, histogram.GetSampleSum(), 0.0001)
	require.Len(t, histogram.GetBucket(), 2)
	assert.Equal(t, uint64(0), histogram.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(1), histogram.GetBucket()[1].GetCumulativeCount())
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.RecordValue("eventpublisher_interceptor_count", 2, map[string]string{"event_type": "OrderCreated"})
	collector.RecordValue("eventpublisher_interceptor_count", 4, map[string]string{"event_type": "OrderCreated"})

	// assert
	expected := `
# HELP eventpublisher_interceptor_count Number of interceptors created for the last Publish call.
# TYPE eventpublisher_interceptor_count gauge
eventpublisher_interceptor_count{event_type="OrderCreated"} 4
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "eventpublisher_interceptor_count"))
}

func Test_MetricsCollector_DropsMismatchingLabelSets(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("eventpublisher_publish_errors_total", map[string]string{"error_type": "send"})

	// assert
	assert.NotPanics(t, func() {
		collector.IncrementCounter("eventpublisher_publish_errors_total", map[string]string{"error_type": "send", "topic": "orders.created"})
	})
	count, err := testutil.GatherAndCount(registry, "eventpublisher_publish_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_MetricsCollector_ReusesAlreadyRegisteredVectors(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	first := promadapters.NewMetricsCollector(registry)
	second := promadapters.NewMetricsCollector(registry)

	// act
	first.IncrementCounter("eventpublisher_publish_errors_total", map[string]string{"error_type": "send"})
	second.IncrementCounter("eventpublisher_publish_errors_total", map[string]string{"error_type": "send"})

	// assert
	expected := `
# HELP eventpublisher_publish_errors_total Number of failed Publish calls by error type.
# TYPE eventpublisher_publish_errors_total counter
eventpublisher_publish_errors_total{error_type="send"} 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "eventpublisher_publish_errors_total"))
}

func Test_MetricsCollector_UnknownMetricGetsGenericHelp(t *testing.T) {
	// arrange
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("custom_total", nil)

	// assert
	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "EventPublisher metric custom total.", families[0].GetHelp())
}
