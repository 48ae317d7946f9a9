// Package promadapters provides a Prometheus implementation of the eventpublisher MetricsCollector.
package promadapters

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

var help = map[string]string{
	"eventpublisher_publish_duration_seconds": "Time spent in EventPublisher.Publish.",
	"eventpublisher_events_published_total":   "Number of events handed to the transport successfully.",
	"eventpublisher_publish_errors_total":     "Number of failed Publish calls by error type.",
	"eventpublisher_interceptor_count":        "Number of interceptors created for the last Publish call.",
	"eventpublisher_send_duration_seconds":    "Time between the before- and after-hook of the timing interceptor.",
}

// MetricsCollector implements eventpublisher.MetricsCollector with Prometheus vectors:
//   - RecordDuration -> HistogramVec in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// Vectors are created and registered on first use of a metric name. Their label names are the
// sorted keys of that first call. Later calls with a different label set are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	mu         sync.Mutex
}

// Option configures the MetricsCollector.
type Option func(*MetricsCollector)

// WithBuckets sets the histogram buckets, prometheus.DefBuckets by default.
func WithBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = slices.Clone(buckets)
	}
}

// NewMetricsCollector creates a collector registering its vectors with registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	vec := m.histogram(metric, labelNames(labels))
	if vec == nil {
		return
	}

	if observer, err := vec.GetMetricWith(labels); err == nil {
		observer.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	vec := m.counter(metric, labelNames(labels))
	if vec == nil {
		return
	}

	if counter, err := vec.GetMetricWith(labels); err == nil {
		counter.Inc()
	}
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	vec := m.gauge(metric, labelNames(labels))
	if vec == nil {
		return
	}

	if gauge, err := vec.GetMetricWith(labels); err == nil {
		gauge.Set(value)
	}
}

func (m *MetricsCollector) histogram(name string, labels []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, exists := m.histograms[name]; exists {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    helpFor(name),
		Buckets: m.buckets,
	}, labels)

	registered, ok := register(m.registerer, vec).(*prometheus.HistogramVec)
	if !ok {
		return nil
	}

	m.histograms[name] = registered

	return registered
}

func (m *MetricsCollector) counter(name string, labels []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, exists := m.counters[name]; exists {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: helpFor(name)}, labels)

	registered, ok := register(m.registerer, vec).(*prometheus.CounterVec)
	if !ok {
		return nil
	}

	m.counters[name] = registered

	return registered
}

func (m *MetricsCollector) gauge(name string, labels []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, exists := m.gauges[name]; exists {
		return vec
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: helpFor(name)}, labels)

	registered, ok := register(m.registerer, vec).(*prometheus.GaugeVec)
	if !ok {
		return nil
	}

	m.gauges[name] = registered

	return registered
}

// register returns the collector that is registered under the vector's descriptor,
// which is the existing one if another collector registered it first, or nil on any other failure.
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return alreadyRegistered.ExistingCollector
	}

	return nil
}

func helpFor(name string) string {
	if text, ok := help[name]; ok {
		return text
	}

	return "EventPublisher metric " + strings.ReplaceAll(name, "_", " ") + "."
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

var _ eventpublisher.MetricsCollector = (*MetricsCollector)(nil)
