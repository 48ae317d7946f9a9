package interceptors

import (
	"context"
	"time"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const (
	// MetricSendDuration measures from the before-hook of the Timing interceptor to its after- or error-hook.
	MetricSendDuration = "eventpublisher_send_duration_seconds"

	labelEventType = "event_type"
	labelStatus    = "status"
	statusSuccess  = "success"
	statusError    = "error"
)

// TimingOption configures the Timing interceptor.
type TimingOption func(*timingConfig)

type timingConfig struct {
	now func() time.Time
}

// WithTimingClock replaces time.Now, e.g., for tests.
func WithTimingClock(now func() time.Time) TimingOption {
	return func(c *timingConfig) {
		c.now = now
	}
}

// Timing returns a constructor for an interceptor that measures the send of one Publish call.
//
// Each call gets its own instance, holding the start time between before- and after-hook.
// Place it first to include the time spent by all other interceptors.
func Timing(collector eventpublisher.MetricsCollector, options ...TimingOption) eventpublisher.InterceptorConstructor {
	cfg := timingConfig{now: time.Now}
	for _, option := range options {
		option(&cfg)
	}

	return func(eventpublisher.Scope) (eventpublisher.Interceptor, error) {
		return &TimingInterceptor{collector: collector, now: cfg.now}, nil
	}
}

// TimingInterceptor is the call-scoped interceptor created by Timing.
type TimingInterceptor struct {
	collector eventpublisher.MetricsCollector
	now       func() time.Time
	start     time.Time
}

func (i *TimingInterceptor) BeforeSend(context.Context, eventpublisher.Event, *eventpublisher.Envelope) error {
	i.start = i.now()

	return nil
}

func (i *TimingInterceptor) AfterSend(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope) error {
	i.record(ctx, envelope, statusSuccess)

	return nil
}

func (i *TimingInterceptor) OnError(ctx context.Context, _ eventpublisher.Event, envelope *eventpublisher.Envelope, _ error) error {
	i.record(ctx, envelope, statusError)

	return nil
}

// Elapsed returns the time since BeforeSend, or zero if BeforeSend has not run.
func (i *TimingInterceptor) Elapsed() time.Duration {
	if i.start.IsZero() {
		return 0
	}

	return i.now().Sub(i.start)
}

// record skips the measurement when BeforeSend never ran, e.g., when an earlier before-hook failed.
func (i *TimingInterceptor) record(ctx context.Context, envelope *eventpublisher.Envelope, status string) {
	if i.collector == nil || i.start.IsZero() {
		return
	}

	labels := map[string]string{
		labelEventType: envelope.EventType,
		labelStatus:    status,
	}

	if contextual, ok := i.collector.(eventpublisher.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, MetricSendDuration, i.Elapsed(), labels)
		return
	}

	i.collector.RecordDuration(MetricSendDuration, i.Elapsed(), labels)
}
