package eventpublisher

import (
	"context"
	"strconv"
	"time"
)

const (
	metricPublishDuration        = "eventpublisher_publish_duration_seconds"
	metricEventsPublished        = "eventpublisher_events_published_total"
	metricPublishErrors          = "eventpublisher_publish_errors_total"
	metricInterceptorCount       = "eventpublisher_interceptor_count"
	spanNamePublish              = "eventpublisher.publish"
	spanAttrEventType            = "event_type"
	spanAttrTopic                = "topic"
	spanAttrErrorType            = "error_type"
	spanAttrDurationMS           = "duration_ms"
	spanAttrInterceptorCount     = "interceptor_count"
	labelEventType               = "event_type"
	labelTopic                   = "topic"
	labelStatus                  = "status"
	labelErrorType               = "error_type"
	statusSuccess                = "success"
	statusError                  = "error"
	errorTypeEnvelope            = "envelope_build"
	errorTypeRouting             = "routing"
	errorTypeScope               = "scope_open"
	errorTypeInterceptorCreation = "interceptor_creation"
	errorTypeSenderResolution    = "sender_resolution"
	errorTypeInterceptor         = "interceptor"
	errorTypeSend                = "send"
	errorTypeCancelled           = "cancelled"
	errorTypeTimeout             = "timeout"
	errorTypePanic               = "panic"
	errorTypeErrorHook           = "error_hook"
)

// publishObserver encapsulates the metrics and tracing span lifecycle of one Publish call.
type publishObserver struct {
	p         *EventPublisher
	ctx       context.Context
	span      SpanContext
	start     time.Time
	eventType string
	topic     string
}

// startPublishObservation starts the tracing span and the duration measurement for one Publish call.
func (p *EventPublisher) startPublishObservation(ctx context.Context, eventType string) (*publishObserver, context.Context) {
	var span SpanContext

	if p.tracingCollector != nil {
		ctx, span = p.tracingCollector.StartSpan(ctx, spanNamePublish, map[string]string{
			spanAttrEventType: eventType,
		})
	}

	return &publishObserver{
		p:         p,
		ctx:       ctx,
		span:      span,
		start:     time.Now(),
		eventType: eventType,
	}, ctx
}

func (o *publishObserver) elapsedMS() float64 {
	return durationToMilliseconds(time.Since(o.start))
}

// interceptors records the size of the interceptor chain.
func (o *publishObserver) interceptors(count int) {
	if o.span != nil {
		o.span.AddAttribute(spanAttrInterceptorCount, strconv.Itoa(count))
	}

	o.p.recordValueMetrics(o.ctx, metricInterceptorCount, float64(count), o.labels(statusSuccess))
}

// success finishes the span and records all metrics for a successful Publish call.
func (o *publishObserver) success() {
	duration := time.Since(o.start)

	o.p.recordDurationMetrics(o.ctx, metricPublishDuration, duration, o.labels(statusSuccess))
	o.p.incrementCounterMetrics(o.ctx, metricEventsPublished, o.labels(statusSuccess))

	o.finishSpan(statusSuccess, duration, nil)
}

// failure finishes the span and records all metrics for a failed Publish call.
func (o *publishObserver) failure(errorType string) {
	duration := time.Since(o.start)

	labels := o.labels(statusError)
	o.p.recordDurationMetrics(o.ctx, metricPublishDuration, duration, labels)

	errorLabels := o.labels(statusError)
	errorLabels[labelErrorType] = errorType
	o.p.incrementCounterMetrics(o.ctx, metricPublishErrors, errorLabels)

	o.finishSpan(statusError, duration, map[string]string{spanAttrErrorType: errorType})
}

func (o *publishObserver) labels(status string) map[string]string {
	return map[string]string{
		labelEventType: o.eventType,
		labelTopic:     o.topic,
		labelStatus:    status,
	}
}

func (o *publishObserver) finishSpan(status string, duration time.Duration, attrs map[string]string) {
	if o.p.tracingCollector == nil || o.span == nil {
		return
	}

	o.span.SetStatus(status)
	o.span.AddAttribute(spanAttrDurationMS, strconv.FormatFloat(durationToMilliseconds(duration), 'f', 3, 64))

	finalAttrs := map[string]string{spanAttrTopic: o.topic}
	for key, value := range attrs {
		o.span.AddAttribute(key, value)
		finalAttrs[key] = value
	}

	o.p.tracingCollector.FinishSpan(o.span, status, finalAttrs)
}

// recordDurationMetrics records duration metrics with context if the collector supports it.
func (p *EventPublisher) recordDurationMetrics(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if p.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := p.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	p.metricsCollector.RecordDuration(metric, duration, labels)
}

// incrementCounterMetrics increments a counter with context if the collector supports it.
func (p *EventPublisher) incrementCounterMetrics(ctx context.Context, metric string, labels map[string]string) {
	if p.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := p.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	p.metricsCollector.IncrementCounter(metric, labels)
}

// recordValueMetrics records a value with context if the collector supports it.
func (p *EventPublisher) recordValueMetrics(ctx context.Context, metric string, value float64, labels map[string]string) {
	if p.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := p.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	p.metricsCollector.RecordValue(metric, value, labels)
}

// === Dispatch Logging ===
// Every message goes to the Logger and the ContextualLogger, whichever are configured.

// logDispatchAction logs a dispatch phase of an envelope.
// "Publishing" is logged at debug level, every other phase at info level.
func (p *EventPublisher) logDispatchAction(ctx context.Context, phase, topic string, envelope *Envelope, args ...any) {
	allArgs := dispatchArgs(topic, envelope)
	allArgs = append(allArgs, args...)

	if phase == phasePublishing {
		p.logDebug(ctx, logMsgDispatchAction+phase, allArgs...)
		return
	}

	p.logInfo(ctx, logMsgDispatchAction+phase, allArgs...)
}

// logDispatchError logs the failure of a dispatch phase at error level.
func (p *EventPublisher) logDispatchError(ctx context.Context, phase, topic string, envelope *Envelope, err error, args ...any) {
	allArgs := dispatchArgs(topic, envelope)
	allArgs = append(allArgs, args...)

	p.logError(ctx, logMsgDispatchError+phase, err, allArgs...)
}

func dispatchArgs(topic string, envelope *Envelope) []any {
	return []any{
		logAttrTopic, topic,
		logAttrEventType, envelope.EventType,
		logAttrMessageID, envelope.MessageID,
		logAttrCorrelationID, envelope.CorrelationID,
	}
}

func (p *EventPublisher) logDebug(ctx context.Context, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

func (p *EventPublisher) logInfo(ctx context.Context, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

// logWarn logs non-critical failures at warn level.
func (p *EventPublisher) logWarn(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if p.logger != nil {
		p.logger.Warn(msg, allArgs...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.WarnContext(ctx, msg, allArgs...)
	}
}

// logError logs error information at error level.
func (p *EventPublisher) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if p.logger != nil {
		p.logger.Error(msg, allArgs...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}
