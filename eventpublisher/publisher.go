package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	phasePublishing            = "Publishing"
	phasePublished             = "Published"
	phasePublishingError       = "publishing"
	logMsgDispatchAction       = "dispatch: "
	logMsgDispatchError        = "dispatch error: "
	logMsgBuildEnvelopeFailed  = "failed to build envelope"
	logMsgRoutingFailed        = "failed to route event"
	logMsgOpenScopeFailed      = "failed to open publish scope"
	logMsgCloseScopeFailed     = "failed to close publish scope"
	logMsgCreateInterceptors   = "failed to create interceptors"
	logMsgErrorHookFailed      = "interceptor error hook failed"
	logAttrError               = "error"
	logAttrTopic               = "topic"
	logAttrEventType           = "event_type"
	logAttrMessageID           = "message_id"
	logAttrCorrelationID       = "correlation_id"
	logAttrScopeID             = "scope_id"
	logAttrDurationMS          = "duration_ms"
	logAttrPublishErrorHandled = "error_returned"
)

// EventPublisher publishes domain events through a reversible chain of outbound interceptors.
//
// It holds only long-lived, immutable collaborators. Everything that belongs to one Publish call
// (scope, envelope, interceptor instances) is created within that call, so concurrent calls share no
// mutable state.
type EventPublisher struct {
	guard                  KnownTypeGuard
	envelopes              EnvelopeFactory
	router                 Router
	senders                SenderFactory
	scopes                 ScopeManager
	interceptors           InterceptorFactory
	propagatePublishErrors bool
	logger                 Logger
	contextualLogger       ContextualLogger
	metricsCollector       MetricsCollector
	tracingCollector       TracingCollector
}

// NewEventPublisher creates a new EventPublisher with optional configuration.
//
// Without options it opens a ChildScope per call and runs no interceptors.
func NewEventPublisher(
	guard KnownTypeGuard,
	envelopes EnvelopeFactory,
	router Router,
	senders SenderFactory,
	options ...Option,
) (EventPublisher, error) {

	if guard.knownTypes == nil || envelopes == nil || router == nil || senders == nil {
		return EventPublisher{}, ErrNilCollaborator
	}

	p := EventPublisher{
		guard:        guard,
		envelopes:    envelopes,
		router:       router,
		senders:      senders,
		scopes:       NewChildScopeManager(),
		interceptors: NewInterceptorFactory(),
	}

	for _, option := range options {
		if err := option(&p); err != nil {
			return EventPublisher{}, err
		}
	}

	return p, nil
}

// Publish validates, serializes, routes and sends the event.
//
// Unknown event types fail with ErrUnknownMessageType before any other work is done.
// Envelope, routing, scope and interceptor construction failures are returned.
// Failures of the sender or of before/after-hooks are reported to every interceptor's error-hook
// and to the logger. They are returned only if WithPublishErrorPropagation was configured.
// A failing error-hook is always returned, joined with ErrErrorHookFailed.
func (p EventPublisher) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return ErrNilEvent
	}

	eventType := event.EventType()

	if err := p.guard.Check(eventType); err != nil {
		return err
	}

	observer, ctx := p.startPublishObservation(ctx, eventType)

	envelope, err := p.envelopes.Create(ctx, event)
	if err != nil {
		observer.failure(errorTypeEnvelope)
		p.logError(ctx, logMsgBuildEnvelopeFailed, err, logAttrEventType, eventType)

		return joinUnless(ErrBuildingEnvelopeFailed, err)
	}

	topic, err := p.router.Route(eventType, DestinationTopic)
	if err != nil {
		observer.failure(errorTypeRouting)
		p.logError(ctx, logMsgRoutingFailed, err, logAttrEventType, eventType)

		return joinUnless(ErrRoutingFailed, err)
	}

	observer.topic = topic

	return p.publishWithinScope(ctx, observer, event, envelope, topic)
}

// publishWithinScope runs everything that depends on the per-call scope and closes it on every exit path.
func (p EventPublisher) publishWithinScope(
	ctx context.Context,
	observer *publishObserver,
	event Event,
	envelope *Envelope,
	topic string,
) error {

	scope, err := p.scopes.OpenScope(ctx)
	if err != nil {
		observer.failure(errorTypeScope)
		p.logError(ctx, logMsgOpenScopeFailed, err, logAttrTopic, topic, logAttrMessageID, envelope.MessageID)

		return errors.Join(ErrOpeningScopeFailed, err)
	}
	defer p.closeScope(ctx, scope, topic)

	interceptors, err := p.interceptors.CreateInterceptors(scope)
	if err != nil {
		observer.failure(errorTypeInterceptorCreation)
		p.logError(ctx, logMsgCreateInterceptors, err, logAttrTopic, topic, logAttrScopeID, scope.ID())

		return errors.Join(ErrCreatingInterceptorsFailed, err)
	}

	chain := NewInterceptorChain(interceptors)
	observer.interceptors(chain.Len())

	captured := p.dispatch(ctx, chain, event, envelope, topic)
	if captured == nil {
		p.logDispatchAction(ctx, phasePublished, topic, envelope, logAttrDurationMS, observer.elapsedMS())
		observer.success()

		return nil
	}

	// The error path must run even if the caller gave up, so it gets a context that is never cancelled.
	errCtx := context.WithoutCancel(ctx)

	if hookErr := runErrorHooks(errCtx, chain, event, envelope, captured); hookErr != nil {
		observer.failure(errorTypeErrorHook)
		p.logError(errCtx, logMsgErrorHookFailed, hookErr, logAttrTopic, topic, logAttrMessageID, envelope.MessageID)

		return errors.Join(ErrErrorHookFailed, hookErr, captured)
	}

	p.logDispatchError(errCtx, phasePublishingError, topic, envelope, captured,
		logAttrDurationMS, observer.elapsedMS(),
		logAttrPublishErrorHandled, p.propagatePublishErrors)
	observer.failure(classifyCapturedError(captured))

	if p.propagatePublishErrors {
		return captured
	}

	return nil
}

// dispatch is the guarded block of a Publish call: sender lookup, before-hooks, send, after-hooks.
// Every failure, including a panic, is returned as the captured error.
func (p EventPublisher) dispatch(
	ctx context.Context,
	chain InterceptorChain,
	event Event,
	envelope *Envelope,
	topic string,
) (captured error) {

	defer func() {
		if r := recover(); r != nil {
			captured = fmt.Errorf("%w: %v", ErrPanicRecovered, r)
		}
	}()

	sender, err := p.senders.GetTopicSender(topic)
	if err != nil {
		return errors.Join(ErrResolvingSenderFailed, err)
	}

	if sender == nil {
		return errors.Join(ErrResolvingSenderFailed, ErrNilCollaborator)
	}

	if err := chain.BeforeSend(ctx, event, envelope); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(ErrSendingFailed, err)
	}

	p.logDispatchAction(ctx, phasePublishing, topic, envelope)

	if err := sender.Send(ctx, envelope); err != nil {
		return errors.Join(ErrSendingFailed, err)
	}

	return chain.AfterSend(ctx, event, envelope)
}

// runErrorHooks runs the error pass. A panicking error-hook is returned like a failing one.
func runErrorHooks(ctx context.Context, chain InterceptorChain, event Event, envelope *Envelope, captured error) (hookErr error) {
	defer func() {
		if r := recover(); r != nil {
			hookErr = fmt.Errorf("%w: %v", ErrPanicRecovered, r)
		}
	}()

	return chain.OnError(ctx, event, envelope, captured)
}

// closeScope releases the scope and logs, but never returns, a release failure.
func (p EventPublisher) closeScope(ctx context.Context, scope Scope, topic string) {
	if err := scope.Close(); err != nil {
		p.logWarn(ctx, logMsgCloseScopeFailed, err, logAttrTopic, topic, logAttrScopeID, scope.ID())
	}
}

// classifyCapturedError maps a captured error to the error_type label used for metrics and spans.
func classifyCapturedError(err error) string {
	switch {
	case errors.Is(err, ErrPanicRecovered):
		return errorTypePanic
	case errors.Is(err, context.Canceled):
		return errorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.Is(err, ErrResolvingSenderFailed):
		return errorTypeSenderResolution
	case errors.Is(err, ErrInterceptorFailed):
		return errorTypeInterceptor
	default:
		return errorTypeSend
	}
}

func joinUnless(sentinel error, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}

	return errors.Join(sentinel, err)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Round(time.Microsecond).Microseconds()) / 1000
}
