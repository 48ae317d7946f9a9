package eventpublisher

// Option defines a functional option for configuring EventPublisher.
type Option func(*EventPublisher) error

// WithScopeManager replaces the default ChildScopeManager.
func WithScopeManager(scopes ScopeManager) Option {
	return func(p *EventPublisher) error {
		if scopes == nil {
			return ErrNilCollaborator
		}

		p.scopes = scopes

		return nil
	}
}

// WithInterceptorFactory sets the factory that builds the interceptor chain of each Publish call.
func WithInterceptorFactory(factory InterceptorFactory) Option {
	return func(p *EventPublisher) error {
		if factory == nil {
			return ErrNilCollaborator
		}

		p.interceptors = factory

		return nil
	}
}

// WithInterceptors is a shortcut for WithInterceptorFactory(NewInterceptorFactory(constructors...)).
func WithInterceptors(constructors ...InterceptorConstructor) Option {
	return WithInterceptorFactory(NewInterceptorFactory(constructors...))
}

// WithPublishErrorPropagation makes Publish return send and interceptor failures to the caller.
//
// Without it, such failures are only reported to the interceptors' error-hooks and to the logger,
// and Publish returns nil.
func WithPublishErrorPropagation() Option {
	return func(p *EventPublisher) error {
		p.propagatePublishErrors = true
		return nil
	}
}

// WithLogger sets the logger for the EventPublisher.
// The logger will receive messages at different levels:
//
// Debug level: the "Publishing" dispatch action right before the send
// Info level: the "Published" dispatch action after a successful send
// Warn level: non-critical issues like scope release failures
// Error level: the "publishing" dispatch error and failing error-hooks.
func WithLogger(logger Logger) Option {
	return func(p *EventPublisher) error {
		p.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventPublisher.
// It receives the same messages as the Logger, together with the context for trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(p *EventPublisher) error {
		p.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventPublisher.
// It will receive publish durations, published event counts, error counts, and interceptor counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(p *EventPublisher) error {
		p.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventPublisher.
// It will receive one span per Publish call that passed validation.
func WithTracing(collector TracingCollector) Option {
	return func(p *EventPublisher) error {
		p.tracingCollector = collector
		return nil
	}
}
