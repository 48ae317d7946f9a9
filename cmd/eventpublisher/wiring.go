package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/config"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/interceptors"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/logadapters"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/oteladapters"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/promadapters"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/amqpsender"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/kafkasender"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/natssender"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/outboxsender"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher/senders/redissender"
)

const instrumentationName = "github.com/AntonStoeckl/dynamic-streams-eventpublisher-go"

// ObservabilityConfig holds the observability adapters for the EventPublisher.
type ObservabilityConfig struct {
	Logger           eventpublisher.Logger
	ContextualLogger eventpublisher.ContextualLogger
	MetricsCollector eventpublisher.MetricsCollector
	TracingCollector eventpublisher.TracingCollector
	Registry         *prometheus.Registry
	Telemetry        *config.TelemetryProviders
}

// Shutdown flushes the telemetry providers, if any.
func (o ObservabilityConfig) Shutdown() error {
	if o.Telemetry == nil {
		return nil
	}

	return o.Telemetry.Shutdown()
}

func buildRegistry(cfg config.Config) (eventpublisher.TypeRegistry, error) {
	return eventpublisher.NewTypeRegistry(cfg.KnownTypes...)
}

func buildRouter(cfg config.Config) eventpublisher.TableRouter {
	options := []eventpublisher.TableRouterOption{eventpublisher.WithDestinationPrefix(cfg.Routing.Prefix)}

	for _, route := range cfg.Routing.Routes {
		if route.Kind == config.RouteKindQueue {
			options = append(options, eventpublisher.WithQueueRoute(route.EventType, route.Destination))
			continue
		}

		options = append(options, eventpublisher.WithTopicRoute(route.EventType, route.Destination))
	}

	return eventpublisher.NewTableRouter(options...)
}

func buildObservability(ctx context.Context, cfg config.Config, logOutput io.Writer) (ObservabilityConfig, error) {
	obs := ObservabilityConfig{}

	switch cfg.Log.Backend {
	case config.LogBackendZap:
		zapLogger, err := logadapters.New(logadapters.Config{
			Level:       cfg.Log.Level,
			Encoding:    cfg.Log.Encoding,
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return ObservabilityConfig{}, err
		}

		logger := logadapters.NewZapLogger(zapLogger)
		obs.Logger = logger
		obs.ContextualLogger = logger
	default:
		obs.Logger = slog.New(newSlogHandler(logOutput, cfg.Log))
	}

	if cfg.Telemetry.Metrics == config.MetricsOTel || cfg.Telemetry.Tracing {
		providers, err := config.NewTelemetryProviders(ctx, cfg.Telemetry)
		if err != nil {
			return ObservabilityConfig{}, err
		}

		obs.Telemetry = providers
	}

	switch cfg.Telemetry.Metrics {
	case config.MetricsPrometheus:
		obs.Registry = prometheus.NewRegistry()
		obs.MetricsCollector = promadapters.NewMetricsCollector(obs.Registry)
	case config.MetricsOTel:
		obs.MetricsCollector = oteladapters.NewMetricsCollector(obs.Telemetry.MeterProvider.Meter(instrumentationName))
	}

	if cfg.Telemetry.Tracing {
		obs.TracingCollector = oteladapters.NewTracingCollector(obs.Telemetry.TracerProvider.Tracer(instrumentationName))
	}

	return obs, nil
}

func newSlogHandler(output io.Writer, cfg config.LogConfig) slog.Handler {
	level := slog.LevelInfo

	switch strings.ToLower(cfg.Level) {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn, config.LogLevelWarning:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}

	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Encoding, "console") {
		return slog.NewTextHandler(output, options)
	}

	return slog.NewJSONHandler(output, options)
}

func buildInterceptors(cfg config.Config, obs ObservabilityConfig) []eventpublisher.InterceptorConstructor {
	constructors := make([]eventpublisher.InterceptorConstructor, 0, len(cfg.Publisher.Interceptors)+1)

	if len(cfg.Publisher.StaticHeaders) > 0 {
		constructors = append(constructors, interceptors.StaticHeaders(cfg.Publisher.StaticHeaders))
	}

	for _, name := range cfg.Publisher.Interceptors {
		switch name {
		case config.InterceptorCorrelation:
			constructors = append(constructors, interceptors.NewCorrelationHeaders)
		case config.InterceptorLogging:
			constructors = append(constructors, interceptors.Logging(obs.Logger))
		case config.InterceptorTiming:
			constructors = append(constructors, interceptors.Timing(obs.MetricsCollector))
		case config.InterceptorTrace:
			constructors = append(constructors, eventpublisher.Shared(oteladapters.NewTracePropagationInterceptor(nil)))
		}
	}

	return constructors
}

func buildPublisher(
	cfg config.Config,
	senders eventpublisher.SenderFactory,
	obs ObservabilityConfig,
) (eventpublisher.EventPublisher, error) {

	registry, err := buildRegistry(cfg)
	if err != nil {
		return eventpublisher.EventPublisher{}, err
	}

	options := []eventpublisher.Option{
		eventpublisher.WithInterceptors(buildInterceptors(cfg, obs)...),
	}

	if cfg.Publisher.PropagateErrors {
		options = append(options, eventpublisher.WithPublishErrorPropagation())
	}

	if obs.Logger != nil {
		options = append(options, eventpublisher.WithLogger(obs.Logger))
	}

	if obs.ContextualLogger != nil {
		options = append(options, eventpublisher.WithContextualLogger(obs.ContextualLogger))
	}

	if obs.MetricsCollector != nil {
		options = append(options, eventpublisher.WithMetrics(obs.MetricsCollector))
	}

	if obs.TracingCollector != nil {
		options = append(options, eventpublisher.WithTracing(obs.TracingCollector))
	}

	return eventpublisher.NewEventPublisher(
		eventpublisher.NewKnownTypeGuard(registry),
		eventpublisher.NewJSONEnvelopeFactory(),
		buildRouter(cfg),
		senders,
		options...,
	)
}

// transport is a connected sender factory plus the release of everything it holds.
type transport struct {
	senders eventpublisher.SenderFactory
	close   func() error
}

// connectTransport connects the configured transport and wraps its factory in a per-topic sender cache.
func connectTransport(ctx context.Context, cfg config.Config, logger eventpublisher.Logger) (transport, error) {
	var (
		getTopicSender func(topic string) (eventpublisher.Sender, error)
		closeFn        func() error
		err            error
	)

	switch cfg.Transport {
	case config.TransportKafka:
		getTopicSender, closeFn, err = connectKafka(cfg.Kafka)
	case config.TransportNATS:
		getTopicSender, closeFn, err = connectNATS(cfg.NATS)
	case config.TransportAMQP:
		getTopicSender, closeFn, err = connectAMQP(cfg.AMQP)
	case config.TransportRedis:
		getTopicSender, closeFn, err = connectRedis(ctx, cfg.Redis)
	case config.TransportOutbox:
		getTopicSender, closeFn, err = connectOutbox(ctx, cfg.Outbox, logger)
	default:
		err = config.ErrUnknownTransport
	}

	if err != nil {
		return transport{}, err
	}

	cache := eventpublisher.NewCachingSenderFactory(getTopicSender)

	return transport{
		senders: cache,
		close: func() error {
			return errors.Join(cache.Close(), closeFn())
		},
	}, nil
}

func connectKafka(cfg config.KafkaConfig) (func(string) (eventpublisher.Sender, error), func() error, error) {
	keyFunc := kafkasender.ByMessageID
	if cfg.KeyBy == config.KeyByCorrelationID {
		keyFunc = kafkasender.ByCorrelationID
	}

	factory, err := kafkasender.NewSenderFactory(
		kafkasender.NewWriter(kafkasender.Config{
			Brokers:                cfg.Brokers,
			Username:               cfg.Username,
			Password:               cfg.Password,
			WriteTimeout:           cfg.WriteTimeout,
			AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		}),
		kafkasender.WithKeyFunc(keyFunc),
	)
	if err != nil {
		return nil, nil, err
	}

	return factory.GetTopicSender, factory.Close, nil
}

func connectNATS(cfg config.NATSConfig) (func(string) (eventpublisher.Sender, error), func() error, error) {
	conn, err := natssender.Connect(cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	factory, err := natssender.NewSenderFactory(conn, natssender.WithSubjectPrefix(cfg.SubjectPrefix))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	return factory.GetTopicSender, factory.Close, nil
}

func connectAMQP(cfg config.AMQPConfig) (func(string) (eventpublisher.Sender, error), func() error, error) {
	conn, channel, err := amqpsender.Dial(cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	var options []amqpsender.Option
	if cfg.DeclareExchange {
		options = append(options, amqpsender.WithExchangeDeclaration())
	}

	if cfg.Mandatory {
		options = append(options, amqpsender.WithMandatory())
	}

	if cfg.Transient {
		options = append(options, amqpsender.WithTransientDelivery())
	}

	factory, err := amqpsender.NewSenderFactory(channel, cfg.Exchange, options...)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return factory.GetTopicSender, func() error { return errors.Join(factory.Close(), conn.Close()) }, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (func(string) (eventpublisher.Sender, error), func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	options := []redissender.Option{redissender.WithStreamPrefix(cfg.StreamPrefix)}
	if cfg.MaxLen > 0 {
		options = append(options, redissender.WithMaxLen(cfg.MaxLen))
	}

	factory, err := redissender.NewSenderFactory(client, options...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return factory.GetTopicSender, client.Close, nil
}

func connectOutbox(
	ctx context.Context,
	cfg config.OutboxConfig,
	logger eventpublisher.Logger,
) (func(string) (eventpublisher.Sender, error), func() error, error) {

	options := []outboxsender.Option{outboxsender.WithTableName(cfg.Table)}
	if logger != nil {
		options = append(options, outboxsender.WithLogger(logger))
	}

	var (
		factory *outboxsender.SenderFactory
		closeFn func() error
		err     error
	)

	switch cfg.Driver {
	case config.DriverSQL:
		db, openErr := config.OpenSQLDB(ctx, cfg)
		if openErr != nil {
			return nil, nil, openErr
		}

		closeFn = db.Close
		factory, err = outboxsender.NewSenderFactoryFromSQLDB(db, options...)
	case config.DriverSQLX:
		db, openErr := config.OpenSQLX(ctx, cfg)
		if openErr != nil {
			return nil, nil, openErr
		}

		closeFn = db.Close
		factory, err = outboxsender.NewSenderFactoryFromSQLX(db, options...)
	default:
		pool, openErr := config.OpenPGXPool(ctx, cfg)
		if openErr != nil {
			return nil, nil, openErr
		}

		closeFn = func() error {
			pool.Close()
			return nil
		}
		factory, err = outboxsender.NewSenderFactoryFromPGXPool(pool, options...)
	}

	if err == nil && cfg.EnsureTable {
		err = factory.EnsureTable(ctx)
	}

	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	return factory.GetTopicSender, closeFn, nil
}
