package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	metricExportInterval = 5 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// TelemetryProviders holds the OpenTelemetry providers of the command.
type TelemetryProviders struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// NewTelemetryProviders creates OpenTelemetry providers and installs them globally, together with the
// W3C trace context propagator. With an empty OTLPEndpoint the providers record without exporting.
func NewTelemetryProviders(ctx context.Context, cfg TelemetryConfig) (*TelemetryProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	traceOptions := []trace.TracerProviderOption{trace.WithResource(res)}
	meterOptions := []metric.Option{metric.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		traceExporter, traceErr := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if traceErr != nil {
			return nil, traceErr
		}

		metricExporter, metricErr := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if metricErr != nil {
			return nil, metricErr
		}

		traceOptions = append(traceOptions, trace.WithBatcher(traceExporter))
		meterOptions = append(meterOptions, metric.WithReader(
			metric.NewPeriodicReader(metricExporter, metric.WithInterval(metricExportInterval)),
		))
	}

	providers := &TelemetryProviders{
		TracerProvider: trace.NewTracerProvider(traceOptions...),
		MeterProvider:  metric.NewMeterProvider(meterOptions...),
	}

	otel.SetTracerProvider(providers.TracerProvider)
	otel.SetMeterProvider(providers.MeterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return providers, nil
}

// Shutdown flushes and stops both providers.
func (p *TelemetryProviders) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
