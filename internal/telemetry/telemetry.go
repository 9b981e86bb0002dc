package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope used for generation spans
const TracerName = "github.com/stacklok/spigen"

// metricsInterval is short because a generation run exits soon after it finishes;
// Shutdown flushes whatever the periodic reader has not exported yet.
const metricsInterval = 10 * time.Second

// Telemetry encapsulates OpenTelemetry providers and handles their lifecycle.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// New creates the tracer and meter providers described by cfg.
// Disabled or nil configuration yields no-op providers.
// The caller is responsible for calling Shutdown when the application exits.
func New(ctx context.Context, cfg *Config, serviceVersion string) (*Telemetry, error) {
	t := &Telemetry{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}

	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		return t, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if cfg.tracingEnabled() {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Tracing.GetSampling())),
		)
		otel.SetTracerProvider(tp)
		t.tracerProvider = tp

		slog.Info("Tracing initialized",
			"endpoint", cfg.GetEndpoint(),
			"sampling_ratio", cfg.Tracing.GetSampling(),
			"insecure", cfg.Insecure)
	}

	if cfg.metricsEnabled() {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricsInterval))),
		)
		otel.SetMeterProvider(mp)
		t.meterProvider = mp

		slog.Info("Metrics initialized", "endpoint", cfg.GetEndpoint(), "insecure", cfg.Insecure)
	}

	if cfg.Insecure {
		slog.Warn("Telemetry configured with insecure connection; data is sent over unencrypted HTTP")
	}

	return t, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Tracer returns the generator tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(TracerName)
}

// Shutdown flushes and stops SDK providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	return errors.Join(errs...)
}
