package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GenerationMetricsMeterName is the name used for the generation metrics meter
const GenerationMetricsMeterName = "github.com/stacklok/spigen/generation"

// GenerationMetrics holds the OpenTelemetry instruments for generation runs
type GenerationMetrics struct {
	duration    metric.Float64Histogram
	services    metric.Int64Gauge
	providers   metric.Int64Gauge
	diagnostics metric.Int64Counter
}

// NewGenerationMetrics creates a new GenerationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewGenerationMetrics(provider metric.MeterProvider) (*GenerationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(GenerationMetricsMeterName)

	duration, err := meter.Float64Histogram(
		"spigen_generation_duration_seconds",
		metric.WithDescription("Duration of generation runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	services, err := meter.Int64Gauge(
		"spigen_services_total",
		metric.WithDescription("Number of services in the generated registry"),
		metric.WithUnit("{service}"),
	)
	if err != nil {
		return nil, err
	}

	providers, err := meter.Int64Gauge(
		"spigen_providers_total",
		metric.WithDescription("Number of provider bindings in the generated registry"),
		metric.WithUnit("{provider}"),
	)
	if err != nil {
		return nil, err
	}

	diagnostics, err := meter.Int64Counter(
		"spigen_diagnostics_total",
		metric.WithDescription("Number of diagnostics emitted while filtering declarations"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, err
	}

	return &GenerationMetrics{
		duration:    duration,
		services:    services,
		providers:   providers,
		diagnostics: diagnostics,
	}, nil
}

// RecordRun records the duration and outcome of a generation run
func (m *GenerationMetrics) RecordRun(ctx context.Context, duration time.Duration, success, written bool) {
	if m == nil || m.duration == nil {
		return
	}

	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("written", written),
	))
}

// RecordRegistrySize records the number of services and provider bindings in the artifact
func (m *GenerationMetrics) RecordRegistrySize(ctx context.Context, services, providers int) {
	if m == nil {
		return
	}

	m.services.Record(ctx, int64(services))
	m.providers.Record(ctx, int64(providers))
}

// RecordDiagnostic counts one emitted diagnostic of the given severity
func (m *GenerationMetrics) RecordDiagnostic(ctx context.Context, severity string) {
	if m == nil || m.diagnostics == nil {
		return
	}

	m.diagnostics.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
}
