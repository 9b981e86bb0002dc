package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew_NoOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled", cfg: &Config{Enabled: false, Tracing: &TracingConfig{Enabled: true}}},
		{name: "enabled without signals", cfg: &Config{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tel, err := New(context.Background(), tt.cfg, "test")
			require.NoError(t, err)

			assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			assert.IsType(t, metricnoop.MeterProvider{}, tel.MeterProvider())
			assert.NotNil(t, tel.Tracer())
			assert.NoError(t, tel.Shutdown(context.Background()))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true, Sampling: -1},
	}, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid telemetry configuration")
}

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())

	cfg = &Config{ServiceName: "build", Endpoint: "collector:4318"}
	assert.Equal(t, "build", cfg.GetServiceName())
	assert.Equal(t, "collector:4318", cfg.GetEndpoint())

	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())
	assert.Equal(t, 0.25, (&TracingConfig{Sampling: 0.25}).GetSampling())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	assert.NoError(t, nilCfg.Validate())
	assert.NoError(t, (&Config{Enabled: true, Tracing: &TracingConfig{Enabled: false, Sampling: 9}}).Validate())
	assert.Error(t, (&Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}}).Validate())
}
