// Package telemetry provides OpenTelemetry instrumentation for the generator.
// It supports optional tracing and metrics export over OTLP/HTTP.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "spigen"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples every generation run; runs are rare and short.
	DefaultSampling = 1.0
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled"`

	// ServiceName is the name of the service for telemetry identification
	ServiceName string `yaml:"serviceName,omitempty"`

	// Endpoint is the OTLP collector endpoint ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows HTTP connections instead of HTTPS
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing contains tracing-specific configuration
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics contains metrics-specific configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling controls the trace sampling rate (0.0 to 1.0)
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio.
// 0 is treated as "use default" since an unset value cannot be told apart from
// an explicit 0 in YAML.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}
