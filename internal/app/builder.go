package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/filtering"
	"github.com/stacklok/spigen/internal/sources"
	pkgsync "github.com/stacklok/spigen/internal/sync"
	"github.com/stacklok/spigen/internal/sync/coordinator"
	"github.com/stacklok/spigen/internal/sync/writer"
	"github.com/stacklok/spigen/internal/telemetry"
	"github.com/stacklok/spigen/internal/versions"
)

// GeneratorAppOptions is a function that configures the generator app builder
type GeneratorAppOptions func(*generatorAppConfig) error

// generatorAppConfig collects the builder inputs.
// It supports dependency injection for testing while providing sensible defaults for production.
type generatorAppConfig struct {
	config *config.Config
	mode   string

	// Optional component overrides (primarily for testing)
	sourceHandlerFactory sources.SourceHandlerFactory
	environmentOpener    pkgsync.EnvironmentOpener
	syncManager          pkgsync.Manager
	reporter             filtering.Reporter
	telemetry            *telemetry.Telemetry
}

func baseConfig(opts ...GeneratorAppOptions) (*generatorAppConfig, error) {
	cfg := &generatorAppConfig{
		mode: writer.ModeWrite,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewGeneratorApp builds the generator from the given options
func NewGeneratorApp(
	ctx context.Context,
	opts ...GeneratorAppOptions,
) (*GeneratorApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, cfg.config.Telemetry, versions.GetVersionInfo().Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	// Ensure telemetry is flushed on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			_ = cfg.telemetry.Shutdown(ctx)
		}
	}()

	manager, err := buildManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build generation manager: %w", err)
	}

	watchCoordinator := coordinator.New(manager, coordinator.WithDebounce(cfg.config.GetWatchDebounce()))

	cleanupNeeded = false

	return &GeneratorApp{
		config: cfg.config,
		mode:   cfg.mode,
		components: &AppComponents{
			Manager:     manager,
			Coordinator: watchCoordinator,
		},
		shutdown: cfg.telemetry.Shutdown,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithMode sets the writer mode (write or check)
func WithMode(mode string) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		if _, err := writer.NewArtifactWriter(mode); err != nil {
			return err
		}
		if mode == "" {
			mode = writer.ModeWrite
		}
		cfg.mode = mode
		return nil
	}
}

// WithSourceHandlerFactory allows injecting a custom source handler factory (for testing)
func WithSourceHandlerFactory(f sources.SourceHandlerFactory) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.sourceHandlerFactory = f
		return nil
	}
}

// WithEnvironmentOpener allows injecting how resolution contexts are opened (for testing)
func WithEnvironmentOpener(opener pkgsync.EnvironmentOpener) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.environmentOpener = opener
		return nil
	}
}

// WithSyncManager allows injecting a custom generation manager (for testing)
func WithSyncManager(sm pkgsync.Manager) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithReporter sets where diagnostics are reported
func WithReporter(r filtering.Reporter) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.reporter = r
		return nil
	}
}

// WithTelemetry sets pre-built telemetry providers
func WithTelemetry(t *telemetry.Telemetry) GeneratorAppOptions {
	return func(cfg *generatorAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildManager builds the generation manager and its components
func buildManager(b *generatorAppConfig) (pkgsync.Manager, error) {
	if b.syncManager != nil {
		return b.syncManager, nil
	}

	slog.Debug("Initializing generation components", "mode", b.mode, "source_type", b.config.Source.Type)

	artifactWriter, err := writer.NewArtifactWriter(b.mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact writer: %w", err)
	}

	metrics, err := telemetry.NewGenerationMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create generation metrics: %w", err)
	}

	opts := []pkgsync.Option{
		pkgsync.WithArtifactWriter(artifactWriter),
		pkgsync.WithTracer(b.telemetry.Tracer()),
		pkgsync.WithMetrics(metrics),
	}
	if b.sourceHandlerFactory != nil {
		opts = append(opts, pkgsync.WithSourceHandlerFactory(b.sourceHandlerFactory))
	}
	if b.environmentOpener != nil {
		opts = append(opts, pkgsync.WithEnvironmentOpener(b.environmentOpener))
	}
	if b.reporter != nil {
		opts = append(opts, pkgsync.WithReporter(b.reporter))
	}
	if b.mode == writer.ModeCheck {
		// A check never records a generation
		opts = append(opts, pkgsync.WithStatusPersistence(nil))
	}

	return pkgsync.NewManager(b.config, opts...), nil
}
