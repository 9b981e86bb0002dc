// Package app provides application lifecycle management for the generator.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/spigen/internal/config"
	pkgsync "github.com/stacklok/spigen/internal/sync"
	"github.com/stacklok/spigen/internal/sync/writer"
)

// ErrArtifactStale is returned by Generate in check mode when the artifact on
// disk differs from what would be generated
var ErrArtifactStale = errors.New("generated artifact is out of date")

// GeneratorApp encapsulates all components needed to generate the provider registry.
// It provides lifecycle management and graceful shutdown capabilities.
type GeneratorApp struct {
	config     *config.Config
	components *AppComponents
	mode       string

	// Lifecycle management
	shutdown func(context.Context) error
}

// Generate runs the pipeline once.
// In check mode nothing is written and ErrArtifactStale reports a stale artifact.
func (app *GeneratorApp) Generate(ctx context.Context) (*pkgsync.Result, error) {
	result, err := app.components.Manager.Generate(ctx)
	if err != nil {
		return nil, err
	}

	if app.mode == writer.ModeCheck && result.Written {
		return result, fmt.Errorf("%w: %s", ErrArtifactStale, result.ArtifactPath)
	}
	return result, nil
}

// Watch regenerates the artifact whenever package metadata changes.
// This method blocks until the context is cancelled or Stop is called.
func (app *GeneratorApp) Watch(ctx context.Context) error {
	if app.mode == writer.ModeCheck {
		return fmt.Errorf("watch is not supported in %s mode", writer.ModeCheck)
	}
	return app.components.Coordinator.Start(ctx)
}

// Uninstall removes the generated artifact and its status file
func (app *GeneratorApp) Uninstall(ctx context.Context) error {
	return app.components.Manager.Uninstall(ctx)
}

// Stop stops the watch coordinator and flushes telemetry with the given timeout
func (app *GeneratorApp) Stop(timeout time.Duration) error {
	slog.Debug("Shutting down generator")

	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop watch coordinator", "error", err)
	}

	if app.shutdown == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}
	return nil
}

// GetConfig returns the application configuration
func (app *GeneratorApp) GetConfig() *config.Config {
	return app.config
}

// Mode returns the writer mode the app was built with
func (app *GeneratorApp) Mode() string {
	return app.mode
}
