package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalapp "github.com/stacklok/spigen/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the registry whenever package metadata changes",
	Long: `Watch generates the registry once and then observes composer.json and the
installed package list (or the configured manifest). Bursts of changes are
debounced (watch.debounce in the configuration, 500ms by default) into a
single regeneration.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	generator, err := internalapp.NewGeneratorApp(ctx, internalapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- generator.Watch(ctx)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("Received shutdown signal")
	case err := <-errCh:
		stopApp(generator)
		if err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		return nil
	}

	if err := generator.Stop(defaultShutdownTimeout); err != nil {
		return err
	}
	return <-errCh
}
