package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	internalapp "github.com/stacklok/spigen/internal/app"
	"github.com/stacklok/spigen/internal/sync/writer"
)

const defaultShutdownTimeout = 10 * time.Second

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the service provider registry",
	Long: `Generate reads the package metadata, filters unavailable providers and writes
the registry class. The file is only rewritten when its content changes.

With --check nothing is written. The command exits with status 2 when the
registry on disk is out of date.`,
	RunE: runGenerate,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the generated registry and its status file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		generator, err := internalapp.NewGeneratorApp(ctx, internalapp.WithConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to create generator: %w", err)
		}
		defer stopApp(generator)

		return generator.Uninstall(ctx)
	},
}

func init() {
	generateCmd.Flags().Bool("check", false, "Only report whether the generated registry is up to date")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	mode := writer.ModeWrite
	if check {
		mode = writer.ModeCheck
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	generator, err := internalapp.NewGeneratorApp(ctx,
		internalapp.WithConfig(cfg),
		internalapp.WithMode(mode))
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	defer stopApp(generator)

	result, err := generator.Generate(ctx)
	if err != nil {
		return err
	}

	if check {
		slog.Info("Generated registry is up to date", "path", result.ArtifactPath)
	}
	return nil
}

func stopApp(generator *internalapp.GeneratorApp) {
	if err := generator.Stop(defaultShutdownTimeout); err != nil {
		slog.Warn("Failed to stop generator", "error", err)
	}
}
