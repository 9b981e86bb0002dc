// Package app provides the command line interface of the generator.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/stacklok/spigen/internal/app"
	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/versions"
)

// Exit codes
const (
	exitFailure = 1
	exitStale   = 2
)

var rootCmd = &cobra.Command{
	Use:               "spigen",
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	Short:             "Service provider registry generator",
	Long: `spigen reads the service provider declarations (extra.spi) of a project and its
installed dependencies, drops providers that cannot be used in the current
environment and writes the remaining bindings as a PHP class that is loaded
through the composer classmap.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates a new root command for the generator.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String("project-dir", "", "Project directory (defaults to the working directory)")
	for _, name := range []string{"config", "project-dir"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	// Add subcommands
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if errors.Is(err, internalapp.ErrArtifactStale) {
		return exitStale
	}
	return exitFailure
}

// loadConfig loads the configuration selected by the persistent flags
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	if dir := viper.GetString("project-dir"); dir != "" {
		opts = append(opts, config.WithProjectDir(dir))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Debug("Loaded configuration",
		"project_dir", cfg.ProjectDir,
		"source_type", cfg.Source.Type)
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("error retrieving format flag: %w", err)
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("error formatting version info as JSON: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "spigen %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return err
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
