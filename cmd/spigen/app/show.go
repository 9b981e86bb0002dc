package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/generator"
	"github.com/stacklok/spigen/internal/sources"
)

var showCmd = &cobra.Command{
	Use:   "show [artifact]",
	Short: "Print the services and providers of a generated registry",
	Long: `Show reads a generated registry class and prints its services with their
providers and the packages they were declared by. Without an argument the
artifact of the configured project is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("format", "text", "Output format (text, json or yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if path, err = defaultArtifactPath(cmd, cfg); err != nil {
			return err
		}
	}

	//nolint:gosec // Artifact path comes from the command line or configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	table, err := generator.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}

	return printTable(cmd.OutOrStdout(), table, format)
}

// defaultArtifactPath returns the configured artifact path, resolving the vendor dir through the source
func defaultArtifactPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.Output.Path != "" {
		return cfg.ResolvePath(cfg.Output.Path), nil
	}

	handler, err := sources.NewSourceHandlerFactory().CreateHandler(cfg.Source.Type)
	if err != nil {
		return "", err
	}
	fetched, err := handler.FetchPackages(cmd.Context(), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to read package metadata: %w", err)
	}
	return filepath.Join(fetched.VendorDir, "composer", cfg.Output.ClassName+".php"), nil
}

func printTable(w io.Writer, table *generator.Table, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(table); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if _, err := fmt.Fprintf(w, "%s\\%s (version %d)\n", table.Namespace, table.ClassName, table.Version); err != nil {
		return err
	}
	for _, s := range table.Services {
		if _, err := fmt.Fprintf(w, "%s\n", s.Service); err != nil {
			return err
		}
		if len(s.Providers) == 0 {
			if _, err := fmt.Fprintln(w, "  (no providers)"); err != nil {
				return err
			}
		}
		for _, p := range s.Providers {
			line := "  " + p.Provider
			if p.Package != "" {
				line += "  [" + p.Package + "]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
