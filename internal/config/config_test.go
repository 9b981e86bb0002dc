package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/spigen/internal/telemetry"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		yamlContent      string
		skipFileCreation bool
		wantConfig       *Config
		wantErr          string
	}{
		{
			name: "composer_source_with_filter",
			yamlContent: `projectDir: /srv/app
source:
  type: composer
  composer:
    vendorDir: lib
output:
  path: build/ProviderData.php
filter:
  packages:
    include: ["acme/*"]
    exclude: ["acme/legacy-*"]
environment:
  extensions:
    redis: "6.0.2"
  unavailable: ["App\\Experimental\\*"]`,
			wantConfig: &Config{
				ProjectDir: "/srv/app",
				Source: SourceConfig{
					Type: SourceTypeComposer,
					Composer: &ComposerConfig{
						File:      DefaultComposerFile,
						VendorDir: "lib",
					},
				},
				Output: OutputConfig{
					Path:      "build/ProviderData.php",
					Namespace: DefaultNamespace,
					ClassName: DefaultClassName,
				},
				Filter: &FilterConfig{
					Packages: &NameFilterConfig{
						Include: []string{"acme/*"},
						Exclude: []string{"acme/legacy-*"},
					},
				},
				Environment: &EnvironmentConfig{
					Extensions:  map[string]string{"redis": "6.0.2"},
					Unavailable: []string{`App\Experimental\*`},
				},
			},
		},
		{
			name: "manifest_source_inferred_type",
			yamlContent: `projectDir: /srv/app
source:
  manifest:
    path: packages.yaml
output:
  namespace: Acme\Generated
  className: Providers`,
			wantConfig: &Config{
				ProjectDir: "/srv/app",
				Source: SourceConfig{
					Type:     SourceTypeManifest,
					Manifest: &ManifestConfig{Path: "packages.yaml"},
				},
				Output: OutputConfig{
					Namespace: `Acme\Generated`,
					ClassName: "Providers",
				},
			},
		},
		{
			name: "manifest_without_path",
			yamlContent: `source:
  type: manifest`,
			wantErr: "manifest.path is required",
		},
		{
			name: "unsupported_source_type",
			yamlContent: `source:
  type: git`,
			wantErr: "unsupported type 'git'",
		},
		{
			name: "invalid_debounce",
			yamlContent: `watch:
  debounce: soon`,
			wantErr: "debounce must be a valid duration",
		},
		{
			name: "invalid_telemetry_sampling",
			yamlContent: `telemetry:
  enabled: true
  tracing:
    enabled: true
    sampling: 2`,
			wantErr: "sampling must be between 0.0 and 1.0",
		},
		{
			name:        "invalid_yaml",
			yamlContent: "source: [",
			wantErr:     "failed to parse YAML config",
		},
		{
			name:             "file_not_found",
			skipFileCreation: true,
			wantErr:          "failed to evaluate symlinks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Create a temporary directory for test files
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "spigen.yaml")

			if tt.skipFileCreation {
				configPath = filepath.Join(tmpDir, "non-existent.yaml")
			} else {
				err := os.WriteFile(configPath, []byte(tt.yamlContent), 0600)
				require.NoError(t, err)
			}

			config, err := LoadConfig(WithConfigPath(configPath))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, config)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	config, err := LoadConfig(WithProjectDir(dir))
	require.NoError(t, err)

	assert.Equal(t, dir, config.ProjectDir)
	assert.Equal(t, SourceTypeComposer, config.Source.Type)
	require.NotNil(t, config.Source.Composer)
	assert.Equal(t, DefaultComposerFile, config.Source.Composer.File)
	assert.Equal(t, DefaultNamespace, config.Output.Namespace)
	assert.Equal(t, DefaultClassName, config.Output.ClassName)
	assert.Equal(t, DefaultWatchDebounce, config.GetWatchDebounce())
	assert.NotNil(t, config.GetEnvironment())

	include, exclude := config.GetPackageFilter()
	assert.Empty(t, include)
	assert.Empty(t, exclude)
}

func TestLoadConfig_ProjectDirOverridesFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "spigen.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("projectDir: /from/file\n"), 0600))

	config, err := LoadConfig(WithConfigPath(configPath), WithProjectDir("/from/flag"))
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", config.ProjectDir)
}

func TestWithOptions_RejectEmpty(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(WithConfigPath(""))
	require.Error(t, err)

	_, err = LoadConfig(WithProjectDir(""))
	require.Error(t, err)
}

func TestConfig_ResolvePath(t *testing.T) {
	t.Parallel()

	cfg := &Config{ProjectDir: "/srv/app"}
	assert.Equal(t, "/srv/app/vendor", cfg.ResolvePath("vendor"))
	assert.Equal(t, "/opt/vendor", cfg.ResolvePath("/opt/vendor"))
	assert.Equal(t, "", cfg.ResolvePath(""))
}

func TestConfig_GetWatchDebounce(t *testing.T) {
	t.Parallel()

	cfg := &Config{Watch: &WatchConfig{Debounce: "2s"}}
	assert.Equal(t, 2*time.Second, cfg.GetWatchDebounce())
}

func TestConfigValidate_DisabledTelemetrySkipsChecks(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Source: SourceConfig{Type: SourceTypeComposer, Composer: &ComposerConfig{}},
		Telemetry: &telemetry.Config{
			Enabled: false,
			Tracing: &telemetry.TracingConfig{Enabled: true, Sampling: 5},
		},
	}
	assert.NoError(t, cfg.Validate())
}
