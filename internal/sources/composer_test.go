package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/spigen/internal/config"
)

const testRootComposer = `{
	// hand-edited root manifest
	"name": "acme/app",
	"require": {"acme/logger": "^1.0"},
	"autoload": {"psr-4": {"App\\": "src/"}},
	"extra": {
		"spi": {
			"Acme\\Zeta": "App\\ZetaImpl",
			"Acme\\Alpha": ["App\\AlphaOne", "App\\AlphaTwo"],
		},
	},
}`

const testInstalledV2 = `{
	"packages": [
		{
			"name": "acme/logger",
			"version": "v1.2.0",
			"keywords": ["logging", "psr-3"],
			"install-path": "../acme/logger",
			"autoload": {"psr-4": {"Acme\\Logger\\": ["src/", "lib/"]}, "classmap": ["legacy/"]},
			"extra": {"spi": {"Acme\\Alpha": ["Acme\\Logger\\AlphaProvider", 42]}}
		},
		{
			"name": "acme/plain",
			"version": "2.0.0"
		}
	],
	"dev": true
}`

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func composerConfig(dir string) *config.Config {
	return &config.Config{
		ProjectDir: dir,
		Source: config.SourceConfig{
			Type:     config.SourceTypeComposer,
			Composer: &config.ComposerConfig{File: config.DefaultComposerFile},
		},
	}
}

func TestComposerSourceHandler_Validate(t *testing.T) {
	t.Parallel()

	handler := NewComposerSourceHandler()

	tests := []struct {
		name          string
		source        *config.SourceConfig
		errorContains string
	}{
		{name: "nil source", source: nil, errorContains: "cannot be nil"},
		{name: "missing composer", source: &config.SourceConfig{Type: config.SourceTypeComposer}, errorContains: "composer configuration is required"},
		{name: "empty file", source: &config.SourceConfig{Composer: &config.ComposerConfig{}}, errorContains: "composer file cannot be empty"},
		{name: "valid", source: &config.SourceConfig{Composer: &config.ComposerConfig{File: "composer.json"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := handler.Validate(tt.source)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestComposerSourceHandler_FetchPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "composer.json"), testRootComposer)
	writeTestFile(t, filepath.Join(dir, "vendor", "composer", "installed.json"), testInstalledV2)

	handler := NewComposerSourceHandler()
	result, err := handler.FetchPackages(context.Background(), composerConfig(dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "vendor"), result.VendorDir)
	assert.Len(t, result.Hash, 64)

	root := result.Root
	assert.Equal(t, "acme/app 1.0.0+no-version-set", root.Identity())
	assert.Equal(t, dir, root.InstallPath)
	assert.Equal(t, map[string]string{"acme/logger": "^1.0"}, root.Requires)
	assert.Equal(t, []NamespaceRule{{Prefix: `App\`, Paths: []string{"src/"}}}, root.Autoload.PSR4)
	assert.Equal(t, []Declaration{
		{Service: `Acme\Zeta`, Providers: []string{`App\ZetaImpl`}},
		{Service: `Acme\Alpha`, Providers: []string{`App\AlphaOne`, `App\AlphaTwo`}},
	}, root.Declarations, "declaration order follows the metadata")

	require.Len(t, result.Packages, 2)
	logger := result.Packages[0]
	assert.Equal(t, "acme/logger v1.2.0", logger.Identity())
	assert.Equal(t, filepath.Join(dir, "vendor", "acme", "logger"), logger.InstallPath)
	assert.Equal(t, []NamespaceRule{{Prefix: `Acme\Logger\`, Paths: []string{"src/", "lib/"}}}, logger.Autoload.PSR4)
	assert.Equal(t, []string{"legacy/"}, logger.Autoload.Classmap)
	assert.Equal(t, []string{"logging", "psr-3"}, logger.Keywords)
	assert.Equal(t, []Declaration{
		{Service: `Acme\Alpha`, Providers: []string{`Acme\Logger\AlphaProvider`, "42"}},
	}, logger.Declarations)

	plain := result.Packages[1]
	assert.Equal(t, "acme/plain 2.0.0", plain.Identity())
	assert.Equal(t, filepath.Join(dir, "vendor", "acme", "plain"), plain.InstallPath)
	assert.Empty(t, plain.Declarations)
}

func TestComposerSourceHandler_LegacyInstalledAndVendorDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "composer.json"), `{
		"name": "acme/app",
		"version": "3.1.0",
		"config": {"vendor-dir": "lib/vendor"}
	}`)
	writeTestFile(t, filepath.Join(dir, "lib", "vendor", "composer", "installed.json"), `[
		{"name": "acme/old", "version": "0.9.0", "extra": {"spi": {"Acme\\Svc": "Acme\\Old\\Impl"}}}
	]`)

	result, err := NewComposerSourceHandler().FetchPackages(context.Background(), composerConfig(dir))
	require.NoError(t, err)

	assert.Equal(t, "acme/app 3.1.0", result.Root.Identity())
	assert.Equal(t, filepath.Join(dir, "lib", "vendor"), result.VendorDir)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, filepath.Join(dir, "lib", "vendor", "acme", "old"), result.Packages[0].InstallPath)
	assert.Equal(t, []Declaration{{Service: `Acme\Svc`, Providers: []string{`Acme\Old\Impl`}}}, result.Packages[0].Declarations)
}

func TestComposerSourceHandler_VendorDirOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "composer.json"), `{"config": {"vendor-dir": "ignored"}}`)

	cfg := composerConfig(dir)
	cfg.Source.Composer.VendorDir = "deps"

	paths, err := NewComposerSourceHandler().WatchPaths(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "composer.json"),
		filepath.Join(dir, "deps", "composer", "installed.json"),
	}, paths)
}

func TestComposerSourceHandler_NotInstalled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "composer.json"), `{"extra": {"spi": {"Acme\\Svc": []}}}`)

	result, err := NewComposerSourceHandler().FetchPackages(context.Background(), composerConfig(dir))
	require.NoError(t, err)

	assert.Equal(t, DefaultRootName+" "+DefaultRootVersion, result.Root.Identity())
	assert.Empty(t, result.Packages)
	assert.Equal(t, []Declaration{{Service: `Acme\Svc`, Providers: []string{}}}, result.Root.Declarations)
}

func TestComposerSourceHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		root          string
		installed     string
		errorContains string
	}{
		{name: "missing root", errorContains: "file not found"},
		{name: "invalid root", root: `{"name": `, errorContains: "invalid JSON"},
		{name: "root not an object", root: `[]`, errorContains: "expected a JSON object"},
		{name: "installed not a list", root: `{}`, installed: `{"packages": 1}`, errorContains: "expected a list of packages"},
		{name: "installed entry without name", root: `{}`, installed: `[{"version": "1.0.0"}]`, errorContains: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.root != "" {
				writeTestFile(t, filepath.Join(dir, "composer.json"), tt.root)
			}
			if tt.installed != "" {
				writeTestFile(t, filepath.Join(dir, "vendor", "composer", "installed.json"), tt.installed)
			}

			_, err := NewComposerSourceHandler().FetchPackages(context.Background(), composerConfig(dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestComposerSourceHandler_CurrentHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "composer.json"), testRootComposer)
	installed := filepath.Join(dir, "vendor", "composer", "installed.json")
	writeTestFile(t, installed, testInstalledV2)

	handler := NewComposerSourceHandler()
	cfg := composerConfig(dir)

	hash, err := handler.CurrentHash(context.Background(), cfg)
	require.NoError(t, err)

	result, err := handler.FetchPackages(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, hash, result.Hash)

	writeTestFile(t, installed, `{"packages": []}`)
	changed, err := handler.CurrentHash(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEqual(t, hash, changed)
}
