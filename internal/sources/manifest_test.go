package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/spigen/internal/config"
)

const testManifest = `
vendorDir: deps
root:
  name: acme/app
  version: 2.0.0
  spi:
    Acme\Zeta: App\ZetaImpl
    Acme\Alpha:
      - App\AlphaOne
      - {not: a-class}
  autoload:
    psr-4:
      App\: src/
packages:
  - name: acme/logger
    version: v1.2.0
    require:
      php: ">=8.1"
    autoload:
      psr-0:
        Acme_: [lib/, legacy/]
      classmap: [extra/]
    spi:
      Acme\Alpha: [Acme\Logger\AlphaProvider]
      Acme\Alpha: [Acme\Logger\Second]
  - name: acme/local
    version: dev-main
    path: packages/local
`

func manifestConfig(dir string) *config.Config {
	return &config.Config{
		ProjectDir: dir,
		Source: config.SourceConfig{
			Type:     config.SourceTypeManifest,
			Manifest: &config.ManifestConfig{Path: "spigen.packages.yaml"},
		},
	}
}

func TestManifestSourceHandler_FetchPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "spigen.packages.yaml"), testManifest)

	result, err := NewManifestSourceHandler().FetchPackages(context.Background(), manifestConfig(dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "deps"), result.VendorDir)
	assert.Len(t, result.Hash, 64)

	root := result.Root
	assert.Equal(t, "acme/app 2.0.0", root.Identity())
	assert.Equal(t, dir, root.InstallPath)
	assert.Equal(t, []NamespaceRule{{Prefix: `App\`, Paths: []string{"src/"}}}, root.Autoload.PSR4)
	require.Len(t, root.Declarations, 2)
	assert.Equal(t, Declaration{Service: `Acme\Zeta`, Providers: []string{`App\ZetaImpl`}}, root.Declarations[0])
	assert.Equal(t, `Acme\Alpha`, root.Declarations[1].Service)
	require.Len(t, root.Declarations[1].Providers, 2)
	assert.Equal(t, `App\AlphaOne`, root.Declarations[1].Providers[0])
	assert.Contains(t, root.Declarations[1].Providers[1], "not")

	require.Len(t, result.Packages, 2)
	logger := result.Packages[0]
	assert.Equal(t, filepath.Join(dir, "deps", "acme", "logger"), logger.InstallPath)
	assert.Equal(t, map[string]string{"php": ">=8.1"}, logger.Requires)
	assert.Equal(t, []NamespaceRule{{Prefix: "Acme_", Paths: []string{"lib/", "legacy/"}}}, logger.Autoload.PSR0)
	assert.Equal(t, []string{"extra/"}, logger.Autoload.Classmap)
	assert.Equal(t, []Declaration{
		{Service: `Acme\Alpha`, Providers: []string{`Acme\Logger\AlphaProvider`}},
		{Service: `Acme\Alpha`, Providers: []string{`Acme\Logger\Second`}},
	}, logger.Declarations, "repeated keys are kept in order")

	local := result.Packages[1]
	assert.Equal(t, "acme/local dev-main", local.Identity())
	assert.Equal(t, filepath.Join(dir, "packages", "local"), local.InstallPath)
}

func TestManifestSourceHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		content       string
		errorContains string
	}{
		{name: "missing file", errorContains: "file not found"},
		{name: "invalid yaml", content: "root: [", errorContains: "failed to parse manifest"},
		{name: "package without name", content: "packages:\n  - version: 1.0.0\n", errorContains: "name is required"},
		{name: "spi not a mapping", content: "root:\n  spi: [a]\n", errorContains: "expected a mapping of services"},
		{name: "bad autoload", content: "root:\n  autoload:\n    psr-4:\n      App\\: {a: b}\n", errorContains: "expected a path or list of paths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.content != "" {
				writeTestFile(t, filepath.Join(dir, "spigen.packages.yaml"), tt.content)
			}

			_, err := NewManifestSourceHandler().FetchPackages(context.Background(), manifestConfig(dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestManifestSourceHandler_HashAndWatchPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "spigen.packages.yaml"), testManifest)

	handler := NewManifestSourceHandler()
	cfg := manifestConfig(dir)

	hash, err := handler.CurrentHash(context.Background(), cfg)
	require.NoError(t, err)
	result, err := handler.FetchPackages(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, hash, result.Hash)

	paths, err := handler.WatchPaths(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "spigen.packages.yaml")}, paths)

	_, err = handler.WatchPaths(&config.Config{Source: config.SourceConfig{Manifest: &config.ManifestConfig{}}})
	assert.Error(t, err)
}
