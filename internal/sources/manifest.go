package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/spigen/internal/config"
)

// manifestSourceHandler reads package records from a YAML package manifest
type manifestSourceHandler struct{}

// manifestFile is the document layout of a package manifest
type manifestFile struct {
	VendorDir string            `yaml:"vendorDir"`
	Root      manifestPackage   `yaml:"root"`
	Packages  []manifestPackage `yaml:"packages"`
}

// manifestPackage is one package entry. Order-sensitive sections are kept as nodes.
type manifestPackage struct {
	Name     string            `yaml:"name"`
	Version  string            `yaml:"version"`
	Path     string            `yaml:"path"`
	SPI      yaml.Node         `yaml:"spi"`
	Autoload manifestAutoload  `yaml:"autoload"`
	Require  map[string]string `yaml:"require"`
	Keywords []string          `yaml:"keywords"`
}

type manifestAutoload struct {
	PSR4     yaml.Node `yaml:"psr-4"`
	PSR0     yaml.Node `yaml:"psr-0"`
	Classmap []string  `yaml:"classmap"`
}

// NewManifestSourceHandler creates a new manifest source handler
func NewManifestSourceHandler() SourceHandler {
	return &manifestSourceHandler{}
}

// Validate validates the manifest source configuration
func (*manifestSourceHandler) Validate(source *config.SourceConfig) error {
	if source == nil {
		return fmt.Errorf("source configuration cannot be nil")
	}

	if source.Manifest == nil {
		return fmt.Errorf("manifest configuration is required")
	}

	if source.Manifest.Path == "" {
		return fmt.Errorf("manifest path cannot be empty")
	}

	return nil
}

// FetchPackages reads and parses the package manifest
func (h *manifestSourceHandler) FetchPackages(ctx context.Context, cfg *config.Config) (*FetchResult, error) {
	path, data, err := h.readManifest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var doc manifestFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	vendorDir := resolveUnder(baseDir, doc.VendorDir, DefaultVendorDir)

	root, err := doc.Root.record(resolveUnder(baseDir, doc.Root.Path, "."))
	if err != nil {
		return nil, fmt.Errorf("root package: %w", err)
	}
	if root.Name == "" {
		root.Name = DefaultRootName
	}
	if root.PrettyVersion == "" {
		root.PrettyVersion = DefaultRootVersion
	}

	packages := make([]*PackageRecord, 0, len(doc.Packages))
	for i := range doc.Packages {
		entry := &doc.Packages[i]
		if entry.Name == "" {
			return nil, fmt.Errorf("package at index %d: name is required", i)
		}

		installPath := filepath.Join(vendorDir, filepath.FromSlash(entry.Name))
		if entry.Path != "" {
			installPath = resolveUnder(baseDir, entry.Path, "")
		}

		pkg, err := entry.record(installPath)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", entry.Name, err)
		}
		packages = append(packages, pkg)
	}

	slog.Debug("Read package manifest", "path", path, "root", root.Identity(), "packages", len(packages))

	return NewFetchResult(root, packages, vendorDir, fmt.Sprintf("%x", sha256.Sum256(data))), nil
}

// CurrentHash returns the hash of the manifest file
func (h *manifestSourceHandler) CurrentHash(ctx context.Context, cfg *config.Config) (string, error) {
	_, data, err := h.readManifest(ctx, cfg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// WatchPaths returns the manifest file
func (h *manifestSourceHandler) WatchPaths(cfg *config.Config) ([]string, error) {
	if err := h.Validate(&cfg.Source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}
	return []string{cfg.ResolvePath(cfg.Source.Manifest.Path)}, nil
}

func (h *manifestSourceHandler) readManifest(_ context.Context, cfg *config.Config) (string, []byte, error) {
	if err := h.Validate(&cfg.Source); err != nil {
		return "", nil, fmt.Errorf("source validation failed: %w", err)
	}

	path := cfg.ResolvePath(cfg.Source.Manifest.Path)
	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %s: %w", path, err)
		}
		return "", nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return path, data, nil
}

func (m *manifestPackage) record(installPath string) (*PackageRecord, error) {
	pkg := &PackageRecord{
		Name:          m.Name,
		PrettyVersion: m.Version,
		InstallPath:   installPath,
		Requires:      map[string]string{},
		Keywords:      m.Keywords,
	}
	for name, constraint := range m.Require {
		pkg.Requires[name] = constraint
	}

	var err error
	if pkg.Autoload.PSR4, err = yamlNamespaceRules(&m.Autoload.PSR4); err != nil {
		return nil, fmt.Errorf("autoload psr-4: %w", err)
	}
	if pkg.Autoload.PSR0, err = yamlNamespaceRules(&m.Autoload.PSR0); err != nil {
		return nil, fmt.Errorf("autoload psr-0: %w", err)
	}
	pkg.Autoload.Classmap = m.Autoload.Classmap

	if pkg.Declarations, err = yamlDeclarations(&m.SPI); err != nil {
		return nil, fmt.Errorf("spi: %w", err)
	}
	return pkg, nil
}

// yamlDeclarations walks the spi mapping in document order.
// A repeated service key yields a second declaration for the same service.
func yamlDeclarations(node *yaml.Node) ([]Declaration, error) {
	if node.Kind == 0 || isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of services to providers", node.Line)
	}

	declarations := make([]Declaration, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		declarations = append(declarations, Declaration{
			Service:   key.Value,
			Providers: yamlProviders(value),
		})
	}
	return declarations, nil
}

// yamlProviders normalizes a provider value to a list. Non-scalar entries keep
// their YAML text so identifier validation rejects them.
func yamlProviders(node *yaml.Node) []string {
	if node.Kind != yaml.SequenceNode {
		return []string{yamlText(node)}
	}

	providers := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		providers = append(providers, yamlText(item))
	}
	return providers
}

func yamlText(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Sprintf("<%s>", node.Tag)
	}
	return strings.TrimSpace(string(out))
}

func yamlNamespaceRules(node *yaml.Node) ([]NamespaceRule, error) {
	if node.Kind == 0 || isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of namespaces to paths", node.Line)
	}

	var rules []NamespaceRule
	for i := 0; i+1 < len(node.Content); i += 2 {
		rule := NamespaceRule{Prefix: node.Content[i].Value}
		value := node.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			rule.Paths = []string{value.Value}
		case yaml.SequenceNode:
			for _, p := range value.Content {
				rule.Paths = append(rule.Paths, p.Value)
			}
		default:
			return nil, fmt.Errorf("line %d: expected a path or list of paths", value.Line)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func resolveUnder(base, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
