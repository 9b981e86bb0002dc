package sources

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"

	"github.com/stacklok/spigen/internal/config"
)

// InstalledFileName is the name of composer's installed packages file inside <vendor-dir>/composer
const InstalledFileName = "installed.json"

// composerSourceHandler reads package records from composer metadata
type composerSourceHandler struct{}

// NewComposerSourceHandler creates a new composer source handler
func NewComposerSourceHandler() SourceHandler {
	return &composerSourceHandler{}
}

// Validate validates the composer source configuration
func (*composerSourceHandler) Validate(source *config.SourceConfig) error {
	if source == nil {
		return fmt.Errorf("source configuration cannot be nil")
	}

	if source.Composer == nil {
		return fmt.Errorf("composer configuration is required")
	}

	if source.Composer.File == "" {
		return fmt.Errorf("composer file cannot be empty")
	}

	return nil
}

// FetchPackages reads composer.json and installed.json
func (h *composerSourceHandler) FetchPackages(ctx context.Context, cfg *config.Config) (*FetchResult, error) {
	in, err := h.readInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	root, err := parseComposerPackage(in.root, filepath.Dir(in.rootPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", in.rootPath, err)
	}
	if root.Name == "" {
		root.Name = DefaultRootName
	}
	if root.PrettyVersion == "" {
		root.PrettyVersion = DefaultRootVersion
	}

	packages, err := parseInstalled(in.installed, in.vendorDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", in.installedPath, err)
	}

	slog.Debug("Read composer metadata",
		"root", root.Identity(),
		"packages", len(packages),
		"vendor_dir", in.vendorDir)

	return NewFetchResult(root, packages, in.vendorDir, in.hash()), nil
}

// CurrentHash returns the hash of composer.json and installed.json
func (h *composerSourceHandler) CurrentHash(ctx context.Context, cfg *config.Config) (string, error) {
	in, err := h.readInputs(ctx, cfg)
	if err != nil {
		return "", err
	}
	return in.hash(), nil
}

// WatchPaths returns composer.json and installed.json
func (h *composerSourceHandler) WatchPaths(cfg *config.Config) ([]string, error) {
	if err := h.Validate(&cfg.Source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	rootPath := cfg.ResolvePath(cfg.Source.Composer.File)
	data, err := readJSONFile(rootPath)
	if err != nil {
		return nil, err
	}

	vendorDir := composerVendorDir(cfg, rootPath, data)
	return []string{rootPath, filepath.Join(vendorDir, "composer", InstalledFileName)}, nil
}

// composerInputs holds the raw, standardized metadata files
type composerInputs struct {
	rootPath      string
	root          []byte
	installedPath string
	installed     []byte
	vendorDir     string
}

func (in *composerInputs) hash() string {
	sum := sha256.New()
	sum.Write(in.root)
	sum.Write([]byte{0})
	sum.Write(in.installed)
	return fmt.Sprintf("%x", sum.Sum(nil))
}

func (h *composerSourceHandler) readInputs(_ context.Context, cfg *config.Config) (*composerInputs, error) {
	if err := h.Validate(&cfg.Source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	in := &composerInputs{rootPath: cfg.ResolvePath(cfg.Source.Composer.File)}

	root, err := readJSONFile(in.rootPath)
	if err != nil {
		return nil, err
	}
	in.root = root

	in.vendorDir = composerVendorDir(cfg, in.rootPath, root)
	in.installedPath = filepath.Join(in.vendorDir, "composer", InstalledFileName)

	installed, err := readJSONFile(in.installedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Dependencies not installed yet; only the root package can declare providers.
		slog.Debug("No installed packages found", "path", in.installedPath)
	case err != nil:
		return nil, err
	default:
		in.installed = installed
	}

	return in, nil
}

// readJSONFile reads a JSON file, tolerating comments and trailing commas
func readJSONFile(path string) ([]byte, error) {
	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return standard, nil
}

func composerVendorDir(cfg *config.Config, rootPath string, root []byte) string {
	if cfg.Source.Composer.VendorDir != "" {
		return cfg.ResolvePath(cfg.Source.Composer.VendorDir)
	}

	dir := DefaultVendorDir
	if v := gjson.GetBytes(root, "config.vendor-dir"); v.Type == gjson.String && v.Str != "" {
		dir = v.Str
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(filepath.Dir(rootPath), dir)
}

// parseInstalled reads installed.json in both the legacy array form and the
// {"packages": [...]} form
func parseInstalled(data []byte, vendorDir string) ([]*PackageRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}

	doc := gjson.ParseBytes(data)
	list := doc
	if doc.IsObject() {
		list = doc.Get("packages")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("expected a list of packages")
	}

	var packages []*PackageRecord
	var parseErr error
	list.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			parseErr = fmt.Errorf("package at index %d: expected an object", len(packages))
			return false
		}

		name := value.Get("name").String()
		if name == "" {
			parseErr = fmt.Errorf("package at index %d: name is required", len(packages))
			return false
		}

		installPath := filepath.Join(vendorDir, filepath.FromSlash(name))
		if ip := value.Get("install-path"); ip.Type == gjson.String && ip.Str != "" {
			installPath = filepath.Join(vendorDir, "composer", filepath.FromSlash(ip.Str))
		}

		packages = append(packages, composerPackageFrom(value, installPath))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return packages, nil
}

func parseComposerPackage(data []byte, installPath string) (*PackageRecord, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return composerPackageFrom(doc, installPath), nil
}

func composerPackageFrom(doc gjson.Result, installPath string) *PackageRecord {
	pkg := &PackageRecord{
		Name:          doc.Get("name").String(),
		PrettyVersion: doc.Get("version").String(),
		InstallPath:   installPath,
		Requires:      map[string]string{},
	}

	doc.Get("require").ForEach(func(key, value gjson.Result) bool {
		pkg.Requires[key.String()] = value.String()
		return true
	})

	for _, k := range doc.Get("keywords").Array() {
		pkg.Keywords = append(pkg.Keywords, k.String())
	}

	autoload := doc.Get("autoload")
	pkg.Autoload.PSR4 = jsonNamespaceRules(autoload.Get("psr-4"))
	pkg.Autoload.PSR0 = jsonNamespaceRules(autoload.Get("psr-0"))
	for _, p := range autoload.Get("classmap").Array() {
		pkg.Autoload.Classmap = append(pkg.Autoload.Classmap, p.String())
	}

	spi := doc.Get("extra.spi")
	switch {
	case !spi.Exists():
	case spi.IsObject():
		spi.ForEach(func(key, value gjson.Result) bool {
			pkg.Declarations = append(pkg.Declarations, Declaration{
				Service:   key.String(),
				Providers: jsonProviders(value),
			})
			return true
		})
	default:
		slog.Warn("Ignoring extra.spi, expected an object", "package", pkg.Name)
	}

	return pkg
}

// jsonProviders normalizes a provider value to a list. Entries that are not
// strings keep their raw JSON text so identifier validation rejects them.
func jsonProviders(value gjson.Result) []string {
	if !value.IsArray() {
		return []string{jsonText(value)}
	}

	providers := []string{}
	value.ForEach(func(_, item gjson.Result) bool {
		providers = append(providers, jsonText(item))
		return true
	})
	return providers
}

func jsonText(value gjson.Result) string {
	if value.Type == gjson.String {
		return value.Str
	}
	return value.Raw
}

func jsonNamespaceRules(value gjson.Result) []NamespaceRule {
	var rules []NamespaceRule
	value.ForEach(func(key, paths gjson.Result) bool {
		rule := NamespaceRule{Prefix: key.String()}
		if paths.IsArray() {
			for _, p := range paths.Array() {
				rule.Paths = append(rule.Paths, p.String())
			}
		} else {
			rule.Paths = []string{paths.String()}
		}
		rules = append(rules, rule)
		return true
	})
	return rules
}
