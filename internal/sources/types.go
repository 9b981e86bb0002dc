package sources

import (
	"context"
	"fmt"

	"github.com/stacklok/spigen/internal/config"
)

const (
	// DefaultRootName is the name composer gives a root package without one
	DefaultRootName = "__root__"

	// DefaultRootVersion is the version composer gives a root package without one
	DefaultRootVersion = "1.0.0+no-version-set"

	// DefaultVendorDir is the vendor directory used when none is configured
	DefaultVendorDir = "vendor"
)

//go:generate mockgen -destination=mocks/mock_source_handler.go -package=mocks -source=types.go SourceHandler,SourceHandlerFactory

// SourceHandler is an interface with methods to read package records from project metadata
type SourceHandler interface {
	// FetchPackages reads the root package and the installed dependency packages
	FetchPackages(ctx context.Context, cfg *config.Config) (*FetchResult, error)

	// Validate validates the source configuration
	Validate(source *config.SourceConfig) error

	// CurrentHash returns the current hash of the source data without parsing it
	CurrentHash(ctx context.Context, cfg *config.Config) (string, error)

	// WatchPaths returns the files whose changes affect the fetched packages
	WatchPaths(cfg *config.Config) ([]string, error)
}

// SourceHandlerFactory creates source handlers based on source type
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source type
	CreateHandler(sourceType string) (SourceHandler, error)
}

// Declaration is one service entry of a package's provider metadata.
// Providers keep the order in which they were declared.
type Declaration struct {
	Service   string
	Providers []string
}

// NamespaceRule maps a namespace prefix to the directories holding its classes
type NamespaceRule struct {
	Prefix string
	Paths  []string
}

// Autoload holds a package's class loading rules.
// Paths are relative to the package install path.
type Autoload struct {
	PSR4     []NamespaceRule
	PSR0     []NamespaceRule
	Classmap []string
}

// PackageRecord is one package as seen by the generator
type PackageRecord struct {
	// Name is the package name (e.g., "acme/logger")
	Name string

	// PrettyVersion is the human readable version (e.g., "v1.2.0", "dev-main")
	PrettyVersion string

	// Declarations is the package's provider metadata in declaration order
	Declarations []Declaration

	// Autoload holds the package's class loading rules
	Autoload Autoload

	// Requires maps required package names to version constraints
	Requires map[string]string

	// Keywords are the package's declared keywords
	Keywords []string

	// InstallPath is the absolute directory the package is installed in
	InstallPath string
}

// Identity returns the package identity used in provenance comments and diagnostics
func (p *PackageRecord) Identity() string {
	return fmt.Sprintf("%s %s", p.Name, p.PrettyVersion)
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Root is the project's own package
	Root *PackageRecord

	// Packages are the installed dependencies in installation order
	Packages []*PackageRecord

	// VendorDir is the absolute vendor directory
	VendorDir string

	// Hash is the SHA256 hash of the raw inputs for change detection
	Hash string
}

// NewFetchResult creates a new FetchResult.
// The hash should be calculated by the source handler to ensure consistency with CurrentHash
func NewFetchResult(root *PackageRecord, packages []*PackageRecord, vendorDir, hash string) *FetchResult {
	return &FetchResult{
		Root:      root,
		Packages:  packages,
		VendorDir: vendorDir,
		Hash:      hash,
	}
}

// All returns the root package followed by the dependencies
func (r *FetchResult) All() []*PackageRecord {
	all := make([]*PackageRecord, 0, len(r.Packages)+1)
	if r.Root != nil {
		all = append(all, r.Root)
	}
	return append(all, r.Packages...)
}

// DeclarationCount returns the number of service declarations across all packages
func (r *FetchResult) DeclarationCount() int {
	count := 0
	for _, p := range r.All() {
		count += len(p.Declarations)
	}
	return count
}
