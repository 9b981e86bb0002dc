package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/filtering"
	"github.com/stacklok/spigen/internal/sources"
	"github.com/stacklok/spigen/internal/versions"
)

const (
	// LockFileName is the lock file created inside <vendor-dir>/composer
	LockFileName = "spigen.lock"

	// DefaultLockRetryDelay is the interval between lock attempts
	DefaultLockRetryDelay = 100 * time.Millisecond
)

var _ filtering.Environment = (*Resolver)(nil)

// Option configures a Resolver
type Option func(*options) error

type options struct {
	vendorDir      string
	packages       []*sources.PackageRecord
	environment    *config.EnvironmentConfig
	lockRetryDelay time.Duration
}

// WithFetchResult indexes the root package and dependencies of result
func WithFetchResult(result *sources.FetchResult) Option {
	return func(o *options) error {
		if result == nil {
			return fmt.Errorf("fetch result cannot be nil")
		}
		o.vendorDir = result.VendorDir
		o.packages = result.All()
		return nil
	}
}

// WithEnvironment applies extension versions and identifier overrides
func WithEnvironment(env *config.EnvironmentConfig) Option {
	return func(o *options) error {
		o.environment = env
		return nil
	}
}

// WithLockRetryDelay sets the interval between lock attempts
func WithLockRetryDelay(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("lock retry delay must be positive")
		}
		o.lockRetryDelay = d
		return nil
	}
}

// Resolver implements filtering.Environment over installed package sources.
// Results are cached for the lifetime of the resolver.
type Resolver struct {
	lock         *flock.Flock
	index        *classIndex
	installed    map[string]string
	extensions   map[string]string
	assumeExists *filtering.IdentifierPatterns
	unavailable  *filtering.IdentifierPatterns

	mu           sync.Mutex
	requirements map[string][]Requirement
	closed       bool
}

// Open acquires the vendor directory lock and builds the autoload index.
// It blocks until the lock is acquired or ctx is done.
func Open(ctx context.Context, opts ...Option) (*Resolver, error) {
	o := &options{lockRetryDelay: DefaultLockRetryDelay}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.vendorDir == "" {
		return nil, fmt.Errorf("vendor directory is required")
	}

	env := o.environment
	if env == nil {
		env = &config.EnvironmentConfig{}
	}
	assumeExists, err := filtering.CompileIdentifierPatterns(env.AssumeExists)
	if err != nil {
		return nil, fmt.Errorf("invalid assumeExists pattern: %w", err)
	}
	unavailable, err := filtering.CompileIdentifierPatterns(env.Unavailable)
	if err != nil {
		return nil, fmt.Errorf("invalid unavailable pattern: %w", err)
	}

	lockDir := filepath.Join(o.vendorDir, "composer")
	if err := os.MkdirAll(lockDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(lockDir, LockFileName))
	locked, err := lock.TryLockContext(ctx, o.lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock %s", lock.Path())
	}

	r := &Resolver{
		lock:         lock,
		index:        buildIndex(o.packages),
		installed:    map[string]string{},
		extensions:   map[string]string{},
		assumeExists: assumeExists,
		unavailable:  unavailable,
		requirements: map[string][]Requirement{},
	}
	for _, pkg := range o.packages {
		if pkg != nil {
			r.installed[strings.ToLower(pkg.Name)] = pkg.PrettyVersion
		}
	}
	for name, version := range env.Extensions {
		r.extensions[strings.ToLower(name)] = version
	}

	slog.Debug("Opened resolution context",
		"lock", lock.Path(),
		"packages", len(o.packages),
		"classmap_entries", len(r.index.classmap))

	return r, nil
}

// Close releases the vendor directory lock. Calling Close more than once is a no-op.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", r.lock.Path(), err)
	}
	return nil
}

// IdentifierExists reports whether identifier is defined by an autoloadable
// file or matches an assumeExists pattern
func (r *Resolver) IdentifierExists(identifier string) bool {
	id := strings.TrimPrefix(identifier, `\`)
	if _, ok := r.assumeExists.Match(id); ok {
		return true
	}
	_, ok := r.index.locate(id)
	return ok
}

// ServiceAvailable reports whether the service exists and its requirements are met
func (r *Resolver) ServiceAvailable(service string) bool {
	if !r.IdentifierExists(service) {
		return false
	}
	return r.ProviderAvailable(service)
}

// ProviderAvailable reports whether every dependency attribute of the provider
// is satisfied. Identifiers matching an unavailable pattern are never available.
func (r *Resolver) ProviderAvailable(provider string) bool {
	id := strings.TrimPrefix(provider, `\`)
	if pattern, ok := r.unavailable.Match(id); ok {
		slog.Debug("Identifier marked unavailable", "identifier", id, "pattern", pattern)
		return false
	}

	for _, req := range r.Requirements(id) {
		if !r.satisfied(req) {
			slog.Debug("Requirement not satisfied",
				"identifier", id,
				"kind", req.Kind,
				"name", req.Name,
				"constraint", req.Constraint)
			return false
		}
	}
	return true
}

// Requirements returns the dependency attributes declared in the file defining identifier
func (r *Resolver) Requirements(identifier string) []Requirement {
	id := strings.TrimPrefix(identifier, `\`)

	r.mu.Lock()
	defer r.mu.Unlock()

	if reqs, ok := r.requirements[id]; ok {
		return reqs
	}

	var reqs []Requirement
	if path, ok := r.index.locate(id); ok {
		//nolint:gosec // Paths come from installed package metadata
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("Failed to read source file", "identifier", id, "path", path, "error", err)
		} else {
			reqs = parseRequirements(string(data))
		}
	}
	r.requirements[id] = reqs
	return reqs
}

func (r *Resolver) satisfied(req Requirement) bool {
	var version string
	var ok bool
	switch req.Kind {
	case RequirementPackage:
		version, ok = r.installed[strings.ToLower(req.Name)]
	case RequirementExtension:
		version, ok = r.extensions[strings.ToLower(req.Name)]
	}
	if !ok {
		return false
	}
	if c := strings.TrimSpace(req.Constraint); c == "" || c == "*" {
		return true
	}

	match, err := versions.Satisfies(version, req.Constraint)
	if err != nil {
		slog.Debug("Failed to check constraint",
			"name", req.Name,
			"version", version,
			"constraint", req.Constraint,
			"error", err)
		return false
	}
	return match
}
