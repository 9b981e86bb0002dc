package sync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/filtering"
	"github.com/stacklok/spigen/internal/resolver"
	"github.com/stacklok/spigen/internal/sources"
	"github.com/stacklok/spigen/internal/status"
	"github.com/stacklok/spigen/internal/sync/writer"
	"github.com/stacklok/spigen/internal/telemetry"
	"github.com/stacklok/spigen/internal/versions"
)

// Result contains the result of a successful generation run
type Result struct {
	RunID         string
	Hash          string
	ArtifactPath  string
	Written       bool
	ServiceCount  int
	ProviderCount int
	Diagnostics   []filtering.Diagnostic
}

// Pipeline stages reported by Error
const (
	StageFetch   = "fetch"
	StageFilter  = "filter"
	StageResolve = "resolve"
	StageRender  = "render"
	StageWrite   = "write"
	StageStatus  = "status"
)

// Failure reasons
const (
	reasonHandlerCreationFailed = "HandlerCreationFailed"
	reasonValidationFailed      = "ValidationFailed"
	reasonFetchFailed           = "FetchFailed"
	reasonFilterFailed          = "FilterFailed"
	reasonResolveFailed         = "ResolveFailed"
	reasonRenderFailed          = "RenderFailed"
	reasonWriteFailed           = "WriteFailed"
	reasonStatusFailed          = "StatusFailed"
)

// Error represents a structured pipeline failure
type Error struct {
	Err     error
	Message string
	Stage   string
	Reason  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Manager runs generation for the configured project
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/spigen/internal/sync Manager
type Manager interface {
	// ShouldGenerate determines if a generation run is needed
	ShouldGenerate(ctx context.Context) Reason

	// Generate executes the complete pipeline. Failures are returned as *Error.
	Generate(ctx context.Context) (*Result, error)

	// Uninstall removes the generated artifact and its status
	Uninstall(ctx context.Context) error

	// WatchPaths returns the files whose changes affect the generated artifact
	WatchPaths() ([]string, error)
}

// DataChangeDetector detects changes in source data
type DataChangeDetector interface {
	// IsDataChanged checks if source data has changed by comparing hashes
	IsDataChanged(ctx context.Context, cfg *config.Config, generationStatus *status.GenerationStatus) (bool, error)
}

// EnvironmentOpener opens a scoped resolution context for availability checks.
// The returned close function must be called on every exit path.
type EnvironmentOpener func(
	ctx context.Context, result *sources.FetchResult, env *config.EnvironmentConfig,
) (filtering.Environment, func() error, error)

// StatusPersistenceFactory creates the status persistence for a status file path
type StatusPersistenceFactory func(path string) status.StatusPersistence

// defaultManager is the default implementation of Manager
type defaultManager struct {
	cfg                  *config.Config
	sourceHandlerFactory sources.SourceHandlerFactory
	packageFilter        filtering.PackageFilterService
	dataChangeDetector   DataChangeDetector
	openEnvironment      EnvironmentOpener
	artifactWriter       writer.ArtifactWriter
	statusFactory        StatusPersistenceFactory
	reporter             filtering.Reporter
	tracer               trace.Tracer
	metrics              *telemetry.GenerationMetrics
	generatorVersion     string
	now                  func() time.Time
}

// Option configures the manager
type Option func(*defaultManager)

// WithSourceHandlerFactory sets the source handler factory
func WithSourceHandlerFactory(factory sources.SourceHandlerFactory) Option {
	return func(m *defaultManager) {
		m.sourceHandlerFactory = factory
		m.dataChangeDetector = &DefaultDataChangeDetector{sourceHandlerFactory: factory}
	}
}

// WithPackageFilter sets the package filter service
func WithPackageFilter(filter filtering.PackageFilterService) Option {
	return func(m *defaultManager) {
		m.packageFilter = filter
	}
}

// WithEnvironmentOpener sets how resolution contexts are opened
func WithEnvironmentOpener(opener EnvironmentOpener) Option {
	return func(m *defaultManager) {
		m.openEnvironment = opener
	}
}

// WithArtifactWriter sets the artifact writer
func WithArtifactWriter(w writer.ArtifactWriter) Option {
	return func(m *defaultManager) {
		m.artifactWriter = w
	}
}

// WithStatusPersistence sets how the status file is persisted. A nil factory
// disables status tracking.
func WithStatusPersistence(factory StatusPersistenceFactory) Option {
	return func(m *defaultManager) {
		m.statusFactory = factory
	}
}

// WithReporter sets the diagnostics sink
func WithReporter(reporter filtering.Reporter) Option {
	return func(m *defaultManager) {
		m.reporter = reporter
	}
}

// WithTracer sets the tracer used for pipeline spans
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// WithMetrics sets the generation metrics
func WithMetrics(metrics *telemetry.GenerationMetrics) Option {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// WithGeneratorVersion sets the version recorded in the status file
func WithGeneratorVersion(version string) Option {
	return func(m *defaultManager) {
		m.generatorVersion = version
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(m *defaultManager) {
		m.now = now
	}
}

// NewManager creates a manager for cfg with the default file-based components
func NewManager(cfg *config.Config, opts ...Option) Manager {
	factory := sources.NewSourceHandlerFactory()
	m := &defaultManager{
		cfg:                  cfg,
		sourceHandlerFactory: factory,
		packageFilter:        filtering.NewDefaultPackageFilterService(),
		dataChangeDetector:   &DefaultDataChangeDetector{sourceHandlerFactory: factory},
		openEnvironment:      OpenResolver,
		artifactWriter:       writer.NewFileArtifactWriter(),
		statusFactory:        status.NewFileStatusPersistence,
		reporter:             filtering.NewSlogReporter(nil),
		generatorVersion:     versions.GetVersionInfo().Version,
		now:                  time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// OpenResolver opens a resolver.Resolver over the fetched packages
func OpenResolver(
	ctx context.Context, result *sources.FetchResult, env *config.EnvironmentConfig,
) (filtering.Environment, func() error, error) {
	r, err := resolver.Open(ctx, resolver.WithFetchResult(result), resolver.WithEnvironment(env))
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}
