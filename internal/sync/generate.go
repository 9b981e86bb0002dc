package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/filtering"
	"github.com/stacklok/spigen/internal/generator"
	"github.com/stacklok/spigen/internal/otel"
	"github.com/stacklok/spigen/internal/registry"
	"github.com/stacklok/spigen/internal/sources"
	"github.com/stacklok/spigen/internal/status"
)

// Generate executes the complete generation pipeline
func (m *defaultManager) Generate(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.Generate",
		trace.WithAttributes(
			otel.AttrRunID.String(runID),
			otel.AttrSourceType.String(m.cfg.Source.Type),
		))
	defer span.End()

	start := m.now()
	logger := slog.With("run_id", runID)
	logger.Info("Starting generation", "source_type", m.cfg.Source.Type)

	run := &generationRun{manager: m, runID: runID, logger: logger}
	result, genErr := run.execute(ctx)

	if genErr != nil {
		otel.RecordError(span, genErr)
		logger.Error("Generation failed", "stage", genErr.Stage, "error", genErr.Message)
		run.saveFailure(ctx, genErr)
		m.metrics.RecordRun(ctx, m.now().Sub(start), false, false)
		return nil, genErr
	}

	span.SetAttributes(
		otel.AttrServiceCount.Int(result.ServiceCount),
		otel.AttrProviderCount.Int(result.ProviderCount),
		otel.AttrWritten.Bool(result.Written),
	)
	m.metrics.RecordRun(ctx, m.now().Sub(start), true, result.Written)
	m.metrics.RecordRegistrySize(ctx, result.ServiceCount, result.ProviderCount)

	counts := filtering.CountBySeverity(result.Diagnostics)
	logger.Info("Generation completed",
		"artifact", result.ArtifactPath,
		"written", result.Written,
		"services", result.ServiceCount,
		"providers", result.ProviderCount,
		"warnings", counts[filtering.SeverityWarning],
		"skipped", counts[filtering.SeverityInfo],
		"hash", shortHash(result.Hash))

	return result, nil
}

// generationRun holds the state of a single Generate call
type generationRun struct {
	manager *defaultManager
	runID   string
	logger  *slog.Logger

	// statusPath is known once packages were fetched
	statusPath string
}

func (r *generationRun) execute(ctx context.Context) (*Result, *Error) {
	m := r.manager

	fetched, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	r.statusPath = m.statusPath(fetched)
	r.markGenerating(ctx)

	filtered, err := r.filterPackages(ctx, fetched)
	if err != nil {
		return nil, err
	}

	_, aggSpan := otel.StartSpan(ctx, m.tracer, "sync.aggregate",
		trace.WithAttributes(otel.AttrPackageCount.Int(len(filtered.Packages)+1)))
	mapping := registry.Aggregate(filtered.Root, filtered.Packages)
	aggSpan.SetAttributes(otel.AttrServiceCount.Int(mapping.Len()))
	aggSpan.End()

	clean, diagnostics, err := r.applyAvailability(ctx, filtered, mapping)
	if err != nil {
		return nil, err
	}

	outputPath := m.outputPath(filtered)
	data, err := r.render(ctx, clean)
	if err != nil {
		return nil, err
	}

	written, err := r.write(ctx, outputPath, data)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:         r.runID,
		Hash:          fetched.Hash,
		ArtifactPath:  outputPath,
		Written:       written,
		ServiceCount:  clean.Len(),
		ProviderCount: clean.ProviderCount(),
		Diagnostics:   diagnostics,
	}

	if err := r.saveSuccess(ctx, result, data); err != nil {
		return nil, err
	}
	return result, nil
}

// fetch handles source handler creation, validation and fetch
func (r *generationRun) fetch(ctx context.Context) (*sources.FetchResult, *Error) {
	m := r.manager
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.fetch")
	defer span.End()

	handler, err := m.sourceHandlerFactory.CreateHandler(m.cfg.Source.Type)
	if err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to create source handler: %v", err),
			Stage:   StageFetch,
			Reason:  reasonHandlerCreationFailed,
		}
	}

	if err := handler.Validate(&m.cfg.Source); err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Source validation failed: %v", err),
			Stage:   StageFetch,
			Reason:  reasonValidationFailed,
		}
	}

	result, err := handler.FetchPackages(ctx, m.cfg)
	if err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Fetch failed: %v", err),
			Stage:   StageFetch,
			Reason:  reasonFetchFailed,
		}
	}

	span.SetAttributes(otel.AttrPackageCount.Int(len(result.Packages) + 1))
	r.logger.Info("Package metadata read",
		"root", result.Root.Identity(),
		"packages", len(result.Packages),
		"declarations", result.DeclarationCount(),
		"hash", shortHash(result.Hash))

	return result, nil
}

// filterPackages drops dependency packages excluded by the configured filters
func (r *generationRun) filterPackages(ctx context.Context, fetched *sources.FetchResult) (*sources.FetchResult, *Error) {
	m := r.manager
	if m.cfg.Filter == nil {
		return fetched, nil
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.filter")
	defer span.End()

	filtered, err := m.packageFilter.ApplyFilters(ctx, fetched, m.cfg.Filter)
	if err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Filtering failed: %v", err),
			Stage:   StageFilter,
			Reason:  reasonFilterFailed,
		}
	}

	r.logger.Info("Package filtering completed",
		"original_packages", len(fetched.Packages),
		"filtered_packages", len(filtered.Packages))
	return filtered, nil
}

// applyAvailability runs the availability filter inside a resolution context.
// The context is released before returning on every path.
func (r *generationRun) applyAvailability(
	ctx context.Context, fetched *sources.FetchResult, mapping *registry.Mapping,
) (*registry.Mapping, []filtering.Diagnostic, *Error) {
	m := r.manager
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.resolve")
	defer span.End()

	env, closeEnv, err := m.openEnvironment(ctx, fetched, m.cfg.GetEnvironment())
	if err != nil {
		otel.RecordError(span, err)
		return nil, nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to open resolution context: %v", err),
			Stage:   StageResolve,
			Reason:  reasonResolveFailed,
		}
	}
	defer func() {
		if err := closeEnv(); err != nil {
			r.logger.Warn("Failed to release resolution context", "error", err)
		}
	}()

	reporter := filtering.ReporterFunc(func(ctx context.Context, d filtering.Diagnostic) {
		m.metrics.RecordDiagnostic(ctx, string(d.Severity))
		if m.reporter != nil {
			m.reporter.Report(ctx, d)
		}
	})
	clean, diagnostics := filtering.NewAvailabilityFilter(env, reporter).Apply(ctx, mapping)

	span.SetAttributes(
		otel.AttrServiceCount.Int(clean.Len()),
		otel.AttrProviderCount.Int(clean.ProviderCount()),
		attribute.Int("spigen.diagnostic.count", len(diagnostics)),
	)
	return clean, diagnostics, nil
}

func (r *generationRun) render(ctx context.Context, clean *registry.Mapping) ([]byte, *Error) {
	m := r.manager
	_, span := otel.StartSpan(ctx, m.tracer, "sync.render")
	defer span.End()

	data, err := generator.Render(clean,
		generator.WithNamespace(m.cfg.Output.Namespace),
		generator.WithClassName(m.cfg.Output.ClassName))
	if err != nil {
		otel.RecordError(span, err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Render failed: %v", err),
			Stage:   StageRender,
			Reason:  reasonRenderFailed,
		}
	}
	return data, nil
}

func (r *generationRun) write(ctx context.Context, path string, data []byte) (bool, *Error) {
	m := r.manager
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.write",
		trace.WithAttributes(otel.AttrOutputPath.String(path)))
	defer span.End()

	written, err := m.artifactWriter.WriteIfChanged(ctx, path, data)
	if err != nil {
		otel.RecordError(span, err)
		return false, &Error{
			Err:     err,
			Message: fmt.Sprintf("Write failed: %v", err),
			Stage:   StageWrite,
			Reason:  reasonWriteFailed,
		}
	}
	span.SetAttributes(otel.AttrWritten.Bool(written))
	return written, nil
}

func (r *generationRun) persistence() status.StatusPersistence {
	if r.manager.statusFactory == nil || r.statusPath == "" {
		return nil
	}
	return r.manager.statusFactory(r.statusPath)
}

// markGenerating records that a run is in progress. Failures are only logged.
func (r *generationRun) markGenerating(ctx context.Context) {
	p := r.persistence()
	if p == nil {
		return
	}

	st, err := p.LoadStatus(ctx)
	if err != nil {
		r.logger.Warn("Failed to load generation status", "error", err)
		st = &status.GenerationStatus{}
	}
	now := r.manager.now()
	st.Phase = status.GenerationPhaseGenerating
	st.Message = "Generation in progress"
	st.RunID = r.runID
	st.LastAttempt = &now
	if err := p.SaveStatus(ctx, st); err != nil {
		r.logger.Warn("Failed to save generation status", "error", err)
	}
}

func (r *generationRun) saveSuccess(ctx context.Context, result *Result, artifact []byte) *Error {
	m := r.manager
	p := r.persistence()
	if p == nil {
		return nil
	}

	settings, err := settingsHash(m.cfg)
	if err != nil {
		return &Error{Err: err, Message: err.Error(), Stage: StageStatus, Reason: reasonStatusFailed}
	}

	sum := sha256.Sum256(artifact)
	now := m.now()
	counts := filtering.CountBySeverity(result.Diagnostics)
	st := &status.GenerationStatus{
		Phase:              status.GenerationPhaseComplete,
		Message:            "Generation completed successfully",
		RunID:              r.runID,
		GeneratorVersion:   m.generatorVersion,
		LastAttempt:        &now,
		LastGenerationTime: &now,
		LastInputHash:      result.Hash,
		LastSettingsHash:   settings,
		ArtifactPath:       result.ArtifactPath,
		ArtifactHash:       hex.EncodeToString(sum[:]),
		Classmap:           []string{result.ArtifactPath},
		ServiceCount:       result.ServiceCount,
		ProviderCount:      result.ProviderCount,
		WarningCount:       counts[filtering.SeverityWarning],
		InfoCount:          counts[filtering.SeverityInfo],
	}

	if err := p.SaveStatus(ctx, st); err != nil {
		return &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to save generation status: %v", err),
			Stage:   StageStatus,
			Reason:  reasonStatusFailed,
		}
	}
	return nil
}

// saveFailure records a failed run. The previous artifact information is kept.
func (r *generationRun) saveFailure(ctx context.Context, genErr *Error) {
	p := r.persistence()
	if p == nil {
		return
	}

	st, err := p.LoadStatus(ctx)
	if err != nil {
		st = &status.GenerationStatus{}
	}
	now := r.manager.now()
	st.Phase = status.GenerationPhaseFailed
	st.Message = genErr.Message
	st.RunID = r.runID
	st.LastAttempt = &now
	st.AttemptCount++
	if err := p.SaveStatus(ctx, st); err != nil {
		r.logger.Error("Error updating generation status", "error", err)
	}
}

// Uninstall removes the generated artifact and its status
func (m *defaultManager) Uninstall(ctx context.Context) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.Uninstall")
	defer span.End()

	handler, err := m.sourceHandlerFactory.CreateHandler(m.cfg.Source.Type)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to create source handler: %w", err)
	}
	fetched, err := handler.FetchPackages(ctx, m.cfg)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to read package metadata: %w", err)
	}

	outputPath := m.outputPath(fetched)
	removed, err := m.artifactWriter.Remove(ctx, outputPath)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to remove artifact: %w", err)
	}

	if m.statusFactory != nil {
		if err := m.statusFactory(m.statusPath(fetched)).DeleteStatus(ctx); err != nil {
			otel.RecordError(span, err)
			return fmt.Errorf("failed to remove generation status: %w", err)
		}
	}

	slog.Info("Uninstalled generated artifact", "path", outputPath, "removed", removed)
	return nil
}

// WatchPaths returns the source files of the configured handler
func (m *defaultManager) WatchPaths() ([]string, error) {
	handler, err := m.sourceHandlerFactory.CreateHandler(m.cfg.Source.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to create source handler: %w", err)
	}
	return handler.WatchPaths(m.cfg)
}

// outputPath returns the configured artifact path or the default inside the vendor dir
func (m *defaultManager) outputPath(fetched *sources.FetchResult) string {
	if m.cfg.Output.Path != "" {
		return m.cfg.ResolvePath(m.cfg.Output.Path)
	}
	className := m.cfg.Output.ClassName
	if className == "" {
		className = config.DefaultClassName
	}
	return filepath.Join(fetched.VendorDir, "composer", className+".php")
}

// statusPath returns the configured status path or the default inside the vendor dir
func (m *defaultManager) statusPath(fetched *sources.FetchResult) string {
	if m.cfg.Output.StatusFile != "" {
		return m.cfg.ResolvePath(m.cfg.Output.StatusFile)
	}
	return filepath.Join(fetched.VendorDir, "composer", config.DefaultStatusFileName)
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
