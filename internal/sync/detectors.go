package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/sources"
	"github.com/stacklok/spigen/internal/status"
	"github.com/stacklok/spigen/internal/versions"
)

// Reason explains a ShouldGenerate decision
type Reason int

// Generation reasons
const (
	ReasonUpToDate Reason = iota
	ReasonNeverGenerated
	ReasonPreviousFailed
	ReasonArtifactMissing
	ReasonGeneratorUpgraded
	ReasonSettingsChanged
	ReasonSourceDataChanged
	ReasonErrorCheckingChanges
)

var reasonNames = map[Reason]string{
	ReasonUpToDate:             "up-to-date",
	ReasonNeverGenerated:       "never-generated",
	ReasonPreviousFailed:       "previous-run-failed",
	ReasonArtifactMissing:      "artifact-missing",
	ReasonGeneratorUpgraded:    "generator-upgraded",
	ReasonSettingsChanged:      "settings-changed",
	ReasonSourceDataChanged:    "source-data-changed",
	ReasonErrorCheckingChanges: "error-checking-data-changes",
}

// String returns the reason code
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// ShouldGenerate reports whether the reason calls for a generation run
func (r Reason) ShouldGenerate() bool {
	return r != ReasonUpToDate
}

// DefaultDataChangeDetector implements DataChangeDetector
type DefaultDataChangeDetector struct {
	sourceHandlerFactory sources.SourceHandlerFactory
}

// IsDataChanged checks if source data has changed by comparing hashes
func (d *DefaultDataChangeDetector) IsDataChanged(
	ctx context.Context, cfg *config.Config, generationStatus *status.GenerationStatus,
) (bool, error) {
	var lastHash string
	if generationStatus != nil {
		lastHash = generationStatus.LastInputHash
	}

	// If we don't have a last hash, consider data changed
	if lastHash == "" {
		return true, nil
	}

	sourceHandler, err := d.sourceHandlerFactory.CreateHandler(cfg.Source.Type)
	if err != nil {
		return true, err
	}

	currentHash, err := sourceHandler.CurrentHash(ctx, cfg)
	if err != nil {
		return true, err
	}

	return currentHash != lastHash, nil
}

// ShouldGenerate determines whether a generation run is needed
func (m *defaultManager) ShouldGenerate(ctx context.Context) Reason {
	if m.statusFactory == nil {
		return ReasonNeverGenerated
	}

	handler, err := m.sourceHandlerFactory.CreateHandler(m.cfg.Source.Type)
	if err != nil {
		slog.Error("Failed to create source handler", "error", err)
		return ReasonErrorCheckingChanges
	}
	result, err := handler.FetchPackages(ctx, m.cfg)
	if err != nil {
		slog.Error("Failed to read package metadata", "error", err)
		return ReasonErrorCheckingChanges
	}

	st, err := m.statusFactory(m.statusPath(result)).LoadStatus(ctx)
	if err != nil {
		slog.Error("Failed to load generation status", "error", err)
		return ReasonErrorCheckingChanges
	}

	reason := m.reasonFor(ctx, st)
	slog.Debug("ShouldGenerate", "reason", reason.String(), "phase", st.Phase)
	return reason
}

func (m *defaultManager) reasonFor(ctx context.Context, st *status.GenerationStatus) Reason {
	switch {
	case st.Phase == "":
		return ReasonNeverGenerated
	case !st.IsComplete():
		return ReasonPreviousFailed
	}

	if st.ArtifactPath != "" {
		if _, err := os.Stat(st.ArtifactPath); errors.Is(err, os.ErrNotExist) {
			return ReasonArtifactMissing
		}
	}

	if st.GeneratorVersion != "" && versions.IsNewerVersion(m.generatorVersion, st.GeneratorVersion) {
		return ReasonGeneratorUpgraded
	}

	settings, err := settingsHash(m.cfg)
	if err != nil {
		slog.Error("Failed to hash settings", "error", err)
		return ReasonErrorCheckingChanges
	}
	if st.LastSettingsHash != "" && settings != st.LastSettingsHash {
		return ReasonSettingsChanged
	}

	changed, err := m.dataChangeDetector.IsDataChanged(ctx, m.cfg, st)
	if err != nil {
		slog.Error("Failed to determine if data has changed", "error", err)
		return ReasonErrorCheckingChanges
	}
	if changed {
		return ReasonSourceDataChanged
	}
	return ReasonUpToDate
}

// settingsHash hashes the configuration that affects the artifact besides package metadata
func settingsHash(cfg *config.Config) (string, error) {
	data, err := json.Marshal(struct {
		Filter      *config.FilterConfig      `json:"filter"`
		Environment *config.EnvironmentConfig `json:"environment"`
		Output      config.OutputConfig       `json:"output"`
	}{
		Filter:      cfg.Filter,
		Environment: cfg.Environment,
		Output:      cfg.Output,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
