// Package writer publishes generated artifacts to the filesystem
package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_artifact_writer.go -package=mocks -source=writer.go ArtifactWriter

// ArtifactWriter persists generated artifacts
type ArtifactWriter interface {
	// WriteIfChanged stores data at path unless the existing content is identical.
	// It reports whether the content differed.
	WriteIfChanged(ctx context.Context, path string, data []byte) (bool, error)

	// Remove deletes the artifact at path. It reports whether a file was removed.
	Remove(ctx context.Context, path string) (bool, error)
}

// fileArtifactWriter writes artifacts atomically through a temporary file in
// the target directory followed by a rename
type fileArtifactWriter struct{}

// NewFileArtifactWriter creates a writer that publishes to the local filesystem
func NewFileArtifactWriter() ArtifactWriter {
	return &fileArtifactWriter{}
}

// WriteIfChanged writes data to path atomically when it differs from the current content
func (*fileArtifactWriter) WriteIfChanged(_ context.Context, path string, data []byte) (bool, error) {
	current, err := readExisting(path)
	if err != nil {
		return false, err
	}
	if current != nil && bytes.Equal(current, data) {
		slog.Debug("Artifact unchanged, skipping write", "path", path)
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return false, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	// Write to temporary file first for atomic operation
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create temporary artifact file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return false, fmt.Errorf("failed to write temporary artifact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return false, fmt.Errorf("failed to close temporary artifact file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		_ = os.Remove(tempPath)
		return false, fmt.Errorf("failed to set artifact permissions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return false, fmt.Errorf("failed to rename artifact file: %w", err)
	}

	slog.Debug("Artifact written", "path", path, "bytes", len(data))
	return true, nil
}

// Remove deletes the artifact file
func (*fileArtifactWriter) Remove(_ context.Context, path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, nothing to delete
			return false, nil
		}
		return false, fmt.Errorf("failed to delete artifact file: %w", err)
	}
	return true, nil
}

// checkArtifactWriter compares artifacts without touching the filesystem
type checkArtifactWriter struct{}

// NewCheckArtifactWriter creates a writer that only reports whether artifacts are stale
func NewCheckArtifactWriter() ArtifactWriter {
	return &checkArtifactWriter{}
}

// WriteIfChanged reports whether data differs from the content at path
func (*checkArtifactWriter) WriteIfChanged(_ context.Context, path string, data []byte) (bool, error) {
	current, err := readExisting(path)
	if err != nil {
		return false, err
	}
	stale := current == nil || !bytes.Equal(current, data)
	if stale {
		slog.Info("Artifact is out of date", "path", path)
	}
	return stale, nil
}

// Remove reports whether a file exists at path
func (*checkArtifactWriter) Remove(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat artifact file: %w", err)
	}
	return true, nil
}

// readExisting returns the content at path, or nil when there is no file
func readExisting(path string) ([]byte, error) {
	//nolint:gosec // Artifact path comes from configuration
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read existing artifact: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
