// Package status provides generation status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

// StatusPersistence defines the interface for generation status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the generation status
	SaveStatus(ctx context.Context, status *GenerationStatus) error

	// LoadStatus loads the generation status.
	// Returns an empty GenerationStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context) (*GenerationStatus, error)

	// DeleteStatus removes the persisted status
	DeleteStatus(ctx context.Context) error
}

// fileStatusPersistence implements StatusPersistence using a single JSON file
type fileStatusPersistence struct {
	filePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
// filePath is the status file; its directory is created on first save
func NewFileStatusPersistence(filePath string) StatusPersistence {
	return &fileStatusPersistence{
		filePath: filePath,
	}
}

// SaveStatus saves the generation status to the JSON file
func (f *fileStatusPersistence) SaveStatus(_ context.Context, status *GenerationStatus) error {
	if status == nil {
		return fmt.Errorf("status cannot be nil")
	}

	if err := os.MkdirAll(filepath.Dir(f.filePath), 0750); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	// Marshal status to JSON with pretty printing for readability
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := f.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, f.filePath); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file: %w", err)
	}

	return nil
}

// LoadStatus loads the generation status from the JSON file
// Returns an empty GenerationStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*GenerationStatus, error) {
	// #nosec G304 -- filePath comes from configuration
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist - this is OK for first run
			return &GenerationStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status GenerationStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data: %w", err)
	}

	return &status, nil
}

// DeleteStatus removes the status file
func (f *fileStatusPersistence) DeleteStatus(_ context.Context) error {
	if err := os.Remove(f.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete status file: %w", err)
	}
	return nil
}
