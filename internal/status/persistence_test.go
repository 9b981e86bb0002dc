package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	statusPath := filepath.Join(t.TempDir(), "vendor", "composer", "spigen-status.json")
	persistence := NewFileStatusPersistence(statusPath)
	require.NotNil(t, persistence)

	now := time.Now()
	testStatus := &GenerationStatus{
		Phase:              GenerationPhaseComplete,
		Message:            "Generation completed",
		RunID:              "8d0c7f52-3e61-4b0a-9a0e-3f3f0f5d3c11",
		LastAttempt:        &now,
		LastGenerationTime: &now,
		LastInputHash:      "abc123",
		ArtifactPath:       "/project/vendor/composer/GeneratedServiceProviderData.php",
		Classmap:           []string{"/project/vendor/composer/GeneratedServiceProviderData.php"},
		ServiceCount:       2,
		ProviderCount:      3,
		WarningCount:       1,
	}

	ctx := context.Background()
	require.NoError(t, persistence.SaveStatus(ctx, testStatus))
	assert.FileExists(t, statusPath)

	loaded, err := persistence.LoadStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, testStatus.Phase, loaded.Phase)
	assert.Equal(t, testStatus.RunID, loaded.RunID)
	assert.Equal(t, testStatus.LastInputHash, loaded.LastInputHash)
	assert.Equal(t, testStatus.Classmap, loaded.Classmap)
	assert.Equal(t, 3, loaded.ProviderCount)
	assert.True(t, loaded.IsComplete())
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(filepath.Join(t.TempDir(), "missing.json"))

	loaded, err := persistence.LoadStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, GenerationPhase(""), loaded.Phase)
	assert.False(t, loaded.IsComplete())
}

func TestFileStatusPersistence_LoadCorrupt(t *testing.T) {
	t.Parallel()

	statusPath := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, os.WriteFile(statusPath, []byte("{not json"), 0600))

	_, err := NewFileStatusPersistence(statusPath).LoadStatus(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal status data")
}

func TestFileStatusPersistence_AtomicWrite(t *testing.T) {
	t.Parallel()

	statusPath := filepath.Join(t.TempDir(), "status.json")
	persistence := NewFileStatusPersistence(statusPath)

	ctx := context.Background()
	require.NoError(t, persistence.SaveStatus(ctx, &GenerationStatus{Phase: GenerationPhaseGenerating}))
	require.NoError(t, persistence.SaveStatus(ctx, &GenerationStatus{Phase: GenerationPhaseFailed, AttemptCount: 1}))

	_, err := os.Stat(statusPath + ".tmp")
	assert.True(t, os.IsNotExist(err), "Temporary file should not exist after save")

	loaded, err := persistence.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenerationPhaseFailed, loaded.Phase)
	assert.Equal(t, 1, loaded.AttemptCount)

	assert.Error(t, persistence.SaveStatus(ctx, nil))
}

func TestFileStatusPersistence_DeleteStatus(t *testing.T) {
	t.Parallel()

	statusPath := filepath.Join(t.TempDir(), "status.json")
	persistence := NewFileStatusPersistence(statusPath)
	ctx := context.Background()

	require.NoError(t, persistence.DeleteStatus(ctx), "deleting a missing status is not an error")

	require.NoError(t, persistence.SaveStatus(ctx, &GenerationStatus{Phase: GenerationPhaseComplete}))
	require.NoError(t, persistence.DeleteStatus(ctx))
	assert.NoFileExists(t, statusPath)
}
