package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileArtifactWriter_WriteIfChanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vendor", "composer", "GeneratedServiceProviderData.php")
	w := NewFileArtifactWriter()

	written, err := w.WriteIfChanged(ctx, path, []byte("first"))
	require.NoError(t, err)
	assert.True(t, written, "missing file is written")

	info, err := os.Stat(path)
	require.NoError(t, err)
	modTime := info.ModTime()

	written, err = w.WriteIfChanged(ctx, path, []byte("first"))
	require.NoError(t, err)
	assert.False(t, written, "identical content is not rewritten")

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, modTime, info.ModTime())

	written, err = w.WriteIfChanged(ctx, path, []byte("second"))
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFileArtifactWriter_EmptyContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.php")
	w := NewFileArtifactWriter()

	written, err := w.WriteIfChanged(ctx, path, []byte{})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = w.WriteIfChanged(ctx, path, nil)
	require.NoError(t, err)
	assert.False(t, written)
}

func TestFileArtifactWriter_ReadError(t *testing.T) {
	t.Parallel()

	// A directory at the artifact path cannot be read as a file
	path := t.TempDir()
	_, err := NewFileArtifactWriter().WriteIfChanged(context.Background(), path, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read existing artifact")
}

func TestFileArtifactWriter_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "artifact.php")
	w := NewFileArtifactWriter()

	removed, err := w.Remove(ctx, path)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	removed, err = w.Remove(ctx, path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, path)
}

func TestCheckArtifactWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "artifact.php")
	w := NewCheckArtifactWriter()

	stale, err := w.WriteIfChanged(ctx, path, []byte("content"))
	require.NoError(t, err)
	assert.True(t, stale)
	assert.NoFileExists(t, path, "check mode never writes")

	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))
	stale, err = w.WriteIfChanged(ctx, path, []byte("content"))
	require.NoError(t, err)
	assert.False(t, stale)

	exists, err := w.Remove(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.FileExists(t, path, "check mode never removes")
}

func TestNewArtifactWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     string
		expected ArtifactWriter
		wantErr  bool
	}{
		{mode: "", expected: &fileArtifactWriter{}},
		{mode: ModeWrite, expected: &fileArtifactWriter{}},
		{mode: ModeCheck, expected: &checkArtifactWriter{}},
		{mode: "s3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			t.Parallel()

			w, err := NewArtifactWriter(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported writer mode")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expected, w)
		})
	}
}
