package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.mp4")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestPutThenExists(t *testing.T) {
	store := NewStore(t.TempDir())
	artifact := writeArtifact(t, "encoded video")

	ok, err := store.Exists(context.Background(), "jobs/abc/output.mp4")
	require.NoError(t, err)
	assert.False(t, ok, "destination must be empty before Put")

	require.NoError(t, store.Put(context.Background(), artifact, "jobs/abc/output.mp4"))

	ok, err = store.Exists(context.Background(), "jobs/abc/output.mp4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPutCopiesContent(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)
	artifact := writeArtifact(t, "encoded video")

	require.NoError(t, store.Put(context.Background(), artifact, "out.mp4"))

	data, err := os.ReadFile(filepath.Join(base, "out.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "encoded video", string(data))
}

func TestPutLeavesNoPartialFileOnMissingSource(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)

	err := store.Put(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "out.mp4")
	assert.Error(t, err)

	ok, err := store.Exists(context.Background(), "out.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesExistingDestination(t *testing.T) {
	base := t.TempDir()
	store := NewStore(base)

	first := writeArtifact(t, "v1")
	second := writeArtifact(t, "v2")

	require.NoError(t, store.Put(context.Background(), first, "out.mp4"))
	require.NoError(t, store.Put(context.Background(), second, "out.mp4"))

	data, err := os.ReadFile(filepath.Join(base, "out.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestPutHonorsCancelledContext(t *testing.T) {
	store := NewStore(t.TempDir())
	artifact := writeArtifact(t, "encoded video")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, artifact, "out.mp4")
	assert.ErrorIs(t, err, context.Canceled)
}
