package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visarag/internal/domain"
	"visarag/internal/logger"
)

func publishSnapshot(t *testing.T, root, version string) {
	t.Helper()
	snap := &Snapshot{
		Version:   version,
		Dimension: 2,
		Vectors:   [][]float64{{1, 0}},
		Documents: []domain.Document{{Content: "doc"}},
	}
	build := t.TempDir()
	require.NoError(t, snap.Write(build))

	store := NewStore(NewDirStore(root), logger.Nop())
	require.NoError(t, store.Upload(context.Background(), version, build))
}

func TestStoreFetchToLocal(t *testing.T) {
	root := t.TempDir()
	publishSnapshot(t, root, "v3")

	store := NewStore(NewDirStore(root), logger.Nop())
	ok, err := store.Exists(context.Background(), "v3")
	require.NoError(t, err)
	assert.True(t, ok)

	cache := t.TempDir()
	require.NoError(t, store.FetchToLocal(context.Background(), "v3", cache))
	assert.FileExists(t, filepath.Join(cache, ArtifactVectors))
	assert.FileExists(t, filepath.Join(cache, ArtifactDocuments))

	snap, err := LoadSnapshot(cache, "v3")
	require.NoError(t, err)
	assert.Len(t, snap.Documents, 1)
}

func TestStoreFetchMissingArtifact(t *testing.T) {
	root := t.TempDir()
	publishSnapshot(t, root, "v1")
	// Remove one artifact so the version is incomplete.
	require.NoError(t, os.Remove(filepath.Join(root, "v1", ArtifactDocuments)))

	store := NewStore(NewDirStore(root), logger.Nop())
	err := store.FetchToLocal(context.Background(), "v1", t.TempDir())
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ArtifactDocuments, fetchErr.Artifact)

	ok, err := store.Exists(context.Background(), "v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadyMarker(t *testing.T) {
	dir := t.TempDir()

	_, ok := ReadyVersion(dir)
	assert.False(t, ok)

	require.NoError(t, MarkReady(dir, "v2"))
	v, ok := ReadyVersion(dir)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, ClearReady(dir))
	_, ok = ReadyVersion(dir)
	assert.False(t, ok)

	// Clearing an already-clear marker is not an error.
	assert.NoError(t, ClearReady(dir))
}
