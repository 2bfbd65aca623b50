package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visarag/internal/domain"
)

func TestSnapshotRoundtrip(t *testing.T) {
	dir := t.TempDir()
	snap := &Snapshot{
		Version:   "v1",
		Dimension: 3,
		Vectors: [][]float64{
			{0.5, 0.25, 0.125},
			{1, 0, -1},
		},
		Documents: []domain.Document{
			{Content: "first", Country: "usa", Title: "A"},
			{Content: "second", Country: "uk", Line: 7},
		},
	}
	require.NoError(t, snap.Write(dir))

	loaded, err := LoadSnapshot(dir, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", loaded.Version)
	assert.Equal(t, 3, loaded.Dimension)
	require.Len(t, loaded.Vectors, 2)
	require.Len(t, loaded.Documents, 2)

	for i := range snap.Vectors {
		for j := range snap.Vectors[i] {
			assert.InDelta(t, snap.Vectors[i][j], loaded.Vectors[i][j], 1e-6)
		}
	}
	assert.Equal(t, snap.Documents, loaded.Documents)
}

func TestSnapshotWriteMisaligned(t *testing.T) {
	snap := &Snapshot{
		Version:   "v1",
		Dimension: 2,
		Vectors:   [][]float64{{1, 0}},
	}
	assert.Error(t, snap.Write(t.TempDir()))
}

func TestLoadSnapshotMissing(t *testing.T) {
	_, err := LoadSnapshot(t.TempDir(), "v1")
	assert.Error(t, err)
}
