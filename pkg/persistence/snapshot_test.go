package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSnapshotManager(filepath.Join(dir, "db"))
	require.NoError(t, err)

	snap := Snapshot{
		Vectors: []SerializedVector{
			{InternalID: 0, StringID: "v1", Data: []float32{1, 2, 3}},
			{InternalID: 1, StringID: "v2", Data: []float32{4, 5, 6}},
		},
		NextID:       2,
		Dimension:    3,
		DimensionSet: true,
	}

	require.NoError(t, mgr.Save(snap))
	assert.True(t, mgr.Exists())

	loaded, ok, err := mgr.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, loaded.Vectors, 2)
	assert.Equal(t, uint64(2), loaded.NextID)
	assert.Equal(t, 3, loaded.Dimension)
	assert.True(t, loaded.DimensionSet)
	assert.Equal(t, "v1", loaded.Vectors[0].StringID)
	assert.Equal(t, []float32{4, 5, 6}, loaded.Vectors[1].Data)
}

func TestSnapshotLoadNonexistent(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSnapshotManager(filepath.Join(dir, "empty"))
	require.NoError(t, err)

	assert.False(t, mgr.Exists())
	_, ok, err := mgr.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
