package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

func TestFlatIndexBasic(t *testing.T) {
	idx := NewFlat(distance.Euclidean)
	require.NoError(t, idx.Add(0, vector.New([]float32{1, 0, 0})))
	require.NoError(t, idx.Add(1, vector.New([]float32{0, 1, 0})))
	require.NoError(t, idx.Add(2, vector.New([]float32{1, 1, 0})))

	results, err := idx.Search(vector.New([]float32{1, 0, 0}), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(0), results[0].ID)
	assert.Less(t, results[0].Distance, float32(1e-6))
}

func TestFlatIndexGetVector(t *testing.T) {
	idx := NewFlat(distance.Euclidean)
	v := vector.New([]float32{1, 2, 3})
	require.NoError(t, idx.Add(0, v))

	got, ok := idx.GetVector(0)
	require.True(t, ok)
	assert.True(t, v.Equal(got))

	_, ok = idx.GetVector(99)
	assert.False(t, ok)
}

func TestFlatIndexRemove(t *testing.T) {
	idx := NewFlat(distance.Euclidean)
	require.NoError(t, idx.Add(0, vector.New([]float32{1, 0})))
	require.NoError(t, idx.Add(1, vector.New([]float32{0, 1})))
	assert.Equal(t, 2, idx.Len())

	require.NoError(t, idx.Remove(0))
	assert.Equal(t, 1, idx.Len())
}

func TestFlatIndexDimensionMismatch(t *testing.T) {
	idx := NewFlat(distance.Euclidean)
	require.NoError(t, idx.Add(0, vector.New([]float32{1, 2})))
	err := idx.Add(1, vector.New([]float32{1, 2, 3}))
	require.Error(t, err)
	kind, ok := vdberrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vdberrors.DimensionMismatch, kind)
}
