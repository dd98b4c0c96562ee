package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/index"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

func newTestStore() *Store {
	return New(index.NewFlat(distance.Euclidean))
}

func TestStoreInsertAndGet(t *testing.T) {
	s := newTestStore()
	v := vector.New([]float32{1, 2, 3})
	require.NoError(t, s.Insert("v1", v))

	got, ok := s.Get("v1")
	require.True(t, ok)
	assert.True(t, v.Equal(got))
}

func TestStoreDimensionConsistency(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Insert("v1", vector.New([]float32{1, 2, 3})))

	err := s.Insert("v2", vector.New([]float32{1, 2}))
	require.Error(t, err)
	kind, ok := vdberrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vdberrors.DimensionMismatch, kind)
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore()
	v := vector.New([]float32{1, 2, 3})
	require.NoError(t, s.Insert("v1", v))

	deleted, err := s.Delete("v1")
	require.NoError(t, err)
	assert.True(t, v.Equal(deleted))

	_, ok := s.Get("v1")
	assert.False(t, ok)
}

func TestStoreDeleteNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.Delete("missing")
	require.Error(t, err)
	kind, ok := vdberrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vdberrors.VectorNotFound, kind)
}

func TestStoreSearch(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Insert("v1", vector.New([]float32{1, 0, 0})))
	require.NoError(t, s.Insert("v2", vector.New([]float32{0, 1, 0})))
	require.NoError(t, s.Insert("v3", vector.New([]float32{1, 1, 0})))

	results, err := s.Search(vector.New([]float32{1, 0, 0}), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].ID)
	assert.Less(t, results[0].Distance, float32(1e-6))
}

func TestStoreSearchEmptyStore(t *testing.T) {
	s := newTestStore()
	results, err := s.Search(vector.New([]float32{1, 2, 3}), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreReinsertSemantics(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Insert("v1", vector.New([]float32{1, 0})))
	require.NoError(t, s.Insert("v1", vector.New([]float32{0, 1})))

	results, err := s.Search(vector.New([]float32{0, 1}), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
	assert.Less(t, results[0].Distance, float32(1e-6))
	assert.Equal(t, 1, s.Len())
}

func TestStoreMetadataFilter(t *testing.T) {
	s := newTestStore()
	var redMeta, blueMeta Metadata
	redMeta = NewMetadata()
	redMeta.Insert("color", "red")
	blueMeta = NewMetadata()
	blueMeta.Insert("color", "blue")

	require.NoError(t, s.InsertWithMetadata("v1", vector.New([]float32{1, 0, 0}), redMeta))
	require.NoError(t, s.InsertWithMetadata("v2", vector.New([]float32{0.9, 0.1, 0}), blueMeta))

	results, err := s.SearchWithFilter(vector.New([]float32{1, 0, 0}), 10, Eq{Field: "color", Value: "red"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestStoreBasicRoundTrip(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Insert("v1", vector.New([]float32{1, 0, 0})))
	require.NoError(t, s.Insert("v2", vector.New([]float32{0, 1, 0})))
	require.NoError(t, s.Insert("v3", vector.New([]float32{0, 0, 1})))

	results, err := s.Search(vector.New([]float32{1, 0.1, 0}), 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "v1", results[0].ID)
	assert.InDelta(t, 0.1, results[0].Distance, 1e-5)
}

func TestStoreInsertBatchHaltsOnError(t *testing.T) {
	s := newTestStore()
	ids := []string{"a", "b", "c"}
	vecs := []vector.Vector{
		vector.New([]float32{1, 2}),
		vector.New([]float32{1, 2, 3}), // dimension mismatch
		vector.New([]float32{1, 2}),
	}
	err := s.InsertBatch(ids, vecs)
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("a")
	assert.True(t, ok)
}

func TestFilterAndOr(t *testing.T) {
	m := NewMetadata()
	m.Insert("color", "red")
	m.Insert("size", "large")

	assert.True(t, And{Children: []Filter{Eq{"color", "red"}, Exists{"size"}}}.Matches(m))
	assert.False(t, And{Children: []Filter{Eq{"color", "blue"}}}.Matches(m))
	assert.True(t, Or{Children: []Filter{Eq{"color", "blue"}, Eq{"size", "large"}}}.Matches(m))
	assert.False(t, Or{}.Matches(m))
	assert.True(t, And{}.Matches(m))
	assert.True(t, Ne{"color", "blue"}.Matches(m))
}
