package index

import (
	"sort"
	"sync"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// FlatIndex is a brute-force index: every search computes distance against
// every stored vector. Grounded on original_source's FlatIndex, it exists
// as the correctness baseline the HNSW index is measured against.
type FlatIndex struct {
	mu      sync.RWMutex
	vectors map[uint64]vector.Vector
	metric  distance.Metric
	dim     int
}

// NewFlat creates an empty flat index using the given distance metric.
func NewFlat(metric distance.Metric) *FlatIndex {
	return &FlatIndex{
		vectors: make(map[uint64]vector.Vector),
		metric:  metric,
	}
}

func (f *FlatIndex) Add(id uint64, vec vector.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dim == 0 {
		f.dim = vec.Dimension()
	} else if vec.Dimension() != f.dim {
		return vdberrors.DimMismatch(f.dim, vec.Dimension())
	}
	f.vectors[id] = vec
	return nil
}

func (f *FlatIndex) Remove(id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, id)
	return nil
}

func (f *FlatIndex) GetVector(id uint64) (vector.Vector, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.vectors[id]
	return v, ok
}

func (f *FlatIndex) Search(query vector.Vector, k int) ([]Candidate, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	results := make([]Candidate, 0, len(f.vectors))
	for id, vec := range f.vectors {
		d, err := f.metric.Distance(query, vec)
		if err != nil {
			return nil, err
		}
		results = append(results, Candidate{ID: id, Distance: d})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *FlatIndex) Metric() distance.Metric {
	return f.metric
}

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func (f *FlatIndex) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

var _ Index = (*FlatIndex)(nil)
