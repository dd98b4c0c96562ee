// Package store maps user-facing string identifiers onto the dense
// internal ids an Index expects, and layers metadata and filtered search
// on top of the index abstraction.
package store

import (
	"sync"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/index"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// Result is one row of a search response, already translated back to the
// caller's string id space.
type Result struct {
	ID       string
	Distance float32
}

// overfetchFactor is the multiple of k fetched from the index before
// post-filtering by metadata. See Store.SearchWithFilter.
const overfetchFactor = 3

// Store owns the string id ↔ internal id translation, per-id metadata, and
// a single Index instance. All exported methods are safe for concurrent
// use; Store serializes its own access with one reader/writer lock held
// around every call into the index (the bundled index implementations
// also carry a lock of their own).
type Store struct {
	mu sync.RWMutex

	idx      index.Index
	forward  map[string]uint64
	reverse  map[uint64]string
	metadata map[uint64]Metadata
	nextID   uint64
	dim      int
	dimSet   bool
	metric   distance.Metric
}

// New creates an empty store backed by idx.
func New(idx index.Index) *Store {
	return &Store{
		idx:      idx,
		forward:  make(map[string]uint64),
		reverse:  make(map[uint64]string),
		metadata: make(map[uint64]Metadata),
		metric:   idx.Metric(),
	}
}

// Insert stores vec under stringID with no metadata.
func (s *Store) Insert(stringID string, vec vector.Vector) error {
	return s.InsertWithMetadata(stringID, vec, NewMetadata())
}

// InsertWithMetadata stores vec and metadata under stringID. If stringID
// already exists, the prior internal id is fully deleted first (the
// Store's idempotent-overwrite semantics); the new insert is either fully
// applied or, on index failure, not applied at all.
func (s *Store) InsertWithMetadata(stringID string, vec vector.Vector, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := vec.Dimension()
	if !s.dimSet {
		s.dim = dim
		s.dimSet = true
	} else if dim != s.dim {
		return vdberrors.DimMismatch(s.dim, dim)
	}

	if prevID, ok := s.forward[stringID]; ok {
		s.removeLocked(stringID, prevID)
	}

	id := s.nextID
	if err := s.idx.Add(id, vec); err != nil {
		return err
	}
	s.nextID++

	s.forward[stringID] = id
	s.reverse[id] = stringID
	s.metadata[id] = meta

	return nil
}

// removeLocked drops all three map entries for stringID/id and removes the
// node from the index. Caller must hold the write lock.
func (s *Store) removeLocked(stringID string, id uint64) {
	delete(s.forward, stringID)
	delete(s.reverse, id)
	delete(s.metadata, id)
	_ = s.idx.Remove(id)
}

// Delete removes stringID and returns the vector it held.
func (s *Store) Delete(stringID string) (vector.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.forward[stringID]
	if !ok {
		return vector.Vector{}, vdberrors.NotFound(stringID)
	}

	vec, _ := s.idx.GetVector(id)
	s.removeLocked(stringID, id)
	return vec, nil
}

// Get returns the vector stored under stringID.
func (s *Store) Get(stringID string) (vector.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.forward[stringID]
	if !ok {
		return vector.Vector{}, false
	}
	return s.idx.GetVector(id)
}

// GetMetadata returns the metadata stored under stringID.
func (s *Store) GetMetadata(stringID string) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.forward[stringID]
	if !ok {
		return Metadata{}, false
	}
	m, ok := s.metadata[id]
	return m, ok
}

// Len returns the number of live string ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forward)
}

// ListIDs returns every live string id, in no particular order.
func (s *Store) ListIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.forward))
	for id := range s.forward {
		out = append(out, id)
	}
	return out
}

// Dimension returns the committed dimension and whether it has been set.
func (s *Store) Dimension() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim, s.dimSet
}

// Search returns up to k nearest neighbors of query, translated to string
// ids and sorted ascending by distance.
func (s *Store) Search(query vector.Vector, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchLocked(query, k)
}

func (s *Store) searchLocked(query vector.Vector, k int) ([]Result, error) {
	if len(s.forward) == 0 {
		return []Result{}, nil
	}
	if s.dimSet && query.Dimension() != s.dim {
		return nil, vdberrors.DimMismatch(s.dim, query.Dimension())
	}

	candidates, err := s.idx.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		stringID, ok := s.reverse[c.ID]
		if !ok {
			continue
		}
		results = append(results, Result{ID: stringID, Distance: c.Distance})
	}
	return results, nil
}

// SearchWithFilter over-fetches 3k candidates from the index and returns,
// in order, the first k whose metadata satisfies filter. A low-match-rate
// filter may return fewer than k results even when k matches exist in the
// store; this is the documented limitation of post-filtering.
func (s *Store) SearchWithFilter(query vector.Vector, k int, filter Filter) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.forward) == 0 {
		return []Result{}, nil
	}
	if s.dimSet && query.Dimension() != s.dim {
		return nil, vdberrors.DimMismatch(s.dim, query.Dimension())
	}

	fetch := overfetchFactor * k
	if fetch > len(s.forward) {
		fetch = len(s.forward)
	}

	candidates, err := s.idx.Search(query, fetch)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, k)
	for _, c := range candidates {
		if len(results) >= k {
			break
		}
		stringID, ok := s.reverse[c.ID]
		if !ok {
			continue
		}
		meta := s.metadata[c.ID]
		if !filter.Matches(meta) {
			continue
		}
		results = append(results, Result{ID: stringID, Distance: c.Distance})
	}
	return results, nil
}

// InsertBatch applies Insert to each pair in order, halting on the first
// error. Earlier successful inserts remain committed; there is no
// rollback.
func (s *Store) InsertBatch(ids []string, vecs []vector.Vector) error {
	for i := range ids {
		if err := s.Insert(ids[i], vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

// SearchBatch applies Search to each query independently.
func (s *Store) SearchBatch(queries []vector.Vector, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := s.Search(q, k)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// SearchBatchWithFilter applies SearchWithFilter to each query
// independently.
func (s *Store) SearchBatchWithFilter(queries []vector.Vector, k int, filter Filter) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		r, err := s.SearchWithFilter(q, k, filter)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Metric returns the distance metric of the underlying index.
func (s *Store) Metric() distance.Metric {
	return s.metric
}

// Entry is one live record, used by the persistence engine to build a
// snapshot without reaching into Store internals.
type Entry struct {
	ID       uint64
	StringID string
	Vector   vector.Vector
	Metadata Metadata
}

// LiveEntries returns every live record in the store, in no particular
// order.
func (s *Store) LiveEntries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.forward))
	for stringID, id := range s.forward {
		vec, _ := s.idx.GetVector(id)
		out = append(out, Entry{
			ID:       id,
			StringID: stringID,
			Vector:   vec,
			Metadata: s.metadata[id],
		})
	}
	return out
}

// NextID returns the next internal id that would be allocated.
func (s *Store) NextID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
