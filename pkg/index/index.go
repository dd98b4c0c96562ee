// Package index defines the nearest-neighbor index abstraction and its two
// implementations: a brute-force flat index and an HNSW graph index.
package index

import (
	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/vector"
)

// Candidate is a single result from a nearest-neighbor search, keyed by
// internal id.
type Candidate struct {
	ID       uint64
	Distance float32
}

// Index is the contract shared by every nearest-neighbor index
// implementation: add, remove, and search by internal id, all under a
// single fixed dimension and distance metric.
type Index interface {
	// Add inserts vec under internal id. Adding an id that is already
	// present replaces its vector without changing Len.
	Add(id uint64, vec vector.Vector) error
	// Remove deletes id from the index. Removing an absent id is a no-op.
	Remove(id uint64) error
	// Search returns up to k nearest candidates to query, ordered by
	// ascending distance.
	Search(query vector.Vector, k int) ([]Candidate, error)
	// GetVector returns the vector stored under id, if present.
	GetVector(id uint64) (vector.Vector, bool)
	// Metric returns the distance metric this index was built with.
	Metric() distance.Metric
	// Len returns the number of live (non-deleted) entries.
	Len() int
	// Dimension returns the fixed vector dimension, or 0 if unset.
	Dimension() int
}
