package index

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// HNSWParams configures the HNSW graph index.
type HNSWParams struct {
	// M is the max number of connections per node at layers above 0.
	M int
	// MMax0 is the max number of connections at layer 0, typically 2*M.
	MMax0 int
	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int
	// EfSearch is the default candidate list size used while searching.
	EfSearch int
	// Ml is the level generation factor, 1/ln(M).
	Ml float64
	// MaxLayers caps the number of layers a node's random level can reach.
	MaxLayers int
}

// DefaultHNSWParams returns the conventional HNSW defaults (M=16).
func DefaultHNSWParams() HNSWParams {
	m := 16
	return HNSWParams{
		M:              m,
		MMax0:          2 * m,
		EfConstruction: 200,
		EfSearch:       50,
		Ml:             1.0 / math.Log(float64(m)),
		MaxLayers:      16,
	}
}

// NewHNSWParams builds params from the three knobs an operator tunes most,
// deriving MMax0 and Ml the conventional way.
func NewHNSWParams(m, efConstruction, efSearch int) HNSWParams {
	return HNSWParams{
		M:              m,
		MMax0:          2 * m,
		EfConstruction: efConstruction,
		EfSearch:       efSearch,
		Ml:             1.0 / math.Log(float64(m)),
		MaxLayers:      16,
	}
}

// hnswNode is one slot in the graph's arena. A nil slot in HNSWIndex.nodes
// means the internal id was either never inserted or has been removed.
type hnswNode struct {
	vector    vector.Vector
	neighbors [][]uint64 // neighbors[l] = neighbor ids at layer l
	level     int
}

// HNSWIndex is an approximate nearest-neighbor index backed by a
// Hierarchical Navigable Small World graph (Malkov & Yashunin). Nodes are
// stored in a slot table addressed by internal id so that deletion never
// invalidates other nodes' ids.
type HNSWIndex struct {
	mu         sync.RWMutex
	nodes      []*hnswNode
	entryPoint uint64
	hasEntry   bool
	maxLevel   int
	count      int
	dim        int
	params     HNSWParams
	metric     distance.Metric
	rng        *rand.Rand
}

// NewHNSW creates an empty HNSW index. rng may be nil, in which case a
// time-independent deterministic source seeded at construction is used;
// pass a caller-owned *rand.Rand for reproducible level assignment in
// tests.
func NewHNSW(metric distance.Metric, params HNSWParams, rng *rand.Rand) *HNSWIndex {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &HNSWIndex{
		params: params,
		metric: metric,
		rng:    rng,
	}
}

func (h *HNSWIndex) randomLevel() int {
	r := h.rng.Float64()
	level := int(math.Floor(-math.Log(r) * h.params.Ml))
	if level > h.params.MaxLayers-1 {
		level = h.params.MaxLayers - 1
	}
	return level
}

func (h *HNSWIndex) slot(id uint64) *hnswNode {
	if id >= uint64(len(h.nodes)) {
		return nil
	}
	return h.nodes[id]
}

func (h *HNSWIndex) distanceTo(query vector.Vector, id uint64) (float32, bool) {
	n := h.slot(id)
	if n == nil {
		return 0, false
	}
	d, err := h.metric.Distance(query, n.vector)
	if err != nil {
		return 0, false
	}
	return d, true
}

// searchLayer is Algorithm 2 from the HNSW paper: find the ef closest
// live nodes to query among the graph reachable from ep at the given
// layer, returned in ascending-distance order.
func (h *HNSWIndex) searchLayer(query vector.Vector, ep []uint64, ef, layer int) []neighbor {
	visited := make(map[uint64]bool, ef*2)
	candidates := &minHeap{}
	results := &maxHeap{}

	for _, id := range ep {
		d, ok := h.distanceTo(query, id)
		if !ok {
			continue
		}
		visited[id] = true
		heap.Push(candidates, neighbor{id: id, dist: d})
		heap.Push(results, neighbor{id: id, dist: d})
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(neighbor)

		furthest := float32(math.MaxFloat32)
		if results.Len() > 0 {
			furthest = (*results)[0].dist
		}
		if c.dist > furthest && results.Len() >= ef {
			break
		}

		node := h.slot(c.id)
		if node == nil || layer >= len(node.neighbors) {
			continue
		}
		for _, nid := range node.neighbors[layer] {
			if visited[nid] {
				continue
			}
			visited[nid] = true

			d, ok := h.distanceTo(query, nid)
			if !ok {
				continue
			}
			furthest := float32(math.MaxFloat32)
			if results.Len() > 0 {
				furthest = (*results)[0].dist
			}
			if results.Len() < ef || d < furthest {
				heap.Push(candidates, neighbor{id: nid, dist: d})
				heap.Push(results, neighbor{id: nid, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	return sortedFromMaxHeap(results)
}

// selectNeighborsSimple is Algorithm 3 (simple selection): take the m
// closest candidates, which are already sorted ascending by searchLayer.
func selectNeighborsSimple(candidates []neighbor, m int) []uint64 {
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]uint64, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// pruneNeighbors re-scores nodeID's neighbor list at layer down to at most
// m entries, keeping the closest.
func (h *HNSWIndex) pruneNeighbors(nodeID uint64, layer, m int) {
	node := h.slot(nodeID)
	if node == nil || layer >= len(node.neighbors) {
		return
	}
	ids := node.neighbors[layer]
	scored := make([]neighbor, 0, len(ids))
	for _, nid := range ids {
		d, ok := h.distanceTo(node.vector, nid)
		if !ok {
			continue
		}
		scored = append(scored, neighbor{id: nid, dist: d})
	}
	sort.Slice(scored, func(i, j int) bool { return less(scored[i], scored[j]) })
	if len(scored) > m {
		scored = scored[:m]
	}
	pruned := make([]uint64, len(scored))
	for i, s := range scored {
		pruned[i] = s.id
	}
	node.neighbors[layer] = pruned
}

// Add is Algorithm 1 from the HNSW paper (INSERT).
func (h *HNSWIndex) Add(id uint64, vec vector.Vector) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dim == 0 {
		h.dim = vec.Dimension()
	} else if vec.Dimension() != h.dim {
		return vdberrors.DimMismatch(h.dim, vec.Dimension())
	}

	level := h.randomLevel()

	if id >= uint64(len(h.nodes)) {
		grown := make([]*hnswNode, id+1)
		copy(grown, h.nodes)
		h.nodes = grown
	}

	node := &hnswNode{
		vector:    vec,
		neighbors: make([][]uint64, level+1),
		level:     level,
	}
	if h.nodes[id] == nil {
		h.count++
	}
	h.nodes[id] = node

	if !h.hasEntry {
		h.entryPoint = id
		h.hasEntry = true
		h.maxLevel = level
		return nil
	}

	epID := h.entryPoint
	currentMaxLevel := h.maxLevel

	// Phase 1: greedy descent from the top layer down to level+1, ef=1.
	if currentMaxLevel > level {
		for l := currentMaxLevel; l > level; l-- {
			nearest := h.searchLayer(vec, []uint64{epID}, 1, l)
			if len(nearest) > 0 {
				epID = nearest[0].id
			}
		}
	}

	// Phase 2: linked insertion from min(level, currentMaxLevel) down to 0.
	insertFrom := level
	if currentMaxLevel < insertFrom {
		insertFrom = currentMaxLevel
	}
	for l := insertFrom; l >= 0; l-- {
		m := h.params.M
		if l == 0 {
			m = h.params.MMax0
		}

		nearest := h.searchLayer(vec, []uint64{epID}, h.params.EfConstruction, l)
		neighbors := selectNeighborsSimple(nearest, m)
		node.neighbors[l] = neighbors

		for _, nid := range neighbors {
			neighborNode := h.slot(nid)
			if neighborNode == nil || l >= len(neighborNode.neighbors) {
				continue
			}
			neighborNode.neighbors[l] = append(neighborNode.neighbors[l], id)
			if len(neighborNode.neighbors[l]) > m {
				h.pruneNeighbors(nid, l, m)
			}
		}

		if len(nearest) > 0 {
			epID = nearest[0].id
		}
	}

	if level > h.maxLevel {
		h.entryPoint = id
		h.maxLevel = level
	}

	return nil
}

// Remove performs lazy deletion: the node's id is stripped from every
// neighbor's adjacency list, its slot is cleared, and the entry point is
// recomputed if necessary.
func (h *HNSWIndex) Remove(id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	node := h.slot(id)
	if node == nil {
		return nil
	}

	for layer, neighbors := range node.neighbors {
		for _, nid := range neighbors {
			neighborNode := h.slot(nid)
			if neighborNode == nil || layer >= len(neighborNode.neighbors) {
				continue
			}
			kept := neighborNode.neighbors[layer][:0]
			for _, x := range neighborNode.neighbors[layer] {
				if x != id {
					kept = append(kept, x)
				}
			}
			neighborNode.neighbors[layer] = kept
		}
	}

	h.nodes[id] = nil
	h.count--

	if h.hasEntry && h.entryPoint == id {
		h.hasEntry = false
		h.maxLevel = 0
		for nid, n := range h.nodes {
			if n == nil {
				continue
			}
			if !h.hasEntry || n.level > h.maxLevel {
				h.entryPoint = uint64(nid)
				h.maxLevel = n.level
				h.hasEntry = true
			}
		}
	}

	return nil
}

// Search is Algorithm 5 from the HNSW paper, using the index's default ef.
func (h *HNSWIndex) Search(query vector.Vector, k int) ([]Candidate, error) {
	return h.SearchWithEf(query, k, h.params.EfSearch)
}

// SearchWithEf runs SEARCH with a caller-supplied ef, for runtime recall
// tuning without rebuilding the graph.
func (h *HNSWIndex) SearchWithEf(query vector.Vector, k, ef int) ([]Candidate, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntry {
		return []Candidate{}, nil
	}
	if query.Dimension() != h.dim {
		return nil, vdberrors.DimMismatch(h.dim, query.Dimension())
	}

	epID := h.entryPoint
	for l := h.maxLevel; l > 0; l-- {
		nearest := h.searchLayer(query, []uint64{epID}, 1, l)
		if len(nearest) > 0 {
			epID = nearest[0].id
		}
	}

	efActual := ef
	if k > efActual {
		efActual = k
	}
	results := h.searchLayer(query, []uint64{epID}, efActual, 0)
	if len(results) > k {
		results = results[:k]
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{ID: r.id, Distance: r.dist}
	}
	return out, nil
}

func (h *HNSWIndex) GetVector(id uint64) (vector.Vector, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.slot(id)
	if n == nil {
		return vector.Vector{}, false
	}
	return n.vector, true
}

func (h *HNSWIndex) Metric() distance.Metric {
	return h.metric
}

func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *HNSWIndex) Dimension() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}

var _ Index = (*HNSWIndex)(nil)
