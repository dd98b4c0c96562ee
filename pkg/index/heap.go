package index

import "container/heap"

// neighbor pairs an internal id with its distance to some query, tie-broken
// by id for a deterministic ordering when distances collide.
type neighbor struct {
	id   uint64
	dist float32
}

func less(a, b neighbor) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.id < b.id
}

// minHeap pops the closest neighbor first; used to drive the SEARCH-LAYER
// candidate frontier.
type minHeap []neighbor

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(neighbor)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxHeap pops the furthest neighbor first; used to bound the SEARCH-LAYER
// result set to ef entries.
type maxHeap []neighbor

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return less(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(neighbor)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// sortedFromMaxHeap drains a maxHeap into ascending-distance order. It
// consumes h: the heap is empty when it returns.
func sortedFromMaxHeap(h *maxHeap) []neighbor {
	out := make([]neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(neighbor)
	}
	return out
}
