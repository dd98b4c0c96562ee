package index

import (
	"math/rand"
	"testing"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/vector"
)

func randomVectors(rng *rand.Rand, n, dim int) []vector.Vector {
	out := make([]vector.Vector, n)
	for i := range out {
		data := make([]float32, dim)
		for j := range data {
			data[j] = rng.Float32()
		}
		out[i] = vector.New(data)
	}
	return out
}

func recallAtK(flatResults, hnswResults []Candidate) float64 {
	groundTruth := make(map[uint64]bool, len(flatResults))
	for _, c := range flatResults {
		groundTruth[c.ID] = true
	}
	found := 0
	for _, c := range hnswResults {
		if groundTruth[c.ID] {
			found++
		}
	}
	return float64(found) / float64(len(flatResults))
}

// checkRecall builds a FlatIndex ground truth and an HNSWIndex over n random
// vectors, runs numQueries random queries against both, and asserts the
// average recall@k of HNSW against the flat baseline meets minRecall.
func checkRecall(t *testing.T, n, dim, k, numQueries int, minRecall float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	vectors := randomVectors(rng, n, dim)

	flat := NewFlat(distance.Euclidean)
	for i, v := range vectors {
		if err := flat.Add(uint64(i), v); err != nil {
			t.Fatalf("flat.Add(%d): %v", i, err)
		}
	}

	hnsw := NewHNSW(distance.Euclidean, NewHNSWParams(16, 200, 50), rand.New(rand.NewSource(7)))
	for i, v := range vectors {
		if err := hnsw.Add(uint64(i), v); err != nil {
			t.Fatalf("hnsw.Add(%d): %v", i, err)
		}
	}

	queries := randomVectors(rng, numQueries, dim)
	totalRecall := 0.0
	for _, query := range queries {
		flatResults, err := flat.Search(query, k)
		if err != nil {
			t.Fatalf("flat.Search: %v", err)
		}
		// Use a higher ef for search to improve recall.
		hnswResults, err := hnsw.SearchWithEf(query, k, 100)
		if err != nil {
			t.Fatalf("hnsw.SearchWithEf: %v", err)
		}
		totalRecall += recallAtK(flatResults, hnswResults)
	}

	avgRecall := totalRecall / float64(numQueries)
	if avgRecall < minRecall {
		t.Fatalf("recall %.3f is below threshold %.3f for n=%d, dim=%d, k=%d", avgRecall, minRecall, n, dim, k)
	}
}

func TestRecall100Vectors(t *testing.T) {
	checkRecall(t, 100, 32, 10, 50, 0.90)
}

func TestRecall1000Vectors(t *testing.T) {
	checkRecall(t, 1000, 64, 10, 50, 0.90)
}

func TestRecall5000Vectors(t *testing.T) {
	checkRecall(t, 5000, 128, 10, 20, 0.85)
}
