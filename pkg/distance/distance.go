// Package distance implements the distance kernels used by the index and
// store layers to rank vectors by similarity.
package distance

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// Metric identifies a distance function. Smaller is always closer.
type Metric int

const (
	// Euclidean is L2 distance.
	Euclidean Metric = iota
	// Cosine is 1 - cosine similarity, clamped to [0, 2].
	Cosine
	// DotProduct is the negated dot product, so that smaller is closer.
	DotProduct
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	default:
		return "unknown"
	}
}

// Distance computes the distance between v1 and v2 under this metric. Both
// vectors must share a dimension; Cosine additionally rejects zero vectors.
func (m Metric) Distance(v1, v2 vector.Vector) (float32, error) {
	if !v1.SameDimension(v2) {
		return 0, vdberrors.DimMismatch(v1.Dimension(), v2.Dimension())
	}
	switch m {
	case Euclidean:
		return euclidean(v1.Data, v2.Data), nil
	case Cosine:
		return cosine(v1.Data, v2.Data)
	case DotProduct:
		return -dot(v1.Data, v2.Data), nil
	default:
		return 0, vdberrors.Invalid("unknown distance metric")
	}
}

// dot computes the dot product, using the SIMD-accelerated kernel for
// non-empty slices and returning 0 for empty ones (vek32 requires
// non-empty inputs).
func dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

func euclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func cosine(a, b []float32) (float32, error) {
	normA := float32(math.Sqrt(float64(dot(a, a))))
	normB := float32(math.Sqrt(float64(dot(b, b))))
	if normA == 0 || normB == 0 {
		return 0, vdberrors.Invalid("cannot compute cosine distance with zero vector")
	}
	similarity := dot(a, b) / (normA * normB)
	if similarity > 1 {
		similarity = 1
	} else if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity, nil
}
