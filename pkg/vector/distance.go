// Package vector implements HelixDB's HNSW approximate nearest-neighbor
// index (spec.md §4.3): incremental build, SNG/α-pruned neighbor selection,
// soft/hard delete with FreshDiskANN-style patching, and an on-disk
// encoding that shares the kv substrate with pkg/storage and pkg/bm25.
//
// Distance math is not reimplemented here: it delegates to the teacher's
// pkg/math/vector similarity library (cosine similarity, dot product,
// Euclidean similarity), generalized behind a pluggable Distance per
// spec.md §4.3 "Distance is a pluggable trait". HNSW wants a distance
// (lower = closer) while pkg/math/vector exposes similarity (higher =
// closer), so each implementation here is a thin adapter: 1-sim for cosine,
// 1/sim-1 for Euclidean, and the negated dot product for dot.
package vector

import mathvector "github.com/helixdb/helix-go/pkg/math/vector"

// Distance is a pluggable metric between two equal-length float32 vectors.
// Lower is closer. The Name is persisted in index metadata; opening an
// index with a mismatching distance name is an error (spec.md §4.3).
type Distance interface {
	Name() string
	Dist(a, b []float32) float64
}

type cosineDistance struct{}

func (cosineDistance) Name() string { return "cosine" }
func (cosineDistance) Dist(a, b []float32) float64 {
	return 1 - mathvector.CosineSimilarity(a, b)
}

type euclideanDistance struct{}

func (euclideanDistance) Name() string { return "l2" }
func (euclideanDistance) Dist(a, b []float32) float64 {
	// Invert EuclideanSimilarity's 1/(1+d) back to d rather than duplicate
	// the sum-of-squares loop.
	sim := mathvector.EuclideanSimilarity(a, b)
	if sim <= 0 {
		return 0
	}
	return 1/sim - 1
}

type dotDistance struct{}

func (dotDistance) Name() string { return "dot" }
func (dotDistance) Dist(a, b []float32) float64 {
	// Dot "distance" is negated so that a larger inner product (more
	// similar) sorts as closer, matching the other metrics' convention.
	return -mathvector.DotProduct(a, b)
}

// Cosine, Euclidean, and Dot are the three distance functions spec.md §4.3
// names.
var (
	Cosine    Distance = cosineDistance{}
	Euclidean Distance = euclideanDistance{}
	Dot       Distance = dotDistance{}
)

// ByName resolves a persisted distance name back to its Distance value,
// returning ok=false for an unknown name (spec.md §7 UnmatchingDistance).
func ByName(name string) (Distance, bool) {
	switch name {
	case "cosine":
		return Cosine, true
	case "l2":
		return Euclidean, true
	case "dot":
		return Dot, true
	default:
		return nil, false
	}
}
