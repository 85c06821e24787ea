package testutil

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/internal/dataset"
)

// Neighbor is one ground-truth search hit.
type Neighbor struct {
	Index    int64
	Distance float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates num*dim values in range [0, 1).
func (r *RNG) UniformVectors(num, dim int) []float32 {
	data := make([]float32, num*dim)
	r.FillUniform(data)
	return data
}

// GaussianVectors generates num*dim values from a standard normal distribution.
func (r *RNG) GaussianVectors(num, dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	for i := range data {
		data[i] = float32(r.rand.NormFloat64())
	}
	return data
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num, dim int) []float32 {
	data := r.GaussianVectors(num, dim)
	for i := range num {
		distance.NormalizeL2InPlace(data[i*dim : (i+1)*dim])
	}
	return data
}

// IntegerVectors generates integer-valued vectors with components in
// [-bound, bound]. Dot products and norms of such vectors are exact in
// float32 as long as dim*bound*bound stays below 2^24, so every kernel and
// every summation order produces bit-identical scores.
func (r *RNG) IntegerVectors(num, dim, bound int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	for i := range data {
		data[i] = float32(r.rand.Intn(2*bound+1) - bound)
	}
	return data
}

// CircleVectors returns n unit vectors of dimension 2 evenly spaced on the
// unit circle, starting at (1, 0).
func CircleVectors(n int) []float32 { return dataset.Circle(n) }

// LineVectors returns n points (i*step, 0).
func LineVectors(n int, step float32) []float32 { return dataset.Line(n, step) }

// BruteForce computes the exact top-k of every query by direct evaluation,
// ranking ties by index. Each returned row holds min(k, n) neighbors.
func BruteForce(metric distance.Metric, data, queries []float32, dim, k int) [][]Neighbor {
	n := len(data) / dim
	nq := len(queries) / dim

	out := make([][]Neighbor, nq)
	for q := range nq {
		x := queries[q*dim : (q+1)*dim]
		all := make([]Neighbor, n)
		for i := range n {
			y := data[i*dim : (i+1)*dim]
			var d float32
			if metric == distance.MetricL2 {
				d = distance.SquaredL2(x, y)
			} else {
				d = distance.Dot(x, y)
			}
			all[i] = Neighbor{Index: int64(i), Distance: d}
		}
		SortNeighbors(metric, all)
		out[q] = all[:min(k, n)]
	}
	return out
}

// SortNeighbors orders best-first under metric, ties by index.
func SortNeighbors(metric distance.Metric, ns []Neighbor) {
	slices.SortFunc(ns, func(a, b Neighbor) int {
		if c := metric.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}

// MatchTopK checks a result row against ground truth, tolerating ties and
// floating-point noise up to tol (relative to max(1, |d|)):
//   - the first len(want) slots are real, distinct hits whose distances match
//     the ground truth rank by rank
//   - every ground-truth hit strictly better than the k-th distance is present
//   - the remaining slots are padding
func MatchTopK(metric distance.Metric, want []Neighbor, gotIdx []int64, gotDist []float32, tol float32) error {
	if len(gotIdx) != len(gotDist) {
		return fmt.Errorf("index/distance length mismatch: %d vs %d", len(gotIdx), len(gotDist))
	}
	if len(gotIdx) < len(want) {
		return fmt.Errorf("got %d slots, want at least %d", len(gotIdx), len(want))
	}

	near := func(a, b float32) bool {
		scale := max(float32(1), float32(math.Abs(float64(b))))
		return float32(math.Abs(float64(a-b))) <= tol*scale
	}

	seen := make(map[int64]struct{}, len(want))
	for i, w := range want {
		if gotIdx[i] < 0 {
			return fmt.Errorf("slot %d: padding where a hit was expected", i)
		}
		if _, dup := seen[gotIdx[i]]; dup {
			return fmt.Errorf("slot %d: duplicate index %d", i, gotIdx[i])
		}
		seen[gotIdx[i]] = struct{}{}
		if !near(gotDist[i], w.Distance) {
			return fmt.Errorf("slot %d: distance %v, want %v", i, gotDist[i], w.Distance)
		}
	}

	if len(want) > 0 {
		kth := want[len(want)-1].Distance
		for _, w := range want {
			if near(w.Distance, kth) {
				continue
			}
			if _, ok := seen[w.Index]; !ok {
				return fmt.Errorf("index %d (distance %v) missing", w.Index, w.Distance)
			}
		}
	}

	for i := len(want); i < len(gotIdx); i++ {
		if gotIdx[i] != -1 {
			return fmt.Errorf("slot %d: index %d, want padding", i, gotIdx[i])
		}
		if gotDist[i] != metric.Worst() {
			return fmt.Errorf("slot %d: distance %v, want %v", i, gotDist[i], metric.Worst())
		}
	}
	return nil
}

// ComputeRecall computes recall@k of approximate indices against ground truth.
func ComputeRecall(groundTruth []Neighbor, approximate []int64) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int64]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].Index] = struct{}{}
	}

	hits := 0
	for _, idx := range approximate[:k] {
		if _, ok := truthSet[idx]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
