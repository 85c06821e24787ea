package scheduler

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/model"
)

// ErrInvalidPartition is returned for ranges that are not disjoint,
// contiguous and covering.
var ErrInvalidPartition = errors.New("scheduler: invalid partition")

// Policy assigns row ranges to backends.
type Policy interface {
	// Partition returns one range per backend, in backend order. Backends
	// that receive no rows get model.Unassigned.
	Partition(n int, backends []backend.Backend) ([]model.Range, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(n int, backends []backend.Backend) ([]model.Range, error)

// Partition implements Policy.
func (f PolicyFunc) Partition(n int, backends []backend.Backend) ([]model.Range, error) {
	return f(n, backends)
}

// EvenPolicy splits rows equally. The first n mod len(backends) backends get
// one extra row.
type EvenPolicy struct{}

// Partition implements Policy.
func (EvenPolicy) Partition(n int, backends []backend.Backend) ([]model.Range, error) {
	m := len(backends)
	if m == 0 {
		return nil, fmt.Errorf("%w: no backends", ErrInvalidPartition)
	}

	base, extra := n/m, n%m
	ranges := make([]model.Range, m)
	start := 0
	for i := range ranges {
		size := base
		if i < extra {
			size++
		}
		ranges[i] = model.Range{Start: start, End: start + size}
		start += size
	}
	return ranges, nil
}

// WeightedPolicy splits rows proportionally to static per-backend weights,
// keyed by backend name. Backends without a positive weight are unassigned.
type WeightedPolicy struct {
	Weights map[string]float64
}

// Partition implements Policy.
func (p WeightedPolicy) Partition(n int, backends []backend.Backend) ([]model.Range, error) {
	weights := make([]float64, len(backends))
	for i, b := range backends {
		weights[i] = p.Weights[b.Name()]
	}
	return split(n, weights)
}

func split(n int, weights []float64) ([]model.Range, error) {
	var total float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %v for backend %d", ErrInvalidPartition, w, i)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no backend has a positive weight", ErrInvalidPartition)
	}

	ranges := make([]model.Range, len(weights))
	last := -1
	for i, w := range weights {
		if w > 0 {
			last = i
		}
	}

	start := 0
	var acc float64
	for i, w := range weights {
		if w == 0 {
			ranges[i] = model.Unassigned
			continue
		}
		acc += w
		end := int(float64(n) * acc / total)
		if i == last {
			end = n
		}
		ranges[i] = model.Range{Start: start, End: end}
		start = end
	}
	return ranges, nil
}

// ValidatePartition checks that the assigned ranges, taken in order, are
// disjoint and contiguous and cover [0, n).
func ValidatePartition(n int, ranges []model.Range) error {
	next := 0
	for i, r := range ranges {
		if r.IsUnassigned() {
			continue
		}
		if r.Start != next {
			return fmt.Errorf("%w: range %d %s starts at %d, want %d", ErrInvalidPartition, i, r, r.Start, next)
		}
		if r.End < r.Start || r.End > n {
			return fmt.Errorf("%w: range %d %s outside [0,%d)", ErrInvalidPartition, i, r, n)
		}
		next = r.End
	}
	if next != n {
		return fmt.Errorf("%w: ranges cover [0,%d), want [0,%d)", ErrInvalidPartition, next, n)
	}
	return nil
}
