// Package vectorstore owns the raw vectors of a flat index.
//
// A Store is an append-only, row-major float32 buffer with a per-row cache of
// squared norms. Rows keep their insertion order forever; row i is the
// vector added i-th.
//
// Store has no internal locking. Concurrent readers are safe as long as no
// Add or Restore runs at the same time.
package vectorstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flatgo/distance"
)

var (
	// ErrWrongDimension is returned when a buffer doesn't match the store dimension.
	ErrWrongDimension = errors.New("vectorstore: wrong vector dimension")

	// ErrOutOfRange is returned for row indices outside [0, Len()).
	ErrOutOfRange = errors.New("vectorstore: index out of range")
)

// Store holds vectors of a fixed dimension.
type Store struct {
	dim    int
	count  int
	metric distance.Metric
	data   []float32 // capacity*dim, first count*dim in use
	norms  []float32 // count
}

// New creates an empty store.
func New(dim int, metric distance.Metric) (*Store, error) {
	return NewWithCapacity(dim, 0, metric)
}

// NewWithCapacity creates an empty store with room for capacity rows.
func NewWithCapacity(dim, capacity int, metric distance.Metric) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrWrongDimension, dim)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("vectorstore: unknown metric %d", metric)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		dim:    dim,
		metric: metric,
		data:   make([]float32, 0, capacity*dim),
	}, nil
}

// Dim returns the vector dimension.
func (s *Store) Dim() int { return s.dim }

// Len returns the number of stored vectors.
func (s *Store) Len() int { return s.count }

// Cap returns the number of rows that fit without reallocation.
func (s *Store) Cap() int { return cap(s.data) / s.dim }

// Metric returns the metric the vectors are searched with.
func (s *Store) Metric() distance.Metric { return s.metric }

// Add appends n vectors. len(vectors) must be exactly n*Dim().
func (s *Store) Add(vectors []float32, n int) error {
	if n < 0 || len(vectors) != n*s.dim {
		return fmt.Errorf("%w: got %d values for %d vectors of dimension %d", ErrWrongDimension, len(vectors), n, s.dim)
	}
	if n == 0 {
		return nil
	}

	s.grow(n)

	start := s.count
	s.data = append(s.data, vectors...)
	s.norms = append(s.norms, make([]float32, n)...)
	distance.SquaredNorms(s.norms[start:], s.data[start*s.dim:], s.dim)
	s.count += n
	return nil
}

// grow doubles the capacity until count+n rows fit with room to spare.
func (s *Store) grow(n int) {
	capacity := s.Cap()
	if s.count+n < capacity {
		return
	}
	for s.count+n >= capacity {
		capacity = max(1, capacity*2)
	}

	data := make([]float32, len(s.data), capacity*s.dim)
	copy(data, s.data)
	s.data = data

	norms := make([]float32, len(s.norms), capacity)
	copy(norms, s.norms)
	s.norms = norms
}

// Row returns a view of row i. The view aliases the store and must not be
// modified.
func (s *Store) Row(i int) ([]float32, error) {
	if i < 0 || i >= s.count {
		return nil, fmt.Errorf("%w: row %d, store holds %d", ErrOutOfRange, i, s.count)
	}
	return s.data[i*s.dim : (i+1)*s.dim : (i+1)*s.dim], nil
}

// Rows returns a view of rows [start, end).
func (s *Store) Rows(start, end int) ([]float32, error) {
	if start < 0 || end > s.count || start > end {
		return nil, fmt.Errorf("%w: rows [%d,%d), store holds %d", ErrOutOfRange, start, end, s.count)
	}
	return s.data[start*s.dim : end*s.dim : end*s.dim], nil
}

// Norms returns the cached squared norms of rows [start, end).
func (s *Store) Norms(start, end int) ([]float32, error) {
	if start < 0 || end > s.count || start > end {
		return nil, fmt.Errorf("%w: rows [%d,%d), store holds %d", ErrOutOfRange, start, end, s.count)
	}
	return s.norms[start:end:end], nil
}

// Data returns a view of all stored values, Len()*Dim() floats.
func (s *Store) Data() []float32 {
	return s.data[:s.count*s.dim : s.count*s.dim]
}

// Reconstruct copies row i into out, which must hold exactly Dim() values.
func (s *Store) Reconstruct(i int, out []float32) error {
	if len(out) != s.dim {
		return fmt.Errorf("%w: output holds %d values, dimension is %d", ErrWrongDimension, len(out), s.dim)
	}
	row, err := s.Row(i)
	if err != nil {
		return err
	}
	copy(out, row)
	return nil
}

// Restore replaces the whole content of the store. The store takes ownership
// of data, capacity collapses to the row count and norms are recomputed.
// On error the store is unchanged.
func (s *Store) Restore(dim int, metric distance.Metric, data []float32) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrWrongDimension, dim)
	}
	if len(data)%dim != 0 {
		return fmt.Errorf("%w: %d values are not a multiple of dimension %d", ErrWrongDimension, len(data), dim)
	}
	if !metric.Valid() {
		return fmt.Errorf("vectorstore: unknown metric %d", metric)
	}

	count := len(data) / dim
	norms := make([]float32, count)
	distance.SquaredNorms(norms, data, dim)

	s.dim = dim
	s.metric = metric
	s.count = count
	s.data = data[:len(data):len(data)]
	s.norms = norms
	return nil
}
