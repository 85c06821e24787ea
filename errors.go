package flatgo

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/flatgo/blobstore"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/scheduler"
	"github.com/hupe1980/flatgo/vectorstore"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNonFinite is returned by AddVector and the search methods when a
	// vector holds NaN or an infinity.
	ErrNonFinite = errors.New("vector holds a non-finite value")

	// ErrInvalidMetric is returned for metrics other than MetricInnerProduct
	// and MetricL2.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrOutOfRange is returned by Reconstruct for indices outside [0, Len()).
	ErrOutOfRange = vectorstore.ErrOutOfRange

	// ErrInvalidRange is returned by QueryRange for ranges outside [0, Len()).
	ErrInvalidRange = scheduler.ErrInvalidRange

	ErrUnknownBackend      = scheduler.ErrUnknownBackend
	ErrBackendFailed       = scheduler.ErrBackendFailed
	ErrInvalidPartition    = scheduler.ErrInvalidPartition
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded

	ErrInvalidMagic = persistence.ErrInvalidMagic
	ErrCorrupt      = persistence.ErrCorrupt
	ErrIO           = persistence.ErrIO

	// ErrNotFound is returned by LoadBlob for missing blobs.
	ErrNotFound = blobstore.ErrNotFound
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// checkBatch validates a flat batch of n rows against dim. When the batch
// splits evenly into n rows the error reports the row dimension, otherwise
// the total value count.
func checkBatch(dim, n int, vectors []float32) error {
	if n < 0 {
		return fmt.Errorf("negative vector count %d", n)
	}
	if len(vectors) == n*dim {
		return nil
	}
	if n > 0 && len(vectors)%n == 0 {
		return &ErrDimensionMismatch{Expected: dim, Actual: len(vectors) / n}
	}
	return &ErrDimensionMismatch{Expected: n * dim, Actual: len(vectors)}
}

// checkFinite reports the first NaN or infinite component of vectors.
func checkFinite(dim int, vectors []float32) error {
	for i, v := range vectors {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: row %d component %d is %v", ErrNonFinite, i/dim, i%dim, v)
		}
	}
	return nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// A snapshot whose content the store rejects is corrupt.
	if errors.Is(err, vectorstore.ErrWrongDimension) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return err
}
