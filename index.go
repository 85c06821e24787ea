package flatgo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/scheduler"
	"github.com/hupe1980/flatgo/vectorstore"
)

// Metric selects how vectors are compared.
type Metric = distance.Metric

const (
	// MetricInnerProduct ranks by dot product, largest first.
	MetricInnerProduct = distance.MetricInnerProduct

	// MetricL2 ranks by squared Euclidean distance, smallest first.
	MetricL2 = distance.MetricL2
)

// Index is an exact vector index. Every search compares the queries against
// every stored vector, split across the configured backends.
//
// Searches may run concurrently with each other. AddVector and the Load
// family take an exclusive lock and wait for running searches.
type Index struct {
	mu    sync.RWMutex
	store *vectorstore.Store
	sched *scheduler.Scheduler

	compression persistence.Compression
	resources   *resource.Controller
	metrics     MetricsCollector
	logger      *Logger
}

// New creates an empty index of the given dimension.
//
// Example:
//
//	idx, err := flatgo.New(128, flatgo.MetricL2)
//	if err != nil {
//	    return err
//	}
//	_ = idx.AddVector(vectors, len(vectors)/128)
//	res, err := idx.Search(ctx, query, 1, 10)
func New(dim int, metric Metric, optFns ...Option) (*Index, error) {
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMetric, metric)
	}

	o := applyOptions(optFns)

	store, err := vectorstore.NewWithCapacity(dim, o.capacity, metric)
	if err != nil {
		return nil, &ErrInvalidDimension{Dimension: dim, cause: err}
	}

	backends := o.backends
	fallback := ""
	if len(backends) == 0 {
		backends = o.defaultBackends()
		fallback = DefaultFallback
	}
	if o.fallback != nil {
		fallback = *o.fallback
	}

	idx := &Index{
		store:       store,
		compression: o.compression,
		resources:   o.resources,
		metrics:     o.metricsCollector,
		logger:      o.logger,
	}

	idx.sched, err = scheduler.New(backends,
		scheduler.WithPolicy(o.policy),
		scheduler.WithFallback(fallback),
		scheduler.WithSmallWorkloadThreshold(o.threshold),
		scheduler.WithMergeWorkers(o.mergeWorkers),
		scheduler.WithResources(o.resources),
		scheduler.WithObserver(scheduler.ObserverFunc(idx.onPartial)),
		scheduler.WithLogger(o.logger.Logger),
	)
	if err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *Index) onPartial(e scheduler.PartialEvent) {
	idx.metrics.RecordPartial(e.Backend, e.Range.Len(), e.Duration, e.Err)
	if e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded) {
		idx.logger.LogBackendFailure(context.Background(), e.Backend, e.Range.String(), e.Retry, e.Err)
	}
}

// Dim returns the vector dimension.
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Dim()
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Len()
}

// Cap returns the number of vectors that fit without reallocation.
func (idx *Index) Cap() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Cap()
}

// Metric returns the index metric.
func (idx *Index) Metric() Metric {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Metric()
}

// IsFloat16 reports whether vectors are stored as half floats. Vectors are
// always stored as float32.
func (idx *Index) IsFloat16() bool { return false }

// Backends returns the backends in dispatch order.
func (idx *Index) Backends() []backend.Backend {
	return idx.sched.Backends()
}

// AddVector appends n vectors stored row-major in vectors, which must hold
// exactly n*Dim() values. The vectors are copied.
func (idx *Index) AddVector(vectors []float32, n int) error {
	start := time.Now()

	idx.mu.Lock()
	err := checkBatch(idx.store.Dim(), n, vectors)
	if err == nil {
		err = checkFinite(idx.store.Dim(), vectors)
	}
	if err == nil {
		err = translateError(idx.store.Add(vectors, n))
	}
	total := idx.store.Len()
	idx.mu.Unlock()

	idx.metrics.RecordAdd(n, time.Since(start), err)
	idx.logger.LogAdd(context.Background(), n, total, err)
	return err
}

// Reconstruct returns a copy of vector i.
func (idx *Index) Reconstruct(i int) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]float32, idx.store.Dim())
	if err := idx.store.Reconstruct(i, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReconstructInto copies vector i into out, which must hold Dim() values.
func (idx *Index) ReconstructInto(i int, out []float32) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(out) != idx.store.Dim() {
		return &ErrDimensionMismatch{Expected: idx.store.Dim(), Actual: len(out)}
	}
	return idx.store.Reconstruct(i, out)
}
