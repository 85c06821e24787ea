// Package flatgo provides exact multi-backend vector search.
//
// This file implements the fluent builder API for creating and configuring
// indexes. Builders are immutable - each method returns a new builder with
// the updated configuration.
package flatgo

import (
	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/scheduler"
)

// Flat creates a new index builder with the specified dimension. The metric
// defaults to squared L2.
//
// Example:
//
//	idx, err := flatgo.Flat(128).
//	    InnerProduct().
//	    Weighted(map[string]float64{"blas": 3, "cpu": 1}).
//	    Build()
func Flat(dimension int) FlatBuilder {
	return FlatBuilder{
		dimension: dimension,
		metric:    MetricL2,
	}
}

// FlatBuilder is an immutable fluent builder for creating indexes.
// Each method returns a new builder with the updated configuration.
type FlatBuilder struct {
	dimension int
	metric    Metric
	opts      []Option
}

func (b FlatBuilder) with(o Option) FlatBuilder {
	b.opts = append(append([]Option(nil), b.opts...), o)
	return b
}

// SquaredL2 sets the metric to squared Euclidean distance.
func (b FlatBuilder) SquaredL2() FlatBuilder {
	b.metric = MetricL2
	return b
}

// InnerProduct sets the metric to inner product.
func (b FlatBuilder) InnerProduct() FlatBuilder {
	b.metric = MetricInnerProduct
	return b
}

// Metric sets the metric.
func (b FlatBuilder) Metric(m Metric) FlatBuilder {
	b.metric = m
	return b
}

// Backends replaces the default host backends.
func (b FlatBuilder) Backends(backends ...backend.Backend) FlatBuilder {
	return b.with(WithBackends(backends...))
}

// Fallback names the backend for small workloads and retries.
func (b FlatBuilder) Fallback(name string) FlatBuilder {
	return b.with(WithFallback(name))
}

// Policy sets the row partition policy.
func (b FlatBuilder) Policy(p scheduler.Policy) FlatBuilder {
	return b.with(WithPolicy(p))
}

// Weighted splits rows proportionally to per-backend weights. Backends
// without a weight receive no rows.
func (b FlatBuilder) Weighted(weights map[string]float64) FlatBuilder {
	return b.with(WithPolicy(scheduler.WeightedPolicy{Weights: weights}))
}

// SmallWorkloadThreshold sets the queries x rows product below which
// searches run on the fallback backend alone.
func (b FlatBuilder) SmallWorkloadThreshold(n int) FlatBuilder {
	return b.with(WithSmallWorkloadThreshold(n))
}

// InitialCapacity preallocates room for n vectors.
func (b FlatBuilder) InitialCapacity(n int) FlatBuilder {
	return b.with(WithInitialCapacity(n))
}

// MemoryBudget sets the per-search score buffer budget of the default
// backends.
func (b FlatBuilder) MemoryBudget(bytes int64) FlatBuilder {
	return b.with(WithMemoryBudget(bytes))
}

// Resources attaches a resource controller.
func (b FlatBuilder) Resources(rc *resource.Controller) FlatBuilder {
	return b.with(WithResources(rc))
}

// Compression sets the SaveBlob stream compression.
func (b FlatBuilder) Compression(c persistence.Compression) FlatBuilder {
	return b.with(WithCompression(c))
}

// Logger sets the structured logger for operation tracing.
func (b FlatBuilder) Logger(l *Logger) FlatBuilder {
	return b.with(WithLogger(l))
}

// Metrics sets the metrics collector for monitoring.
func (b FlatBuilder) Metrics(mc MetricsCollector) FlatBuilder {
	return b.with(WithMetricsCollector(mc))
}

// Build creates the index.
func (b FlatBuilder) Build() (*Index, error) {
	return New(b.dimension, b.metric, b.opts...)
}

// MustBuild creates the index, panicking on error.
func (b FlatBuilder) MustBuild() *Index {
	idx, err := b.Build()
	if err != nil {
		panic(err)
	}
	return idx
}
