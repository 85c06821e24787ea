package model

import (
	"fmt"

	"github.com/hupe1980/flatgo/distance"
)

// NoIndex marks a padding slot in a result row.
const NoIndex int64 = -1

// Range is a half-open interval [Start, End) of global row indices.
type Range struct {
	Start int
	End   int
}

// Unassigned is the sentinel range of a backend that receives no rows.
var Unassigned = Range{Start: -1, End: -1}

// Len returns the number of rows in the range. Unassigned ranges are empty.
func (r Range) Len() int {
	if r.IsUnassigned() || r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsUnassigned reports whether r is the Unassigned sentinel.
func (r Range) IsUnassigned() bool {
	return r == Unassigned
}

// String returns a string representation of the Range.
func (r Range) String() string {
	if r.IsUnassigned() {
		return "[unassigned]"
	}
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Request describes a partial top-k search over a contiguous block of data
// rows. Data and Queries are borrowed for the duration of the call.
type Request struct {
	Metric distance.Metric
	Dim    int
	K      int

	// Queries holds NumQueries rows of Dim values.
	Queries    []float32
	NumQueries int

	// Data holds NumData rows of Dim values.
	Data    []float32
	NumData int

	// Norms optionally holds the cached squared norms of the data rows
	// (len NumData). Only used for L2; computed on the fly when nil.
	Norms []float32

	// Offset is the global index of Data's first row. Result indices are
	// shifted by it.
	Offset int64
}

// Validate checks the request's buffer shapes.
func (r Request) Validate() error {
	if r.Dim < 0 || r.K < 0 || r.NumQueries < 0 || r.NumData < 0 {
		return fmt.Errorf("model: negative request dimension (dim=%d k=%d nq=%d n=%d)", r.Dim, r.K, r.NumQueries, r.NumData)
	}
	if !r.Metric.Valid() {
		return fmt.Errorf("model: unknown metric %d", r.Metric)
	}
	if len(r.Queries) < r.NumQueries*r.Dim {
		return fmt.Errorf("model: query buffer holds %d values, need %d", len(r.Queries), r.NumQueries*r.Dim)
	}
	if len(r.Data) < r.NumData*r.Dim {
		return fmt.Errorf("model: data buffer holds %d values, need %d", len(r.Data), r.NumData*r.Dim)
	}
	if r.Norms != nil && len(r.Norms) < r.NumData {
		return fmt.Errorf("model: norm cache holds %d values, need %d", len(r.Norms), r.NumData)
	}
	return nil
}

// Empty reports whether the request requires no work.
func (r Request) Empty() bool {
	return r.NumQueries == 0 || r.NumData == 0 || r.K == 0 || r.Dim == 0
}

// Found returns the number of real candidates each result row holds.
func (r Request) Found() int {
	if r.Empty() {
		return 0
	}
	return min(r.K, r.NumData)
}

// Result holds row-major top-k outputs: row q occupies [q*K, (q+1)*K).
type Result struct {
	Indices   []int64
	Distances []float32
}

// NewResult allocates a result for nq queries with k slots each.
func NewResult(nq, k int) Result {
	return Result{
		Indices:   make([]int64, nq*k),
		Distances: make([]float32, nq*k),
	}
}

// Check verifies that both buffers hold exactly nq*k slots.
func (r Result) Check(nq, k int) error {
	want := nq * k
	if len(r.Indices) != want || len(r.Distances) != want {
		return fmt.Errorf("model: result buffers hold %d/%d slots, need %d", len(r.Indices), len(r.Distances), want)
	}
	return nil
}

// Row returns the slots of query q.
func (r Result) Row(q, k int) ([]int64, []float32) {
	return r.Indices[q*k : (q+1)*k], r.Distances[q*k : (q+1)*k]
}

// Pad fills slots [from, k) of every query row with padding.
func (r Result) Pad(nq, k, from int, metric distance.Metric) {
	worst := metric.Worst()
	for q := range nq {
		idx, dist := r.Row(q, k)
		for j := from; j < k; j++ {
			idx[j] = NoIndex
			dist[j] = worst
		}
	}
}
