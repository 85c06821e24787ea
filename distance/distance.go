package distance

import (
	"fmt"
	"math"
	"strings"
)

// Metric represents the distance metric used for vector comparison.
type Metric int32

const (
	// MetricInnerProduct ranks candidates by descending dot product.
	MetricInnerProduct Metric = 0
	// MetricL2 ranks candidates by ascending squared Euclidean distance.
	MetricL2 Metric = 1
)

func (m Metric) String() string {
	switch m {
	case MetricInnerProduct:
		return "InnerProduct"
	case MetricL2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(m))
	}
}

// ParseMetric parses a metric name. Accepted spellings are case-insensitive:
// "ip", "inner_product", "innerproduct", "dot" and "l2", "squared_l2".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ip", "inner_product", "innerproduct", "dot":
		return MetricInnerProduct, nil
	case "l2", "squared_l2", "squaredl2":
		return MetricL2, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	return m == MetricInnerProduct || m == MetricL2
}

// Descending reports whether larger values rank first.
func (m Metric) Descending() bool {
	return m == MetricInnerProduct
}

// Better reports whether a ranks strictly before b.
func (m Metric) Better(a, b float32) bool {
	if m.Descending() {
		return a > b
	}
	return a < b
}

// Compare orders a before b when a ranks better. It is suitable for
// slices.SortFunc.
func (m Metric) Compare(a, b float32) int {
	switch {
	case m.Better(a, b):
		return -1
	case m.Better(b, a):
		return 1
	default:
		return 0
	}
}

// Worst returns the value used to pad result slots that hold no candidate.
func (m Metric) Worst() float32 {
	if m.Descending() {
		return float32(math.Inf(-1))
	}
	return float32(math.Inf(1))
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// SquaredNorm returns the sum of squared components of v.
func SquaredNorm(v []float32) float32 {
	return Dot(v, v)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors
// directly, without the norm-expansion identity.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	b = b[:len(a)]

	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := SquaredNorm(v)
	if norm2 == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}
