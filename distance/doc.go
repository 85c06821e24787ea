// Package distance provides the metrics and vector math shared by every
// search backend.
//
// # Supported Metrics
//
//   - MetricInnerProduct: maximum inner product search (larger is closer)
//   - MetricL2: squared Euclidean distance (smaller is closer)
//
// The numeric values of the metrics are part of the persisted snapshot
// format and must not change.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	s := distance.Dot(a, b)
//	distance.RenormL2(rows, dim) // normalize a batch in place
package distance
