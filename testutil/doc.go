// Package testutil provides testing utilities for flatgo.
//
// This package is intended for use in tests and benchmarks only.
// Vectors are returned as flat row-major slices, the layout the index
// consumes.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	data := rng.UniformVectors(n, dim)    // uniform [0, 1)
//	data := rng.IntegerVectors(n, dim, 8) // integers in [-8, 8], exact sums
//
// # Exact Search (Ground Truth)
//
//	want := testutil.BruteForce(distance.MetricL2, data, queries, dim, k)
//
// # Verification
//
//	err := testutil.MatchTopK(metric, want[q], gotIdx, gotDist, 1e-4)
package testutil
