// Package engine implements the blocked exact top-k search shared by all
// compute backends.
//
// The data range is processed as a grid of (query block, data block) tiles.
// Each tile is one Gemm call on the backend's kernel.Kernel producing a
// bx x by score matrix, which is folded into per-query bounded heaps.
//
// Squared L2 distances are derived from inner products through
//
//	||x - y||^2 = ||x||^2 + ||y||^2 - 2<x, y>
//
// and clamped at zero. Inner product scores are used as is, larger is better.
//
// Query blocks are distributed over up to Options.Workers goroutines. Every
// worker owns its score buffer and heaps, and reserves the buffer against the
// optional resource.Controller before it starts.
package engine
