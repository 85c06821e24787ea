// Package model defines the request and result types shared by the engine,
// the backends and the scheduler.
//
//   - Range: a half-open interval of global row indices assigned to a backend
//   - Request: one partial top-k computation over a contiguous block of rows
//   - Result: caller-owned output buffers of exactly NumQueries*K slots
//
// Result rows are ordered best-first. Slots past the number of real
// candidates hold NoIndex and the metric's worst distance.
package model
