// Package backend defines the compute backends the scheduler dispatches
// partial searches to.
//
// A Backend owns a Device description and computes the top-k of a request
// over the rows it was handed. The kernel-driven implementation returned by
// New works with any kernel.Kernel, so a GPU or accelerator driver only has
// to supply Gemm and RowSquaredNorms:
//
//	gpu := backend.New(backend.Device{ID: 1, Kind: backend.KindGPU, Name: "gpu0"}, myKernel)
//	cpu := backend.NewCPU()
package backend
