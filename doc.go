// Package flatgo provides exact ("flat") vector similarity search across
// heterogeneous compute backends.
//
// Every search compares each query against every stored vector. The rows of
// the index are split into contiguous ranges, one per backend; the backends
// compute partial top-k results concurrently and the partial results are
// merged into one exact top-k per query.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := flatgo.New(128, flatgo.MetricL2)
//	_ = idx.AddVector(vectors, n)          // n rows, row-major
//	res, _ := idx.Search(ctx, queries, nq, 10)
//	for q := 0; q < res.NumQueries; q++ {
//	    for _, h := range res.Hits(q) {
//	        fmt.Println(q, h.Index, h.Distance)
//	    }
//	}
//
// # Metrics
//
// MetricInnerProduct ranks by dot product, largest first. MetricL2 ranks by
// squared Euclidean distance, smallest first, computed as
// ||x||^2 + ||y||^2 - 2<x,y> and clamped at zero.
//
// # Backends
//
// By default an index runs two host backends: "cpu" (pure Go kernel) and
// "blas" (gonum BLAS). Small workloads run on the fallback backend ("cpu")
// alone, and a failing backend's range is retried there once. GPU and
// accelerator drivers plug in by implementing kernel.Kernel or
// backend.Backend:
//
//	gpu := backend.New(device, myKernel, backend.WithName("gpu"))
//	idx, _ := flatgo.Flat(128).
//	    Backends(gpu, backend.NewCPU()).
//	    Fallback("cpu").
//	    Weighted(map[string]float64{"gpu": 4, "cpu": 1}).
//	    Build()
//
// # Persistence
//
// Save and Load use a fixed little-endian layout: a 29-byte header (magic
// 1145, dimension, count, float16 flag, metric) followed by the vectors and
// their squared components. SaveBlob and LoadBlob write the same bytes to a
// blobstore.BlobStore (local, MinIO, S3), optionally LZ4 or Zstd compressed.
package flatgo
