package distance

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRowThreshold is the row count above which batch helpers split work
// across goroutines.
const parallelRowThreshold = 10000

// SquaredNorms writes the squared norm of every row of vectors into dst.
// len(dst) rows of dim floats are read from vectors.
func SquaredNorms(dst, vectors []float32, dim int) {
	if dim <= 0 {
		return
	}
	forEachRow(min(len(dst), len(vectors)/dim), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = SquaredNorm(vectors[i*dim : (i+1)*dim])
		}
	})
}

// RenormL2 L2-normalizes each of the len(vectors)/dim rows in place.
// Rows with zero norm are left untouched.
func RenormL2(vectors []float32, dim int) {
	if dim <= 0 {
		return
	}
	n := len(vectors) / dim
	forEachRow(n, func(start, end int) {
		for i := start; i < end; i++ {
			NormalizeL2InPlace(vectors[i*dim : (i+1)*dim])
		}
	})
}

// forEachRow runs fn over [0, n), split into one contiguous chunk per
// processor once n exceeds parallelRowThreshold.
func forEachRow(n int, fn func(start, end int)) {
	if n <= parallelRowThreshold {
		fn(0, n)
		return
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(n, start+chunk)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
