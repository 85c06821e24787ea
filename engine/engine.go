package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/internal/queue"
	"github.com/hupe1980/flatgo/kernel"
	"github.com/hupe1980/flatgo/model"
	"github.com/hupe1980/flatgo/resource"
)

// Engine computes exact top-k results on top of a kernel.
// It is stateless between calls and safe for concurrent use.
type Engine struct {
	kernel kernel.Kernel
	opts   Options
}

// New creates an engine driving k.
func New(k kernel.Kernel, optFns ...func(*Options)) *Engine {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.normalize()

	return &Engine{kernel: k, opts: opts}
}

// Kernel returns the kernel the engine drives.
func (e *Engine) Kernel() kernel.Kernel { return e.kernel }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// BlockSizes returns the tile shape for nx queries against ny data rows.
// Both sizes are at least 1 when nx and ny are.
func BlockSizes(nx, ny, dim, workers int, budgetBytes int64) (bx, by int) {
	if workers <= 0 {
		workers = 1
	}
	bx = min(nx, MaxQueryBlock, (nx+workers-1)/workers)
	bx = max(bx, 1)

	budgetFloats := budgetBytes / 4
	by = int(max(1, budgetFloats/int64(dim+bx)))
	by = max(1, min(by, ny))
	return bx, by
}

// Search writes the top req.K hits of every query into res and returns the
// number of real hits per row, min(K, NumData). Result indices are shifted
// by req.Offset. Rows are ordered best-first and padded with model.NoIndex.
//
// An empty request (no queries, no data, k == 0 or dim == 0) leaves res
// untouched and returns 0.
func (e *Engine) Search(ctx context.Context, req model.Request, res model.Result) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := res.Check(req.NumQueries, req.K); err != nil {
		return 0, err
	}
	if req.Empty() {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	nx, ny, dim := req.NumQueries, req.NumData, req.Dim
	queries := req.Queries[:nx*dim]
	data := req.Data[:ny*dim]

	var qNorms, yNorms []float32
	if req.Metric == distance.MetricL2 {
		qNorms = make([]float32, nx)
		if err := e.kernel.RowSquaredNorms(qNorms, queries, dim); err != nil {
			return 0, fmt.Errorf("engine: query norms: %w", err)
		}
		if req.Norms != nil {
			yNorms = req.Norms[:ny]
		} else {
			yNorms = make([]float32, ny)
			if err := e.kernel.RowSquaredNorms(yNorms, data, dim); err != nil {
				return 0, fmt.Errorf("engine: data norms: %w", err)
			}
		}
	}

	bx, by := BlockSizes(nx, ny, dim, e.opts.Workers, e.opts.MemoryBudget)
	numBlocks := (nx + bx - 1) / bx

	bufBytes := int64(bx) * int64(by) * 4
	rc := e.opts.Resources
	workers, err := reserveWorkers(ctx, rc, min(e.opts.Workers, numBlocks), bufBytes)
	if err != nil {
		return 0, err
	}
	defer releaseWorkers(rc, workers, bufBytes)

	e.opts.Logger.Debug("engine search",
		slog.String("kernel", e.kernel.Name()),
		slog.String("metric", req.Metric.String()),
		slog.Int("queries", nx),
		slog.Int("rows", ny),
		slog.Int("k", req.K),
		slog.Int("bx", bx),
		slog.Int("by", by),
		slog.Int("workers", workers),
		slog.Int64("active_workers", rc.ActiveWorkers()),
	)

	t := &tiler{
		kernel:  e.kernel,
		req:     req,
		res:     res,
		queries: queries,
		data:    data,
		qNorms:  qNorms,
		yNorms:  yNorms,
		bx:      bx,
		by:      by,
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			w := t.newWorker()
			for {
				b := int(next.Add(1) - 1)
				if b >= numBlocks {
					return nil
				}
				if err := w.block(gctx, b); err != nil {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, err
	}

	return req.Found(), nil
}

// reserveWorkers reserves one score buffer per worker. The first buffer is
// waited for; it fails only when it exceeds the whole budget or ctx ends.
// Additional workers are taken only while both a buffer and a worker slot
// are free right away.
func reserveWorkers(ctx context.Context, rc *resource.Controller, want int, bufBytes int64) (int, error) {
	if err := rc.AcquireMemory(ctx, bufBytes); err != nil {
		return 0, fmt.Errorf("engine: score buffer of %d bytes: %w", bufBytes, err)
	}
	got := 1
	for got < want {
		if rc.ReserveMemory(bufBytes) != nil {
			break
		}
		if !rc.TryAcquireWorker() {
			rc.ReleaseMemory(bufBytes)
			break
		}
		got++
	}
	return got, nil
}

func releaseWorkers(rc *resource.Controller, workers int, bufBytes int64) {
	rc.ReleaseMemory(int64(workers) * bufBytes)
	for range workers - 1 {
		rc.ReleaseWorker()
	}
}

// tiler holds the read-only state shared by all workers of one search.
type tiler struct {
	kernel  kernel.Kernel
	req     model.Request
	res     model.Result
	queries []float32
	data    []float32
	qNorms  []float32
	yNorms  []float32
	bx, by  int
}

type worker struct {
	*tiler
	scores []float32
	heaps  []*queue.TopK
}

func (t *tiler) newWorker() *worker {
	heaps := make([]*queue.TopK, t.bx)
	for i := range heaps {
		heaps[i] = queue.NewTopK(t.req.K, t.req.Metric.Descending())
	}
	return &worker{
		tiler:  t,
		scores: make([]float32, t.bx*t.by),
		heaps:  heaps,
	}
}

// block processes query block b against every data block.
func (w *worker) block(ctx context.Context, b int) error {
	req := w.req
	dim, k := req.Dim, req.K
	nx, ny := req.NumQueries, req.NumData

	x0 := b * w.bx
	xn := min(w.bx, nx-x0)
	heaps := w.heaps[:xn]
	for _, h := range heaps {
		h.Reset()
	}

	a := kernel.Dense(xn, dim, w.queries[x0*dim:(x0+xn)*dim])
	l2 := req.Metric == distance.MetricL2

	for y0 := 0; y0 < ny; y0 += w.by {
		if err := ctx.Err(); err != nil {
			return err
		}
		yn := min(w.by, ny-y0)

		c := kernel.Dense(xn, yn, w.scores[:xn*yn])
		if err := w.kernel.Gemm(false, true, a, kernel.Dense(yn, dim, w.data[y0*dim:(y0+yn)*dim]), c); err != nil {
			return fmt.Errorf("engine: %s gemm: %w", w.kernel.Name(), err)
		}

		base := req.Offset + int64(y0)
		for i, h := range heaps {
			row := c.Data[i*yn : (i+1)*yn]
			if l2 {
				qn := w.qNorms[x0+i]
				yNorms := w.yNorms[y0 : y0+yn]
				for j, s := range row {
					d := qn + yNorms[j] - 2*s
					if d < 0 {
						d = 0
					}
					if h.Admits(d) {
						h.Push(queue.Item{Index: base + int64(j), Distance: d})
					}
				}
				continue
			}
			for j, s := range row {
				if h.Admits(s) {
					h.Push(queue.Item{Index: base + int64(j), Distance: s})
				}
			}
		}
	}

	worst := req.Metric.Worst()
	for i, h := range heaps {
		idx, dist := w.res.Row(x0+i, k)
		n := h.Drain(idx, dist)
		for j := n; j < k; j++ {
			idx[j] = model.NoIndex
			dist[j] = worst
		}
	}
	return nil
}
