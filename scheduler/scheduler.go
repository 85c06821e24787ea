package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flatgo/backend"
	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/model"
)

var (
	// ErrBackendFailed is returned when a partial search failed and could
	// not be recovered on the fallback backend.
	ErrBackendFailed = errors.New("scheduler: backend failed")

	// ErrUnknownBackend is returned for backend names the scheduler does not know.
	ErrUnknownBackend = errors.New("scheduler: unknown backend")

	// ErrInvalidRange is returned for row ranges outside the source.
	ErrInvalidRange = errors.New("scheduler: invalid range")

	// ErrNoBackends is returned when a scheduler is created without backends.
	ErrNoBackends = errors.New("scheduler: no backends")
)

// Source is the read-only view of the vectors being searched.
// *vectorstore.Store implements it.
type Source interface {
	Dim() int
	Len() int
	Metric() distance.Metric
	Rows(start, end int) ([]float32, error)
	Norms(start, end int) ([]float32, error)
}

// Scheduler dispatches searches over a fixed set of backends.
// It is safe for concurrent use.
type Scheduler struct {
	backends []backend.Backend
	byName   map[string]backend.Backend
	fallback backend.Backend // nil if disabled
	opts     Options
}

// New creates a scheduler. Backend names must be unique, and a configured
// fallback must be one of the backends.
func New(backends []backend.Backend, optFns ...func(*Options)) (*Scheduler, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.normalize()

	s := &Scheduler{
		backends: slices.Clone(backends),
		byName:   make(map[string]backend.Backend, len(backends)),
		opts:     opts,
	}
	for _, b := range backends {
		if _, dup := s.byName[b.Name()]; dup {
			return nil, fmt.Errorf("scheduler: duplicate backend name %q", b.Name())
		}
		s.byName[b.Name()] = b
	}

	if opts.Fallback != "" {
		fb, ok := s.byName[opts.Fallback]
		if !ok {
			return nil, fmt.Errorf("%w: fallback %q", ErrUnknownBackend, opts.Fallback)
		}
		s.fallback = fb
	}
	return s, nil
}

// Backends returns the backends in dispatch order.
func (s *Scheduler) Backends() []backend.Backend {
	return slices.Clone(s.backends)
}

// Backend returns the backend with the given name.
func (s *Scheduler) Backend(name string) (backend.Backend, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// Fallback returns the fallback backend, or nil.
func (s *Scheduler) Fallback() backend.Backend {
	return s.fallback
}

// Partition returns the validated row ranges for n rows.
func (s *Scheduler) Partition(n int) ([]model.Range, error) {
	ranges, err := s.opts.Policy.Partition(n, s.backends)
	if err != nil {
		return nil, err
	}
	if len(ranges) != len(s.backends) {
		return nil, fmt.Errorf("%w: %d ranges for %d backends", ErrInvalidPartition, len(ranges), len(s.backends))
	}
	if err := ValidatePartition(n, ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

// Search writes the top-k over all rows of src for nq queries into res,
// which must hold exactly nq*k slots, and returns the number of real hits
// per query, min(k, src.Len()).
func (s *Scheduler) Search(ctx context.Context, src Source, queries []float32, nq, k int, res model.Result) (int, error) {
	if err := checkQueries(src, queries, nq); err != nil {
		return 0, err
	}
	if err := res.Check(nq, k); err != nil {
		return 0, err
	}
	n := src.Len()
	if nq == 0 || k == 0 {
		return 0, nil
	}
	if n == 0 {
		res.Pad(nq, k, 0, src.Metric())
		return 0, nil
	}

	if nq*n < s.opts.SmallWorkloadThreshold {
		b := s.fallback
		if b == nil {
			b = s.backends[0]
		}
		s.opts.Logger.Debug("small workload",
			slog.String("backend", b.Name()),
			slog.Int("queries", nq),
			slog.Int("rows", n),
		)
		return s.searchRange(ctx, src, b, model.Range{Start: 0, End: n}, queries, nq, k, res)
	}

	ranges, err := s.Partition(n)
	if err != nil {
		return 0, err
	}

	type partial struct {
		res   model.Result
		found int
	}

	var active []int
	for i, r := range ranges {
		if r.Len() > 0 {
			active = append(active, i)
		}
	}
	if len(active) == 1 {
		i := active[0]
		return s.searchRange(ctx, src, s.backends[i], ranges[i], queries, nq, k, res)
	}

	partials := make([]partial, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for j, i := range active {
		b, r := s.backends[i], ranges[i]
		g.Go(func() error {
			buf := model.NewResult(nq, k)
			found, err := s.searchRange(gctx, src, b, r, queries, nq, k, buf)
			if err != nil {
				return err
			}
			partials[j] = partial{res: buf, found: found}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, err
	}

	results := make([]model.Result, len(partials))
	founds := make([]int, len(partials))
	for j, p := range partials {
		results[j], founds[j] = p.res, p.found
	}
	if err := s.merge(ctx, src.Metric(), results, founds, nq, k, res); err != nil {
		return 0, err
	}
	return min(k, n), nil
}

// RunRange searches rows [start, end) of src on the named backend only. There
// is no fallback retry.
func (s *Scheduler) RunRange(ctx context.Context, src Source, name string, start, end int, queries []float32, nq, k int, res model.Result) (int, error) {
	b, ok := s.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	if start < 0 || end < start || end > src.Len() {
		return 0, fmt.Errorf("%w: [%d,%d) with %d rows", ErrInvalidRange, start, end, src.Len())
	}
	if err := checkQueries(src, queries, nq); err != nil {
		return 0, err
	}
	if err := res.Check(nq, k); err != nil {
		return 0, err
	}
	if nq == 0 || k == 0 {
		return 0, nil
	}
	if start == end {
		res.Pad(nq, k, 0, src.Metric())
		return 0, nil
	}

	r := model.Range{Start: start, End: end}
	found, err := s.partial(ctx, src, b, r, queries, nq, k, res, false)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %s on %s: %w", ErrBackendFailed, b.Name(), r, err)
	}
	return found, nil
}

func checkQueries(src Source, queries []float32, nq int) error {
	if nq < 0 || len(queries) != nq*src.Dim() {
		return fmt.Errorf("scheduler: %d query values for %d queries of dimension %d", len(queries), nq, src.Dim())
	}
	return nil
}

// searchRange runs one range on b, retrying once on the fallback.
func (s *Scheduler) searchRange(ctx context.Context, src Source, b backend.Backend, r model.Range, queries []float32, nq, k int, res model.Result) (int, error) {
	found, err := s.partial(ctx, src, b, r, queries, nq, k, res, false)
	if err == nil {
		return found, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	fb := s.fallback
	if fb == nil || fb.Name() == b.Name() {
		return 0, fmt.Errorf("%w: %s on %s: %w", ErrBackendFailed, b.Name(), r, err)
	}

	s.opts.Logger.Warn("backend failed, retrying on fallback",
		slog.String("backend", b.Name()),
		slog.String("fallback", fb.Name()),
		slog.String("range", r.String()),
		slog.String("error", err.Error()),
	)

	found, retryErr := s.partial(ctx, src, fb, r, queries, nq, k, res, true)
	if retryErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %s on %s: %w (fallback %s: %w)", ErrBackendFailed, b.Name(), r, err, fb.Name(), retryErr)
	}
	return found, nil
}

func (s *Scheduler) partial(ctx context.Context, src Source, b backend.Backend, r model.Range, queries []float32, nq, k int, res model.Result, retry bool) (int, error) {
	rows, err := src.Rows(r.Start, r.End)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}

	req := model.Request{
		Metric:     src.Metric(),
		Dim:        src.Dim(),
		K:          k,
		Queries:    queries,
		NumQueries: nq,
		Data:       rows,
		NumData:    r.Len(),
		Offset:     int64(r.Start),
	}
	if req.Metric == distance.MetricL2 {
		if req.Norms, err = src.Norms(r.Start, r.End); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidRange, err)
		}
	}

	if err := s.opts.Resources.AcquireWorker(ctx); err != nil {
		return 0, err
	}
	defer s.opts.Resources.ReleaseWorker()

	start := time.Now()
	found, err := b.ComputeTopK(ctx, req, res)
	s.opts.Observer.OnPartial(PartialEvent{
		Backend:  b.Name(),
		Range:    r,
		Queries:  nq,
		Duration: time.Since(start),
		Err:      err,
		Retry:    retry,
	})
	return found, err
}

// merge combines partial results query by query.
func (s *Scheduler) merge(ctx context.Context, metric distance.Metric, partials []model.Result, founds []int, nq, k int, res model.Result) error {
	total := 0
	for _, f := range founds {
		total += f
	}

	workers := min(s.opts.MergeWorkers, nq)
	chunk := (nq + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for q0 := 0; q0 < nq; q0 += chunk {
		q1 := min(q0+chunk, nq)
		g.Go(func() error {
			cands := make([]candidate, 0, total)
			for q := q0; q < q1; q++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cands = cands[:0]
				for j, p := range partials {
					idx, dist := p.Row(q, k)
					for m := 0; m < founds[j]; m++ {
						cands = append(cands, candidate{index: idx[m], distance: dist[m]})
					}
				}
				mergeRow(metric, cands, res, q, k)
			}
			return nil
		})
	}
	return g.Wait()
}

type candidate struct {
	index    int64
	distance float32
}

func mergeRow(metric distance.Metric, cands []candidate, res model.Result, q, k int) {
	slices.SortFunc(cands, func(a, b candidate) int {
		if c := metric.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	idx, dist := res.Row(q, k)
	n := min(k, len(cands))
	for j := range n {
		idx[j] = cands[j].index
		dist[j] = cands[j].distance
	}
	worst := metric.Worst()
	for j := n; j < k; j++ {
		idx[j] = model.NoIndex
		dist[j] = worst
	}
}
