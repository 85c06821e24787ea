package flatgo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/flatgo/model"
)

// NoIndex marks result slots that hold no vector.
const NoIndex = model.NoIndex

// Hit is one search result.
type Hit struct {
	Index    int64   `json:"index"`
	Distance float32 `json:"distance"`
}

// Results holds the top-k of a batch of queries. Row q occupies
// Indices[q*K:(q+1)*K] and Distances[q*K:(q+1)*K], best first. Slots past
// Found are padding: NoIndex with the metric's worst distance.
type Results struct {
	NumQueries int
	K          int
	Found      int
	Indices    []int64
	Distances  []float32
}

func newResults(nq, k int) *Results {
	res := model.NewResult(nq, k)
	return &Results{
		NumQueries: nq,
		K:          k,
		Indices:    res.Indices,
		Distances:  res.Distances,
	}
}

func (r *Results) model() model.Result {
	return model.Result{Indices: r.Indices, Distances: r.Distances}
}

// Row returns all k slots of query q, padding included.
func (r *Results) Row(q int) ([]int64, []float32) {
	return r.model().Row(q, r.K)
}

// Hits returns the real hits of query q.
func (r *Results) Hits(q int) []Hit {
	idx, dist := r.Row(q)
	hits := make([]Hit, r.Found)
	for j := range hits {
		hits[j] = Hit{Index: idx[j], Distance: dist[j]}
	}
	return hits
}

// Search returns the exact top-k of nq queries stored row-major in queries.
// Each query row gets min(k, Len()) hits; the rest of its k slots is padding.
func (idx *Index) Search(ctx context.Context, queries []float32, nq, k int) (*Results, error) {
	if k <= 0 {
		return nil, idx.searchFailed(ctx, time.Now(), nq, k, fmt.Errorf("%w: got %d", ErrInvalidK, k))
	}
	if nq < 0 {
		return nil, idx.searchFailed(ctx, time.Now(), nq, k, fmt.Errorf("negative query count %d", nq))
	}
	res := newResults(nq, k)
	found, err := idx.SearchInto(ctx, queries, nq, k, res.Indices, res.Distances)
	if err != nil {
		return nil, err
	}
	res.Found = found
	return res, nil
}

// SearchInto is Search writing into caller-owned buffers of exactly nq*k
// slots each. It returns the number of real hits per query.
func (idx *Index) SearchInto(ctx context.Context, queries []float32, nq, k int, indices []int64, distances []float32) (int, error) {
	start := time.Now()
	if k <= 0 {
		return 0, idx.searchFailed(ctx, start, nq, k, fmt.Errorf("%w: got %d", ErrInvalidK, k))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := checkBatch(idx.store.Dim(), nq, queries); err != nil {
		return 0, idx.searchFailed(ctx, start, nq, k, err)
	}
	if err := checkFinite(idx.store.Dim(), queries); err != nil {
		return 0, idx.searchFailed(ctx, start, nq, k, err)
	}

	res := model.Result{Indices: indices, Distances: distances}
	found, err := idx.sched.Search(ctx, idx.store, queries, nq, k, res)
	if err != nil {
		return 0, idx.searchFailed(ctx, start, nq, k, err)
	}

	idx.metrics.RecordSearch(nq, k, time.Since(start), nil)
	idx.logger.LogSearch(ctx, nq, k, found, nil)
	return found, nil
}

// QueryRange searches only the rows [start, end) on the named backend. There
// is no fallback retry. Returned indices are global row indices.
func (idx *Index) QueryRange(ctx context.Context, k, start, end int, backend string, queries []float32, nq int) (*Results, error) {
	begin := time.Now()
	if k <= 0 {
		return nil, idx.searchFailed(ctx, begin, nq, k, fmt.Errorf("%w: got %d", ErrInvalidK, k))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := checkBatch(idx.store.Dim(), nq, queries); err != nil {
		return nil, idx.searchFailed(ctx, begin, nq, k, err)
	}
	if err := checkFinite(idx.store.Dim(), queries); err != nil {
		return nil, idx.searchFailed(ctx, begin, nq, k, err)
	}

	res := newResults(nq, k)
	found, err := idx.sched.RunRange(ctx, idx.store, backend, start, end, queries, nq, k, res.model())
	if err != nil {
		return nil, idx.searchFailed(ctx, begin, nq, k, err)
	}
	res.Found = found

	idx.metrics.RecordSearch(nq, k, time.Since(begin), nil)
	idx.logger.LogSearch(ctx, nq, k, found, nil)
	return res, nil
}

func (idx *Index) searchFailed(ctx context.Context, start time.Time, nq, k int, err error) error {
	err = translateError(err)
	idx.metrics.RecordSearch(nq, k, time.Since(start), err)
	idx.logger.LogSearch(ctx, nq, k, 0, err)
	return err
}
