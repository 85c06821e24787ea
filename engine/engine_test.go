package engine

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/kernel"
	"github.com/hupe1980/flatgo/model"
	"github.com/hupe1980/flatgo/resource"
	"github.com/hupe1980/flatgo/testutil"
)

func request(metric distance.Metric, dim, k int, queries, data []float32) model.Request {
	return model.Request{
		Metric:     metric,
		Dim:        dim,
		K:          k,
		Queries:    queries,
		NumQueries: len(queries) / dim,
		Data:       data,
		NumData:    len(data) / dim,
	}
}

func TestBlockSizes(t *testing.T) {
	tests := []struct {
		name           string
		nx, ny, dim, w int
		budget         int64
		bx, by         int
	}{
		{"single query", 1, 1000, 4, 8, DefaultMemoryBudget, 1, 1000},
		{"split across workers", 100, 10, 4, 4, DefaultMemoryBudget, 25, 10},
		{"query cap", 100000, 10, 4, 1, DefaultMemoryBudget, MaxQueryBlock, 10},
		{"budget bound", 10, 1 << 30, 6, 1, 64, 10, 1},
		{"budget division", 4, 1000, 4, 1, 4 * 80, 4, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bx, by := BlockSizes(tt.nx, tt.ny, tt.dim, tt.w, tt.budget)
			assert.Equal(t, tt.bx, bx)
			assert.Equal(t, tt.by, by)
		})
	}
}

func TestSearch_MatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(7)
	const dim = 8

	data := rng.IntegerVectors(500, dim, 5)
	queries := rng.IntegerVectors(37, dim, 5)

	for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricInnerProduct} {
		for _, k := range []int{1, 10, 600} {
			want := testutil.BruteForce(metric, data, queries, dim, k)

			for _, kern := range []kernel.Kernel{kernel.Reference{}, kernel.BLAS{}} {
				// Tiny budget forces many data blocks.
				e := New(kern, WithWorkers(3), WithMemoryBudget(1024))
				res := model.NewResult(37, k)

				found, err := e.Search(context.Background(), request(metric, dim, k, queries, data), res)
				require.NoError(t, err)
				assert.Equal(t, min(k, 500), found)

				for q := range 37 {
					idx, dist := res.Row(q, k)
					require.NoError(t, testutil.MatchTopK(metric, want[q], idx, dist, 0),
						"metric=%s k=%d kernel=%s query=%d", metric, k, kern.Name(), q)
				}
			}
		}
	}
}

func TestSearch_L2NonNegative(t *testing.T) {
	rng := testutil.NewRNG(3)
	const dim = 16
	data := rng.UniformVectors(200, dim)
	// Queries equal to data rows: identity cancellation may dip below zero.
	queries := append([]float32(nil), data[:20*dim]...)

	e := New(kernel.Reference{})
	res := model.NewResult(20, 5)
	_, err := e.Search(context.Background(), request(distance.MetricL2, dim, 5, queries, data), res)
	require.NoError(t, err)

	for _, d := range res.Distances {
		assert.GreaterOrEqual(t, d, float32(0))
	}

	want := testutil.BruteForce(distance.MetricL2, data, queries, dim, 5)
	for q := range 20 {
		_, dist := res.Row(q, 5)
		for j, w := range want[q] {
			assert.InDelta(t, w.Distance, dist[j], 1e-4*math.Max(1, float64(w.Distance)))
		}
	}
}

func TestSearch_CachedNorms(t *testing.T) {
	data := []float32{0, 0, 1, 0, 2, 0}
	norms := []float32{0, 1, 4}

	req := request(distance.MetricL2, 2, 2, []float32{1.9, 0}, data)
	req.Norms = norms
	req.Offset = 100

	res := model.NewResult(1, 2)
	found, err := New(kernel.Reference{}).Search(context.Background(), req, res)
	require.NoError(t, err)

	assert.Equal(t, 2, found)
	assert.Equal(t, []int64{102, 101}, res.Indices)
}

func TestSearch_Padding(t *testing.T) {
	data := []float32{1, 0, 0, 1}
	for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricInnerProduct} {
		res := model.NewResult(1, 4)
		found, err := New(kernel.Reference{}).Search(context.Background(), request(metric, 2, 4, []float32{1, 0}, data), res)
		require.NoError(t, err)

		assert.Equal(t, 2, found)
		assert.Equal(t, int64(0), res.Indices[0])
		assert.Equal(t, []int64{model.NoIndex, model.NoIndex}, res.Indices[2:])
		assert.Equal(t, metric.Worst(), res.Distances[3])
	}
}

func TestSearch_Ordering(t *testing.T) {
	rng := testutil.NewRNG(11)
	data := rng.UniformVectors(300, 4)
	queries := rng.UniformVectors(5, 4)

	for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricInnerProduct} {
		res := model.NewResult(5, 20)
		_, err := New(kernel.BLAS{}).Search(context.Background(), request(metric, 4, 20, queries, data), res)
		require.NoError(t, err)

		for q := range 5 {
			_, dist := res.Row(q, 20)
			for j := 1; j < len(dist); j++ {
				assert.False(t, metric.Better(dist[j], dist[j-1]), "metric=%s q=%d j=%d", metric, q, j)
			}
		}
	}
}

func TestSearch_EmptyRequest(t *testing.T) {
	e := New(kernel.Reference{})
	res := model.NewResult(1, 3)
	res.Indices[0] = 42

	found, err := e.Search(context.Background(), request(distance.MetricL2, 2, 3, []float32{1, 1}, nil), res)
	require.NoError(t, err)
	assert.Equal(t, 0, found)
	assert.Equal(t, int64(42), res.Indices[0])

	found, err = e.Search(context.Background(), request(distance.MetricL2, 2, 0, []float32{1, 1}, []float32{1, 1}), model.Result{})
	require.NoError(t, err)
	assert.Equal(t, 0, found)
}

func TestSearch_BufferMismatch(t *testing.T) {
	e := New(kernel.Reference{})
	_, err := e.Search(context.Background(), request(distance.MetricL2, 2, 3, []float32{1, 1}, []float32{1, 1}), model.NewResult(1, 2))
	assert.Error(t, err)
}

func TestSearch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := testutil.NewRNG(1)
	data := rng.UniformVectors(100, 4)
	_, err := New(kernel.Reference{}).Search(ctx, request(distance.MetricL2, 4, 1, data[:4], data), model.NewResult(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_MemoryLimit(t *testing.T) {
	rng := testutil.NewRNG(1)
	data := rng.UniformVectors(1000, 4)
	queries := rng.UniformVectors(64, 4)

	t.Run("no buffer fits", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
		e := New(kernel.Reference{}, WithResources(rc))
		_, err := e.Search(context.Background(), request(distance.MetricL2, 4, 1, queries, data), model.NewResult(64, 1))
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	})

	t.Run("fewer workers", func(t *testing.T) {
		bx, by := BlockSizes(64, 1000, 4, 8, DefaultMemoryBudget)
		rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(bx*by*4) * 2})
		e := New(kernel.Reference{}, WithResources(rc), WithWorkers(8))

		res := model.NewResult(64, 1)
		_, err := e.Search(context.Background(), request(distance.MetricL2, 4, 1, queries, data), res)
		require.NoError(t, err)
		assert.Zero(t, rc.MemoryUsage())

		want := testutil.BruteForce(distance.MetricL2, data, queries, 4, 1)
		for q := range 64 {
			assert.InDelta(t, want[q][0].Distance, res.Distances[q], 1e-4)
		}
	})
	t.Run("shared one-buffer budget", func(t *testing.T) {
		bx, by := BlockSizes(64, 1000, 4, 1, DefaultMemoryBudget)
		rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(bx * by * 4)})
		engines := []*Engine{
			New(kernel.Reference{}, WithResources(rc), WithWorkers(1)),
			New(kernel.BLAS{}, WithResources(rc), WithWorkers(1)),
		}

		var wg sync.WaitGroup
		errs := make(chan error, 8*25)
		for g := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e := engines[g%len(engines)]
				for range 25 {
					_, err := e.Search(context.Background(), request(distance.MetricL2, 4, 3, queries, data), model.NewResult(64, 3))
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("waiting for budget honours ctx", func(t *testing.T) {
		bx, by := BlockSizes(64, 1000, 4, 1, DefaultMemoryBudget)
		rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(bx * by * 4)})
		require.NoError(t, rc.ReserveMemory(1))
		defer rc.ReleaseMemory(1)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		e := New(kernel.Reference{}, WithResources(rc), WithWorkers(1))
		_, err := e.Search(ctx, request(distance.MetricL2, 4, 1, queries, data), model.NewResult(64, 1))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSearch_WorkerSlots(t *testing.T) {
	rng := testutil.NewRNG(3)
	data := rng.UniformVectors(1000, 4)
	queries := rng.UniformVectors(64, 4)

	rc := resource.NewController(resource.Config{MaxWorkers: 2})
	require.NoError(t, rc.AcquireWorker(context.Background()))

	e := New(kernel.Reference{}, WithResources(rc), WithWorkers(8))
	res := model.NewResult(64, 2)
	_, err := e.Search(context.Background(), request(distance.MetricInnerProduct, 4, 2, queries, data), res)
	require.NoError(t, err)

	rc.ReleaseWorker()
	assert.Zero(t, rc.ActiveWorkers())

	want := testutil.BruteForce(distance.MetricInnerProduct, data, queries, 4, 2)
	for q := range 64 {
		assert.InDelta(t, want[q][0].Distance, res.Distances[q*2], 1e-4)
	}
}

func TestSearch_SkipsNaNScores(t *testing.T) {
	nan := float32(math.NaN())
	data := []float32{nan, 0, 1, 0, 0.5, 0}

	for _, metric := range []distance.Metric{distance.MetricInnerProduct, distance.MetricL2} {
		res := model.NewResult(1, 1)
		_, err := New(kernel.Reference{}).Search(context.Background(), request(metric, 2, 1, []float32{1, 0}, data), res)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Indices[0], metric.String())
	}
}
