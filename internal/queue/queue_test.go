package queue

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK_Ascending(t *testing.T) {
	q := NewTopK(3, false)

	for i, d := range []float32{5, 1, 4, 2, 3, 0.5} {
		q.Push(Item{Index: int64(i), Distance: d})
	}
	require.Equal(t, 3, q.Len())

	worst, ok := q.Worst()
	require.True(t, ok)
	assert.Equal(t, float32(2), worst.Distance)

	indices := make([]int64, 3)
	distances := make([]float32, 3)
	n := q.Drain(indices, distances)

	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{0.5, 1, 2}, distances)
	assert.Equal(t, []int64{5, 1, 3}, indices)
	assert.Equal(t, 0, q.Len())
}

func TestTopK_Descending(t *testing.T) {
	q := NewTopK(2, true)

	for i, d := range []float32{-1, 3, 2, 7, 0} {
		q.Push(Item{Index: int64(i), Distance: d})
	}

	indices := make([]int64, 2)
	distances := make([]float32, 2)
	q.Drain(indices, distances)

	assert.Equal(t, []float32{7, 3}, distances)
	assert.Equal(t, []int64{3, 1}, indices)
}

func TestTopK_StrictAdmission(t *testing.T) {
	q := NewTopK(1, false)

	assert.True(t, q.Push(Item{Index: 0, Distance: 1}))
	// Equal is not strictly better.
	assert.False(t, q.Push(Item{Index: 1, Distance: 1}))
	assert.False(t, q.Admits(1))
	assert.True(t, q.Admits(0.5))

	item, ok := q.Worst()
	require.True(t, ok)
	assert.Equal(t, int64(0), item.Index)
}

func TestTopK_DropsNaN(t *testing.T) {
	nan := float32(math.NaN())
	for _, descending := range []bool{false, true} {
		q := NewTopK(1, descending)
		assert.False(t, q.Admits(nan))
		assert.False(t, q.Push(Item{Index: 0, Distance: nan}))
		assert.True(t, q.Push(Item{Index: 1, Distance: 1}))
		assert.False(t, q.Push(Item{Index: 2, Distance: nan}))

		item, ok := q.Worst()
		require.True(t, ok)
		assert.Equal(t, int64(1), item.Index)
	}
}

func TestTopK_ZeroCapacity(t *testing.T) {
	q := NewTopK(0, false)
	assert.False(t, q.Push(Item{Index: 1, Distance: 1}))
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Full())

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestTopK_FewerThanK(t *testing.T) {
	q := NewTopK(10, false)
	q.Push(Item{Index: 7, Distance: 2})
	q.Push(Item{Index: 9, Distance: 1})

	indices := make([]int64, 10)
	distances := make([]float32, 10)
	n := q.Drain(indices, distances)

	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{9, 7}, indices[:n])
}

func TestTopK_MatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, descending := range []bool{false, true} {
		for _, k := range []int{1, 5, 32, 100} {
			q := NewTopK(k, descending)
			values := make([]float32, 500)
			for i := range values {
				values[i] = rng.Float32()
				q.Push(Item{Index: int64(i), Distance: values[i]})
			}

			slices.Sort(values)
			if descending {
				slices.Reverse(values)
			}

			indices := make([]int64, k)
			distances := make([]float32, k)
			q.Drain(indices, distances)
			assert.Equal(t, values[:k], distances, "k=%d descending=%v", k, descending)

			q.Reset()
			assert.Equal(t, 0, q.Len())
			assert.Equal(t, k, q.Cap())
		}
	}
}
