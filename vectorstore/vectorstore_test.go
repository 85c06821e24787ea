package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/distance"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(0, distance.MetricL2)
	assert.ErrorIs(t, err, ErrWrongDimension)

	_, err = New(4, distance.Metric(7))
	assert.Error(t, err)

	s, err := New(4, distance.MetricInnerProduct)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Dim())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Cap())
	assert.Equal(t, distance.MetricInnerProduct, s.Metric())
}

func TestAdd(t *testing.T) {
	s, err := New(2, distance.MetricL2)
	require.NoError(t, err)

	require.NoError(t, s.Add([]float32{1, 2, 3, 4}, 2))
	assert.Equal(t, 2, s.Len())

	row, err := s.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, row)

	norms, err := s.Norms(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 25}, norms)

	assert.ErrorIs(t, s.Add([]float32{1, 2, 3}, 2), ErrWrongDimension)
	assert.ErrorIs(t, s.Add([]float32{1, 2, 3, 4}, 1), ErrWrongDimension)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Add(nil, 0))
	assert.Equal(t, 2, s.Len())
}

func TestGrowth(t *testing.T) {
	s, err := New(3, distance.MetricL2)
	require.NoError(t, err)

	var all []float32
	for batch := 1; batch <= 20; batch++ {
		vectors := make([]float32, batch*3)
		for i := range vectors {
			vectors[i] = float32(len(all) + i)
		}
		require.NoError(t, s.Add(vectors, batch))
		all = append(all, vectors...)

		assert.Greater(t, s.Cap(), s.Len())
		assert.Equal(t, all, s.Data())
	}
}

func TestGrowth_Doubling(t *testing.T) {
	s, err := New(1, distance.MetricL2)
	require.NoError(t, err)

	require.NoError(t, s.Add([]float32{1}, 1))
	assert.Equal(t, 2, s.Cap())

	require.NoError(t, s.Add([]float32{2}, 1))
	assert.Equal(t, 4, s.Cap())

	require.NoError(t, s.Add([]float32{3, 4, 5, 6, 7}, 5))
	assert.Equal(t, 8, s.Cap())

	s2, err := NewWithCapacity(1, 10, distance.MetricL2)
	require.NoError(t, err)
	require.NoError(t, s2.Add([]float32{1, 2, 3}, 3))
	assert.Equal(t, 10, s2.Cap())
}

func TestRowsAndBounds(t *testing.T) {
	s, err := New(2, distance.MetricInnerProduct)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1, 0, 0, 1, 1, 1}, 3))

	rows, err := s.Rows(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 1, 1}, rows)

	_, err = s.Rows(2, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.Rows(2, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.Row(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.Norms(0, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	empty, err := s.Rows(3, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReconstruct(t *testing.T) {
	s, err := New(2, distance.MetricL2)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1, 2, 3, 4}, 2))

	out := make([]float32, 2)
	require.NoError(t, s.Reconstruct(1, out))
	assert.Equal(t, []float32{3, 4}, out)

	// The copy does not alias the store.
	out[0] = 99
	row, _ := s.Row(1)
	assert.Equal(t, float32(3), row[0])

	assert.ErrorIs(t, s.Reconstruct(2, out), ErrOutOfRange)
	assert.ErrorIs(t, s.Reconstruct(-1, out), ErrOutOfRange)
	assert.ErrorIs(t, s.Reconstruct(0, make([]float32, 3)), ErrWrongDimension)
}

func TestRestore(t *testing.T) {
	s, err := New(2, distance.MetricL2)
	require.NoError(t, err)
	require.NoError(t, s.Add([]float32{1, 1}, 1))

	require.NoError(t, s.Restore(3, distance.MetricInnerProduct, []float32{1, 2, 2, 0, 0, 3}))
	assert.Equal(t, 3, s.Dim())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Cap())
	assert.Equal(t, distance.MetricInnerProduct, s.Metric())

	norms, err := s.Norms(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9}, norms)

	// Appending after a restore keeps working.
	require.NoError(t, s.Add([]float32{0, 0, 1}, 1))
	assert.Equal(t, 3, s.Len())

	// Invalid restores leave the store unchanged.
	assert.Error(t, s.Restore(0, distance.MetricL2, nil))
	assert.Error(t, s.Restore(2, distance.MetricL2, []float32{1, 2, 3}))
	assert.Error(t, s.Restore(3, distance.Metric(5), []float32{1, 2, 3}))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.Dim())
}
