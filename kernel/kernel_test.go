package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kernels() []Kernel {
	return []Kernel{Reference{}, BLAS{}}
}

// transposeOf returns the row-major transpose of a rows x cols matrix.
func transposeOf(rows, cols int, data []float32) []float32 {
	out := make([]float32, len(data))
	for i := range rows {
		for j := range cols {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}

func TestGemm(t *testing.T) {
	// A is 2x3, B is 3x2.
	a := []float32{1, 2, 3, 4, 5, 6}
	b := []float32{7, 8, 9, 10, 11, 12}
	want := []float32{58, 64, 139, 154}

	for _, k := range kernels() {
		t.Run(k.Name(), func(t *testing.T) {
			cases := []struct {
				name           string
				transA, transB bool
				a, b           Matrix
			}{
				{"NN", false, false, Dense(2, 3, a), Dense(3, 2, b)},
				{"NT", false, true, Dense(2, 3, a), Dense(2, 3, transposeOf(3, 2, b))},
				{"TN", true, false, Dense(3, 2, transposeOf(2, 3, a)), Dense(3, 2, b)},
				{"TT", true, true, Dense(3, 2, transposeOf(2, 3, a)), Dense(2, 3, transposeOf(3, 2, b))},
			}
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					c := Dense(2, 2, make([]float32, 4))
					require.NoError(t, k.Gemm(tc.transA, tc.transB, tc.a, tc.b, c))
					assert.Equal(t, want, c.Data)
				})
			}
		})
	}
}

func TestGemm_Strided(t *testing.T) {
	// Two rows of dim 2 embedded in stride 3.
	a := Matrix{Rows: 2, Cols: 2, Stride: 3, Data: []float32{1, 2, -1, 3, 4, -1}}
	b := Dense(1, 2, []float32{1, 1})

	for _, k := range kernels() {
		c := Matrix{Rows: 2, Cols: 1, Stride: 2, Data: []float32{0, 99, 0, 99}}
		require.NoError(t, k.Gemm(false, true, a, b, c), k.Name())
		assert.Equal(t, []float32{3, 99, 7, 99}, c.Data, k.Name())
	}
}

func TestGemm_ShapeErrors(t *testing.T) {
	for _, k := range kernels() {
		t.Run(k.Name(), func(t *testing.T) {
			err := k.Gemm(false, true, Dense(2, 3, make([]float32, 6)), Dense(2, 2, make([]float32, 4)), Dense(2, 2, make([]float32, 4)))
			assert.ErrorIs(t, err, ErrShape)

			err = k.Gemm(false, true, Dense(2, 3, make([]float32, 6)), Dense(2, 3, make([]float32, 6)), Dense(2, 3, make([]float32, 6)))
			assert.ErrorIs(t, err, ErrShape)

			err = k.Gemm(false, true, Dense(2, 3, make([]float32, 5)), Dense(2, 3, make([]float32, 6)), Dense(2, 2, make([]float32, 4)))
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestGemm_Empty(t *testing.T) {
	for _, k := range kernels() {
		c := Dense(0, 2, nil)
		assert.NoError(t, k.Gemm(false, true, Dense(0, 3, nil), Dense(2, 3, make([]float32, 6)), c), k.Name())
	}
}

func TestRowSquaredNorms(t *testing.T) {
	vectors := []float32{1, 2, 2, 0, 0, 0, -3, 4, 0}
	for _, k := range kernels() {
		t.Run(k.Name(), func(t *testing.T) {
			dst := make([]float32, 3)
			require.NoError(t, k.RowSquaredNorms(dst, vectors, 3))
			assert.Equal(t, []float32{9, 0, 25}, dst)

			assert.ErrorIs(t, k.RowSquaredNorms(dst, vectors[:8], 3), ErrShape)
			assert.ErrorIs(t, k.RowSquaredNorms(dst[:2], vectors, 3), ErrShape)
			assert.ErrorIs(t, k.RowSquaredNorms(dst, vectors, 0), ErrShape)

			long := []float32{-1, -1, -1, -1}
			require.NoError(t, k.RowSquaredNorms(long, []float32{1, 2, 3, 4}, 2))
			assert.Equal(t, []float32{5, 25, -1, -1}, long)
		})
	}
}
