package kernel

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// BLAS runs on gonum's blas32 implementation (or any implementation
// registered with blas32.Use).
type BLAS struct{}

var _ Kernel = BLAS{}

// Name implements Kernel.
func (BLAS) Name() string { return "blas" }

// Gemm implements Kernel.
func (BLAS) Gemm(transA, transB bool, a, b, c Matrix) error {
	ok, err := checkGemm(transA, transB, a, b, c)
	if err != nil || !ok {
		return err
	}
	_, inner := op(a, transA)
	if inner == 0 {
		// gonum rejects zero inner dimensions with non-zero outputs.
		for i := 0; i < c.Rows; i++ {
			clear(c.Data[i*c.Stride : i*c.Stride+c.Cols])
		}
		return nil
	}

	blas32.Gemm(
		transpose(transA),
		transpose(transB),
		1,
		general(a),
		general(b),
		0,
		general(c),
	)
	return nil
}

// RowSquaredNorms implements Kernel.
func (BLAS) RowSquaredNorms(dst, vectors []float32, dim int) error {
	n, err := checkNorms(dst, vectors, dim)
	if err != nil {
		return err
	}
	for i := range n {
		v := blas32.Vector{N: dim, Inc: 1, Data: vectors[i*dim : (i+1)*dim]}
		dst[i] = blas32.Dot(v, v)
	}
	return nil
}

func transpose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func general(m Matrix) blas32.General {
	return blas32.General{Rows: m.Rows, Cols: m.Cols, Stride: m.Stride, Data: m.Data}
}
