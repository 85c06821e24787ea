// Package kernel provides the two dense primitives every compute backend must
// supply: a general matrix multiply and row squared norms.
//
// GPU and accelerator drivers implement Kernel out of tree and plug into
// backend.New together with their device description.
package kernel

import (
	"errors"
	"fmt"
)

// ErrShape is returned when matrix or vector shapes are inconsistent.
var ErrShape = errors.New("kernel: shape mismatch")

// Matrix is a row-major float32 matrix view. Element (i, j) is
// Data[i*Stride+j].
type Matrix struct {
	Rows   int
	Cols   int
	Stride int
	Data   []float32
}

// Dense returns a contiguous rows x cols view over data.
func Dense(rows, cols int, data []float32) Matrix {
	return Matrix{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

func (m Matrix) validate(name string) error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: %s has negative shape %dx%d", ErrShape, name, m.Rows, m.Cols)
	}
	if m.Rows == 0 || m.Cols == 0 {
		return nil
	}
	if m.Stride < m.Cols {
		return fmt.Errorf("%w: %s stride %d < cols %d", ErrShape, name, m.Stride, m.Cols)
	}
	if need := (m.Rows-1)*m.Stride + m.Cols; len(m.Data) < need {
		return fmt.Errorf("%w: %s holds %d values, need %d", ErrShape, name, len(m.Data), need)
	}
	return nil
}

// op returns the shape of op(m).
func op(m Matrix, trans bool) (rows, cols int) {
	if trans {
		return m.Cols, m.Rows
	}
	return m.Rows, m.Cols
}

// Kernel is the compute capability a backend drives.
type Kernel interface {
	// Name identifies the implementation.
	Name() string

	// Gemm computes C = op(A) * op(B), overwriting C.
	Gemm(transA, transB bool, a, b, c Matrix) error

	// RowSquaredNorms writes the squared L2 norm of each dim-sized row of
	// vectors into dst.
	RowSquaredNorms(dst, vectors []float32, dim int) error
}

// checkGemm validates the operands and reports whether there is any work.
func checkGemm(transA, transB bool, a, b, c Matrix) (bool, error) {
	for _, m := range []struct {
		name string
		m    Matrix
	}{{"A", a}, {"B", b}, {"C", c}} {
		if err := m.m.validate(m.name); err != nil {
			return false, err
		}
	}

	m, ka := op(a, transA)
	kb, n := op(b, transB)
	if ka != kb {
		return false, fmt.Errorf("%w: inner dimensions %d and %d differ", ErrShape, ka, kb)
	}
	if c.Rows != m || c.Cols != n {
		return false, fmt.Errorf("%w: C is %dx%d, want %dx%d", ErrShape, c.Rows, c.Cols, m, n)
	}
	return m > 0 && n > 0, nil
}

func checkNorms(dst, vectors []float32, dim int) (int, error) {
	if dim <= 0 {
		return 0, fmt.Errorf("%w: dimension %d", ErrShape, dim)
	}
	if len(vectors)%dim != 0 {
		return 0, fmt.Errorf("%w: %d values are not a multiple of dimension %d", ErrShape, len(vectors), dim)
	}
	n := len(vectors) / dim
	if len(dst) < n {
		return 0, fmt.Errorf("%w: norm buffer holds %d values, need %d", ErrShape, len(dst), n)
	}
	return n, nil
}
