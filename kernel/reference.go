package kernel

import "github.com/hupe1980/flatgo/distance"

// Reference is the portable pure Go kernel. It is the fallback every host
// can run.
type Reference struct{}

var _ Kernel = Reference{}

// Name implements Kernel.
func (Reference) Name() string { return "reference" }

// Gemm implements Kernel.
func (Reference) Gemm(transA, transB bool, a, b, c Matrix) error {
	ok, err := checkGemm(transA, transB, a, b, c)
	if err != nil || !ok {
		return err
	}

	_, inner := op(a, transA)

	// Row-by-row dot products is the hot path: A * B^T with both row-major.
	if !transA && transB {
		for i := 0; i < c.Rows; i++ {
			x := a.Data[i*a.Stride : i*a.Stride+inner]
			out := c.Data[i*c.Stride : i*c.Stride+c.Cols]
			for j := range out {
				out[j] = distance.Dot(x, b.Data[j*b.Stride:j*b.Stride+inner])
			}
		}
		return nil
	}

	at := func(m Matrix, trans bool, i, j int) float32 {
		if trans {
			return m.Data[j*m.Stride+i]
		}
		return m.Data[i*m.Stride+j]
	}
	for i := 0; i < c.Rows; i++ {
		for j := 0; j < c.Cols; j++ {
			var s float32
			for p := 0; p < inner; p++ {
				s += at(a, transA, i, p) * at(b, transB, p, j)
			}
			c.Data[i*c.Stride+j] = s
		}
	}
	return nil
}

// RowSquaredNorms implements Kernel.
func (Reference) RowSquaredNorms(dst, vectors []float32, dim int) error {
	n, err := checkNorms(dst, vectors, dim)
	if err != nil {
		return err
	}
	distance.SquaredNorms(dst[:n], vectors, dim)
	return nil
}
