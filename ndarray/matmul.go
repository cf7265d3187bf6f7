package ndarray

import "github.com/tensorforge/core/errs"

// Dot computes the 2-D matrix product a @ b. Both operands must be rank 2
// with matching inner dimension.
func (a *NdArray) Dot(b *NdArray) (*NdArray, error) {
	if a.shape.Rank() != 2 || b.shape.Rank() != 2 {
		return nil, errs.New(errs.KindShapeMismatch, "Dot requires rank-2 operands, got %s and %s", a.shape, b.shape)
	}
	m, k1 := a.shape.Dim(0), a.shape.Dim(1)
	k2, n := b.shape.Dim(0), b.shape.Dim(1)
	if k1 != k2 {
		return nil, errs.New(errs.KindShapeMismatch, "inner dims mismatch: %s vs %s", a.shape, b.shape)
	}
	out := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for p := 0; p < k1; p++ {
			av := a.buf[i*k1+p]
			if av == 0 {
				continue
			}
			rowOff := p * n
			outOff := i * n
			for j := 0; j < n; j++ {
				out[outOff+j] += av * b.buf[rowOff+j]
			}
		}
	}
	return newRaw(NewShape(m, n), out), nil
}
