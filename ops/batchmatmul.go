package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// batchMatMulFn generalizes matMulFn to a leading batch axis: (batch, m,
// k) @ (batch, k, n) -> (batch, m, n), one independent 2-D Dot per batch
// slice. Needed for multi-head attention's (batch*heads, seq, head_dim)
// score and context products, which spec.md §4.1's rank-2-only Dot does
// not cover on its own.
type batchMatMulFn struct {
	a, b *ndarray.NdArray
}

func (batchMatMulFn) NumInputs() int { return 2 }

func (f *batchMatMulFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	a, b := in[0], in[1]
	if a.Shape().Rank() != 3 || b.Shape().Rank() != 3 {
		return nil, errs.New(errs.KindShapeMismatch, "BatchMatMul requires rank-3 operands, got %s and %s", a.Shape(), b.Shape())
	}
	batch, m, k1 := a.Shape().Dim(0), a.Shape().Dim(1), a.Shape().Dim(2)
	bBatch, k2, n := b.Shape().Dim(0), b.Shape().Dim(1), b.Shape().Dim(2)
	if batch != bBatch || k1 != k2 {
		return nil, errs.New(errs.KindShapeMismatch, "BatchMatMul shape mismatch: %s vs %s", a.Shape(), b.Shape())
	}
	f.a, f.b = a, b
	out, err := batchDot(a, b, batch, m, k1, n)
	if err != nil {
		return nil, err
	}
	result, err := ndarray.Of(out, ndarray.NewShape(batch, m, n))
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}

func (f *batchMatMulFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	batch, m, k := f.a.Shape().Dim(0), f.a.Shape().Dim(1), f.a.Shape().Dim(2)
	n := f.b.Shape().Dim(2)

	bT, err := batchTranspose(f.b, batch, k, n)
	if err != nil {
		return nil, err
	}
	daData, err := batchDot(g[0], bT, batch, m, n, k)
	if err != nil {
		return nil, err
	}
	da, err := ndarray.Of(daData, ndarray.NewShape(batch, m, k))
	if err != nil {
		return nil, err
	}

	aT, err := batchTranspose(f.a, batch, m, k)
	if err != nil {
		return nil, err
	}
	dbData, err := batchDot(aT, g[0], batch, k, m, n)
	if err != nil {
		return nil, err
	}
	db, err := ndarray.Of(dbData, ndarray.NewShape(batch, k, n))
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{da, db}, nil
}

// batchDot multiplies corresponding (m,k)/(k,n) slices of a and b, batch
// slices at a time, returning the flat (batch, m, n) result buffer.
func batchDot(a, b *ndarray.NdArray, batch, m, k, n int) ([]float32, error) {
	aData, bData := a.Data(), b.Data()
	out := make([]float32, batch*m*n)
	for bi := 0; bi < batch; bi++ {
		aSlice, err := ndarray.Of(aData[bi*m*k:(bi+1)*m*k], ndarray.NewShape(m, k))
		if err != nil {
			return nil, err
		}
		bSlice, err := ndarray.Of(bData[bi*k*n:(bi+1)*k*n], ndarray.NewShape(k, n))
		if err != nil {
			return nil, err
		}
		slice, err := aSlice.Dot(bSlice)
		if err != nil {
			return nil, err
		}
		copy(out[bi*m*n:(bi+1)*m*n], slice.Data())
	}
	return out, nil
}

// batchTranspose transposes each (rows, cols) slice of a batch of
// matrices independently.
func batchTranspose(a *ndarray.NdArray, batch, rows, cols int) (*ndarray.NdArray, error) {
	data := a.Data()
	out := make([]float32, batch*rows*cols)
	for bi := 0; bi < batch; bi++ {
		base := bi * rows * cols
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out[base+j*rows+i] = data[base+i*cols+j]
			}
		}
	}
	return ndarray.Of(out, ndarray.NewShape(batch, cols, rows))
}

// BatchMatMul computes a @ b independently over a's and b's leading batch
// axis: (batch, m, k) @ (batch, k, n) -> (batch, m, n).
func BatchMatMul(ctx autograd.Context, a, b *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &batchMatMulFn{}, a, b)
}
