package ops

import (
	"sort"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// topKFn selects the k largest values per row of a rank-2 Variable,
// along with their column indices. Both outputs are non-differentiable:
// Backward always reports a zero gradient for x, regardless of the
// upstream gradient on the selected values.
type topKFn struct {
	k       int
	inShape ndarray.Shape
}

func (topKFn) NumInputs() int { return 1 }
func (f *topKFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	if x.Shape().Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "TopK requires rank 2, got rank %d", x.Shape().Rank())
	}
	rows, cols := x.Shape().Dim(0), x.Shape().Dim(1)
	if f.k <= 0 || f.k > cols {
		return nil, errs.New(errs.KindArgumentInvalid, "TopK k=%d out of range for %d columns", f.k, cols)
	}
	f.inShape = x.Shape()
	data := x.Data()
	values := make([]float32, rows*f.k)
	idx := make([]int, rows*f.k)
	type pair struct {
		v float32
		c int
	}
	row := make([]pair, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = pair{data[r*cols+c], c}
		}
		sort.SliceStable(row, func(i, j int) bool { return row[i].v > row[j].v })
		for k := 0; k < f.k; k++ {
			values[r*f.k+k] = row[k].v
			idx[r*f.k+k] = row[k].c
		}
	}
	valArr, err := ndarray.Of(values, ndarray.NewShape(rows, f.k))
	if err != nil {
		return nil, err
	}
	idxFloat := make([]float32, len(idx))
	for i, c := range idx {
		idxFloat[i] = float32(c)
	}
	idxArr, err := ndarray.Of(idxFloat, ndarray.NewShape(rows, f.k))
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{valArr, idxArr}, nil
}
func (f *topKFn) Backward([]*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{ndarray.Zeros(f.inShape)}, nil
}

// TopK returns the k largest values per row of x together with their
// column indices (descending order, ties broken by column order).
func TopK(ctx autograd.Context, x *autograd.Variable, k int) (value, index *autograd.Variable, err error) {
	outs, err := autograd.Call(ctx, &topKFn{k: k}, x)
	if err != nil {
		return nil, nil, err
	}
	return outs[0], outs[1], nil
}
