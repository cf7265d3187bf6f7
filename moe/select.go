// Package moe implements spec.md §4.6's mixture-of-experts layer: a noisy
// Top-K router, per-sample weighted expert dispatch, usage statistics,
// and the load-balance auxiliary loss, plus SPEC_FULL.md §4.6's optional
// per-expert capacity limiting. Grounded on
// zautner-Atomic-GPT-explorer/model.go's Linear/Softmax (reused here via
// transformer.Linear and ops.Softmax) and forward.go's per-token loop
// structure, generalized to a batch of samples each routed independently.
package moe

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// selectFn extracts a single (row, col) scalar from a rank-2 Variable as
// a (1,1) Variable, remaining differentiable. Grounded on ops/gather.go's
// Gather/ScatterAdd pair: Forward is a restricted GetItem, Backward
// scatters the upstream scalar gradient back to its one source position
// via AddAt, the same duality Gather/ScatterAdd use for whole rows.
type selectFn struct {
	row, col int
	shape    ndarray.Shape
}

func (selectFn) NumInputs() int { return 1 }
func (f *selectFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.shape = in[0].Shape()
	out, err := in[0].GetItem([]int{f.row}, []int{f.col})
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{out}, nil
}
func (f *selectFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	zero := ndarray.Zeros(f.shape)
	dx, err := zero.AddAt([]int{f.row}, []int{f.col}, g[0])
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// selectElement returns x[row, col] as a (1,1) Variable.
func selectElement(ctx autograd.Context, x *autograd.Variable, row, col int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &selectFn{row: row, col: col}, x)
}
