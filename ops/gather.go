package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// gatherFn selects rows of a rank-2 table by an integer index list. The
// indices are held on the Function rather than passed as a graph input,
// so they receive no gradient; the table gradient is a scatter-add of the upstream
// gradient back to the selected rows, per the embedding lookup pattern
// spec.md §4.3 names.
type gatherFn struct {
	rowIDs   []int
	numRows  int
	tabShape ndarray.Shape
}

func (gatherFn) NumInputs() int { return 1 }
func (f *gatherFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.tabShape = in[0].Shape()
	out, err := in[0].GetItem(f.rowIDs, nil)
	return []*ndarray.NdArray{out}, err
}
func (f *gatherFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	zero := ndarray.Zeros(f.tabShape)
	dTable, err := zero.AddAt(f.rowIDs, nil, g[0])
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dTable}, nil
}

// Gather selects rows rowIDs from the rank-2 table Variable, as used for
// embedding lookups.
func Gather(ctx autograd.Context, table *autograd.Variable, rowIDs []int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &gatherFn{rowIDs: rowIDs}, table)
}

// scatterAddFn is the dual of Gather: it adds a source's rows into a
// fresh copy of a base table at rowIDs. Both base and source carry
// gradients; the base gradient is the upstream gradient unchanged, the
// source gradient is gathered back out of the upstream gradient at the
// same rowIDs.
type scatterAddFn struct {
	rowIDs    []int
	baseShape ndarray.Shape
}

func (scatterAddFn) NumInputs() int { return 2 }
func (f *scatterAddFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.baseShape = in[0].Shape()
	out, err := in[0].AddAt(f.rowIDs, nil, in[1])
	return []*ndarray.NdArray{out}, err
}
func (f *scatterAddFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	dSource, err := g[0].GetItem(f.rowIDs, nil)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{g[0], dSource}, nil
}

// ScatterAdd adds source's rows into base at rowIDs, returning a new
// table (base is not mutated).
func ScatterAdd(ctx autograd.Context, base, source *autograd.Variable, rowIDs []int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &scatterAddFn{rowIDs: rowIDs}, base, source)
}
