package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// Comparisons produce 0/1 masks with no meaningful derivative; Backward
// returns a zero gradient of the appropriate (broadcast) input shape
// rather than nil, since both inputs genuinely participate in the graph
// (a masking op downstream may still expect a gradient to accumulate).

type eqFn struct{ xShape, yShape ndarray.Shape }

func (eqFn) NumInputs() int { return 2 }
func (eqFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Eq(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f eqFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{ndarray.Zeros(f.xShape), ndarray.Zeros(f.yShape)}, nil
}

// Eq returns a 0/1 mask of elementwise equality, with broadcasting.
func Eq(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, eqFn{xShape: x.Value.Shape(), yShape: y.Value.Shape()}, x, y)
}

type gtFn struct{ xShape, yShape ndarray.Shape }

func (gtFn) NumInputs() int { return 2 }
func (gtFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Gt(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f gtFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{ndarray.Zeros(f.xShape), ndarray.Zeros(f.yShape)}, nil
}

// Gt returns a 0/1 mask of elementwise x > y, with broadcasting.
func Gt(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, gtFn{xShape: x.Value.Shape(), yShape: y.Value.Shape()}, x, y)
}

type ltFn struct{ xShape, yShape ndarray.Shape }

func (ltFn) NumInputs() int { return 2 }
func (ltFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Lt(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f ltFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{ndarray.Zeros(f.xShape), ndarray.Zeros(f.yShape)}, nil
}

// Lt returns a 0/1 mask of elementwise x < y, with broadcasting.
func Lt(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, ltFn{xShape: x.Value.Shape(), yShape: y.Value.Shape()}, x, y)
}
