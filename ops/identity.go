package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type cloneFn struct{}

func (cloneFn) NumInputs() int { return 1 }
func (cloneFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{in[0].Clone()}, nil
}
func (cloneFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{g[0]}, nil
}

// Clone copies x into a new buffer, routed through the graph as an
// identity function (gradient passes through unchanged).
func Clone(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, cloneFn{}, x)
}

// Detach returns a new leaf Variable sharing x's value but severed from
// the graph: it has no creator and does not require grad, so Backward
// never traverses past it.
func Detach(x *autograd.Variable) *autograd.Variable {
	return autograd.NewVariable(x.Value.Clone(), false, x.Name)
}

// OnesLike returns a non-graph leaf Variable of ones shaped like x.
func OnesLike(x *autograd.Variable) *autograd.Variable {
	return autograd.NewVariable(ndarray.Ones(x.Value.Shape()), false, "")
}

// ZerosLike returns a non-graph leaf Variable of zeros shaped like x.
func ZerosLike(x *autograd.Variable) *autograd.Variable {
	return autograd.NewVariable(ndarray.Zeros(x.Value.Shape()), false, "")
}
