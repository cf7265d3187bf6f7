// Package ops is the operator library: concrete autograd.Function
// implementations for elementwise math, activations, matrix ops,
// reductions and the attention helpers (masked-fill, triangular mask,
// softmax, RoPE, RMSNorm, embedding gather) spec.md §4.3 names.
package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type addFn struct{ xShape, yShape ndarray.Shape }

func (addFn) NumInputs() int { return 2 }
func (addFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Add(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f addFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	dx, err := g[0].SumTo(f.xShape)
	if err != nil {
		return nil, err
	}
	dy, err := g[0].SumTo(f.yShape)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dy}, nil
}

// Add computes x+y with broadcasting, routed through the autodiff graph.
func Add(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, addFn{xShape: x.Value.Shape(), yShape: y.Value.Shape()}, x, y)
}

type subFn struct{ xShape, yShape ndarray.Shape }

func (subFn) NumInputs() int { return 2 }
func (subFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Sub(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f subFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	dx, err := g[0].SumTo(f.xShape)
	if err != nil {
		return nil, err
	}
	dy, err := g[0].Neg().SumTo(f.yShape)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dy}, nil
}

// Sub computes x-y with broadcasting.
func Sub(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, subFn{xShape: x.Value.Shape(), yShape: y.Value.Shape()}, x, y)
}

type mulFn struct{ x, y *ndarray.NdArray }

func (mulFn) NumInputs() int { return 2 }
func (f *mulFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x, f.y = in[0], in[1]
	out, err := in[0].Mul(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f *mulFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	rawDx, err := g[0].Mul(f.y)
	if err != nil {
		return nil, err
	}
	dx, err := rawDx.SumTo(f.x.Shape())
	if err != nil {
		return nil, err
	}
	rawDy, err := g[0].Mul(f.x)
	if err != nil {
		return nil, err
	}
	dy, err := rawDy.SumTo(f.y.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dy}, nil
}

// Mul computes x*y with broadcasting.
func Mul(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &mulFn{}, x, y)
}

type divFn struct{ x, y *ndarray.NdArray }

func (divFn) NumInputs() int { return 2 }
func (f *divFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x, f.y = in[0], in[1]
	out, err := in[0].Div(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f *divFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	// d/dx = g/y ; d/dy = -g*x/y^2
	rawDx, err := g[0].Div(f.y)
	if err != nil {
		return nil, err
	}
	dx, err := rawDx.SumTo(f.x.Shape())
	if err != nil {
		return nil, err
	}
	ySq := f.y.Square()
	xOverYSq, err := f.x.Div(ySq)
	if err != nil {
		return nil, err
	}
	rawDy, err := g[0].Mul(xOverYSq)
	if err != nil {
		return nil, err
	}
	dy, err := rawDy.Neg().SumTo(f.y.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dy}, nil
}

// Div computes x/y with broadcasting; errors if any divisor element is 0.
func Div(ctx autograd.Context, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &divFn{}, x, y)
}

type mulScalarFn struct{ s float32 }

func (mulScalarFn) NumInputs() int { return 1 }
func (f mulScalarFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{in[0].MulScalar(f.s)}, nil
}
func (f mulScalarFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{g[0].MulScalar(f.s)}, nil
}

// MulScalar multiplies x by a constant.
func MulScalar(ctx autograd.Context, x *autograd.Variable, s float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, mulScalarFn{s: s}, x)
}

type addScalarFn struct{ s float32 }

func (addScalarFn) NumInputs() int { return 1 }
func (f addScalarFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{in[0].AddScalar(f.s)}, nil
}
func (addScalarFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{g[0]}, nil
}

// AddScalar adds a constant to x.
func AddScalar(ctx autograd.Context, x *autograd.Variable, s float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, addScalarFn{s: s}, x)
}

type matMulFn struct{ a, b *ndarray.NdArray }

func (matMulFn) NumInputs() int { return 2 }
func (f *matMulFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.a, f.b = in[0], in[1]
	out, err := in[0].Dot(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f *matMulFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	bT, err := f.b.Transpose()
	if err != nil {
		return nil, err
	}
	da, err := g[0].Dot(bT)
	if err != nil {
		return nil, err
	}
	aT, err := f.a.Transpose()
	if err != nil {
		return nil, err
	}
	db, err := aT.Dot(g[0])
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{da, db}, nil
}

// MatMul computes the 2-D matrix product a @ b.
func MatMul(ctx autograd.Context, a, b *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &matMulFn{}, a, b)
}
