package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type expFn struct{ y *ndarray.NdArray }

func (expFn) NumInputs() int { return 1 }
func (f *expFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.y = in[0].Exp()
	return []*ndarray.NdArray{f.y}, nil
}
func (f *expFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.y)
	return []*ndarray.NdArray{out}, err
}

// Exp computes e^x elementwise.
func Exp(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &expFn{}, x)
}

type logFn struct{ x *ndarray.NdArray }

func (logFn) NumInputs() int { return 1 }
func (f *logFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	out, err := in[0].Log()
	return []*ndarray.NdArray{out}, err
}
func (f *logFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Div(f.x)
	return []*ndarray.NdArray{out}, err
}

// Log computes the natural log elementwise; errors if x <= 0 anywhere.
func Log(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &logFn{}, x)
}

type sqrtFn struct{ y *ndarray.NdArray }

func (sqrtFn) NumInputs() int { return 1 }
func (f *sqrtFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	y, err := in[0].Sqrt()
	if err != nil {
		return nil, err
	}
	f.y = y
	return []*ndarray.NdArray{y}, nil
}
func (f *sqrtFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	twoY := f.y.MulScalar(2)
	out, err := g[0].Div(twoY)
	return []*ndarray.NdArray{out}, err
}

// Sqrt computes sqrt(x) elementwise; errors if x < 0 anywhere.
func Sqrt(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &sqrtFn{}, x)
}

type powFn struct {
	x   *ndarray.NdArray
	exp float32
}

func (powFn) NumInputs() int { return 1 }
func (f *powFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	return []*ndarray.NdArray{in[0].Pow(f.exp)}, nil
}
func (f *powFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	deriv := f.x.Pow(f.exp - 1).MulScalar(f.exp)
	out, err := g[0].Mul(deriv)
	return []*ndarray.NdArray{out}, err
}

// Pow raises x to the given exponent elementwise.
func Pow(ctx autograd.Context, x *autograd.Variable, exp float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &powFn{exp: exp}, x)
}

type squareFn struct{ x *ndarray.NdArray }

func (squareFn) NumInputs() int { return 1 }
func (f *squareFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	return []*ndarray.NdArray{in[0].Square()}, nil
}
func (f *squareFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.x.MulScalar(2))
	return []*ndarray.NdArray{out}, err
}

// Square computes x^2 elementwise.
func Square(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &squareFn{}, x)
}

type absFn struct{ sign *ndarray.NdArray }

func (absFn) NumInputs() int { return 1 }
func (f *absFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	zero := ndarray.Zeros(in[0].Shape())
	pos, err := in[0].Gt(zero)
	if err != nil {
		return nil, err
	}
	neg, err := in[0].Lt(zero)
	if err != nil {
		return nil, err
	}
	sign, err := pos.Sub(neg)
	if err != nil {
		return nil, err
	}
	f.sign = sign
	return []*ndarray.NdArray{in[0].Abs()}, nil
}

func (f *absFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.sign)
	return []*ndarray.NdArray{out}, err
}

// Abs computes |x| elementwise.
func Abs(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &absFn{}, x)
}

type negFn struct{}

func (negFn) NumInputs() int { return 1 }
func (negFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{in[0].Neg()}, nil
}
func (negFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{g[0].Neg()}, nil
}

// Neg negates x elementwise.
func Neg(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, negFn{}, x)
}
