package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type reluFn struct{ mask *ndarray.NdArray }

func (reluFn) NumInputs() int { return 1 }
func (f *reluFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	zero := ndarray.Zeros(in[0].Shape())
	mask, err := in[0].Gt(zero)
	if err != nil {
		return nil, err
	}
	f.mask = mask
	return []*ndarray.NdArray{in[0].Maximum(0)}, nil
}
func (f *reluFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.mask)
	return []*ndarray.NdArray{out}, err
}

// ReLU computes max(0, x) elementwise.
func ReLU(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &reluFn{}, x)
}

type leakyReLUFn struct {
	alpha float32
	mask  *ndarray.NdArray // 1 where x > 0, alpha where x <= 0
}

func (leakyReLUFn) NumInputs() int { return 1 }
func (f *leakyReLUFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out := make([]float32, in[0].Size())
	mask := make([]float32, in[0].Size())
	for i, v := range in[0].Data() {
		if v > 0 {
			out[i] = v
			mask[i] = 1
		} else {
			out[i] = v * f.alpha
			mask[i] = f.alpha
		}
	}
	result, err := ndarray.Of(out, in[0].Shape())
	if err != nil {
		return nil, err
	}
	maskArr, err := ndarray.Of(mask, in[0].Shape())
	if err != nil {
		return nil, err
	}
	f.mask = maskArr
	return []*ndarray.NdArray{result}, nil
}
func (f *leakyReLUFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.mask)
	return []*ndarray.NdArray{out}, err
}

// LeakyReLU computes x if x>0 else alpha*x, elementwise.
func LeakyReLU(ctx autograd.Context, x *autograd.Variable, alpha float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &leakyReLUFn{alpha: alpha}, x)
}

type sigmoidFn struct{ y *ndarray.NdArray }

func (sigmoidFn) NumInputs() int { return 1 }
func (f *sigmoidFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.y = in[0].Sigmoid()
	return []*ndarray.NdArray{f.y}, nil
}
func (f *sigmoidFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	oneMinusY := f.y.Neg().AddScalar(1)
	deriv, err := f.y.Mul(oneMinusY)
	if err != nil {
		return nil, err
	}
	out, err := g[0].Mul(deriv)
	return []*ndarray.NdArray{out}, err
}

// Sigmoid computes the logistic sigmoid elementwise.
func Sigmoid(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &sigmoidFn{}, x)
}

type tanhFn struct{ y *ndarray.NdArray }

func (tanhFn) NumInputs() int { return 1 }
func (f *tanhFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.y = in[0].Tanh()
	return []*ndarray.NdArray{f.y}, nil
}
func (f *tanhFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	deriv := f.y.Square().Neg().AddScalar(1)
	out, err := g[0].Mul(deriv)
	return []*ndarray.NdArray{out}, err
}

// Tanh computes hyperbolic tangent elementwise.
func Tanh(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &tanhFn{}, x)
}

type siluFn struct{ x, sigmoid *ndarray.NdArray }

func (siluFn) NumInputs() int { return 1 }
func (f *siluFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	f.sigmoid = in[0].Sigmoid()
	out, err := in[0].Mul(f.sigmoid)
	return []*ndarray.NdArray{out}, err
}
func (f *siluFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	// d/dx SiLU(x) = sigmoid * (1 + x*(1-sigmoid))
	oneMinusSig := f.sigmoid.Neg().AddScalar(1)
	xTimes, err := f.x.Mul(oneMinusSig)
	if err != nil {
		return nil, err
	}
	inner := xTimes.AddScalar(1)
	deriv, err := f.sigmoid.Mul(inner)
	if err != nil {
		return nil, err
	}
	out, err := g[0].Mul(deriv)
	return []*ndarray.NdArray{out}, err
}

// SiLU computes x*sigmoid(x) elementwise (a.k.a. swish).
func SiLU(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &siluFn{}, x)
}

const geluCoeff = 0.7978845608028654 // sqrt(2/pi)

type geluFn struct {
	x        *ndarray.NdArray
	tanhU    *ndarray.NdArray
	duOverDx *ndarray.NdArray
}

func (geluFn) NumInputs() int { return 1 }
func (f *geluFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	f.x = x
	x3, err := x.Square().Mul(x)
	if err != nil {
		return nil, err
	}
	inner, err := x.Add(x3.MulScalar(0.044715))
	if err != nil {
		return nil, err
	}
	u := inner.MulScalar(geluCoeff)
	f.tanhU = u.Tanh()
	f.duOverDx = x.Square().MulScalar(3 * 0.044715).AddScalar(1).MulScalar(geluCoeff)

	onePlusTanh := f.tanhU.AddScalar(1)
	out, err := x.Mul(onePlusTanh)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{out.MulScalar(0.5)}, nil
}
func (f *geluFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	onePlusTanh := f.tanhU.AddScalar(1)
	term1 := onePlusTanh.MulScalar(0.5)

	oneMinusTanhSq := f.tanhU.Square().Neg().AddScalar(1)
	xHalf := f.x.MulScalar(0.5)
	term2a, err := xHalf.Mul(oneMinusTanhSq)
	if err != nil {
		return nil, err
	}
	term2, err := term2a.Mul(f.duOverDx)
	if err != nil {
		return nil, err
	}
	deriv, err := term1.Add(term2)
	if err != nil {
		return nil, err
	}
	out, err := g[0].Mul(deriv)
	return []*ndarray.NdArray{out}, err
}

// GELU computes the tanh-approximation GELU elementwise:
// 0.5*x*(1+tanh(sqrt(2/pi)*(x+0.044715*x^3))).
func GELU(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &geluFn{}, x)
}
