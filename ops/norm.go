package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// rmsNormFn computes root-mean-square layer normalization along the last
// axis: r = sqrt(mean(x^2, last axis) + eps), y = (x/r) * w, with w
// broadcasting over every axis but the last. spec.md §9 notes that a
// naive port of a scalar-autograd RMSNorm tends to carry an incomplete
// correction for the r-w coupling in its backward; this Function instead
// derives the backward directly from the forward definition:
//
//	dx = (g*w)/r - x/(n*r^3) * sum_last(g*w*x)
//	dw = sum_batch(g * x/r)
type rmsNormFn struct {
	eps      float32
	x        *ndarray.NdArray
	w        *ndarray.NdArray // broadcast to x's shape
	wShape   ndarray.Shape
	r        *ndarray.NdArray // broadcast to x's shape
	xHat     *ndarray.NdArray
	lastAxis int
	n        float32
}

func (rmsNormFn) NumInputs() int { return 2 }
func (f *rmsNormFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x, w := in[0], in[1]
	f.x = x
	f.wShape = w.Shape()
	f.lastAxis = x.Shape().Rank() - 1
	f.n = float32(x.Shape().Dim(f.lastAxis))

	meanSq, err := x.Square().MeanAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	rReduced, err := meanSq.AddScalar(f.eps).Sqrt()
	if err != nil {
		return nil, err
	}
	r, err := rReduced.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	f.r = r
	xHat, err := x.Div(r)
	if err != nil {
		return nil, err
	}
	f.xHat = xHat

	wBroadcast, err := w.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	f.w = wBroadcast

	y, err := xHat.Mul(wBroadcast)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{y}, nil
}

func (f *rmsNormFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	gw, err := g[0].Mul(f.w)
	if err != nil {
		return nil, err
	}
	term1, err := gw.Div(f.r)
	if err != nil {
		return nil, err
	}

	gwx, err := gw.Mul(f.x)
	if err != nil {
		return nil, err
	}
	sum, err := gwx.SumAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	sumBroadcast, err := sum.BroadcastTo(f.x.Shape())
	if err != nil {
		return nil, err
	}
	r3, err := f.r.Square().Mul(f.r)
	if err != nil {
		return nil, err
	}
	denom := r3.MulScalar(f.n)
	xSum, err := f.x.Mul(sumBroadcast)
	if err != nil {
		return nil, err
	}
	term2, err := xSum.Div(denom)
	if err != nil {
		return nil, err
	}
	dx, err := term1.Sub(term2)
	if err != nil {
		return nil, err
	}

	gxHat, err := g[0].Mul(f.xHat)
	if err != nil {
		return nil, err
	}
	dw, err := gxHat.SumTo(f.wShape)
	if err != nil {
		return nil, err
	}

	return []*ndarray.NdArray{dx, dw}, nil
}

// RMSNorm applies root-mean-square layer normalization to x along its
// last axis with learned scale w.
func RMSNorm(ctx autograd.Context, x, w *autograd.Variable, eps float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &rmsNormFn{eps: eps}, x, w)
}

// layerNormFn computes standard layer normalization along the last
// axis: std = sqrt(var(x, last axis) + eps), xhat = (x-mean)/std,
// y = xhat*w + b, with w and b broadcasting over every axis but the
// last. Backward uses the standard fused-normalization form:
//
//	dxhat = g*w
//	dx = (1/(n*std)) * (n*dxhat - sum_last(dxhat) - xhat*sum_last(dxhat*xhat))
//	dw = sum_batch(g*xhat), db = sum_batch(g)
type layerNormFn struct {
	eps      float32
	wBshape  ndarray.Shape
	bShape   ndarray.Shape
	std      *ndarray.NdArray // broadcast to x's shape
	xHat     *ndarray.NdArray
	w        *ndarray.NdArray // broadcast to x's shape
	lastAxis int
	n        float32
}

func (layerNormFn) NumInputs() int { return 3 }
func (f *layerNormFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x, w, b := in[0], in[1], in[2]
	f.bShape = b.Shape()
	f.lastAxis = x.Shape().Rank() - 1
	f.n = float32(x.Shape().Dim(f.lastAxis))

	mean, err := x.MeanAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	meanBroadcast, err := mean.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	centered, err := x.Sub(meanBroadcast)
	if err != nil {
		return nil, err
	}
	variance, err := x.VarAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	stdReduced, err := variance.AddScalar(f.eps).Sqrt()
	if err != nil {
		return nil, err
	}
	std, err := stdReduced.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	f.std = std
	xHat, err := centered.Div(std)
	if err != nil {
		return nil, err
	}
	f.xHat = xHat

	wBroadcast, err := w.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	f.w = wBroadcast
	bBroadcast, err := b.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}

	scaled, err := xHat.Mul(wBroadcast)
	if err != nil {
		return nil, err
	}
	y, err := scaled.Add(bBroadcast)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{y}, nil
}

func (f *layerNormFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	dxHat, err := g[0].Mul(f.w)
	if err != nil {
		return nil, err
	}
	sumDxHat, err := dxHat.SumAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	sumDxHatBroadcast, err := sumDxHat.BroadcastTo(g[0].Shape())
	if err != nil {
		return nil, err
	}
	dxHatXHat, err := dxHat.Mul(f.xHat)
	if err != nil {
		return nil, err
	}
	sumDxHatXHat, err := dxHatXHat.SumAxis(f.lastAxis)
	if err != nil {
		return nil, err
	}
	sumDxHatXHatBroadcast, err := sumDxHatXHat.BroadcastTo(g[0].Shape())
	if err != nil {
		return nil, err
	}
	xHatTerm, err := f.xHat.Mul(sumDxHatXHatBroadcast)
	if err != nil {
		return nil, err
	}
	nDxHat := dxHat.MulScalar(f.n)
	numerator, err := nDxHat.Sub(sumDxHatBroadcast)
	if err != nil {
		return nil, err
	}
	numerator, err = numerator.Sub(xHatTerm)
	if err != nil {
		return nil, err
	}
	denom := f.std.MulScalar(f.n)
	dx, err := numerator.Div(denom)
	if err != nil {
		return nil, err
	}

	gxHat, err := g[0].Mul(f.xHat)
	if err != nil {
		return nil, err
	}
	dw, err := gxHat.SumTo(f.wBshape)
	if err != nil {
		return nil, err
	}
	db, err := g[0].SumTo(f.bShape)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dw, db}, nil
}

// LayerNorm applies standard layer normalization to x along its last
// axis with learned scale w and shift b.
func LayerNorm(ctx autograd.Context, x, w, b *autograd.Variable, eps float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &layerNormFn{eps: eps, wBshape: w.Value.Shape()}, x, w, b)
}
