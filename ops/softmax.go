package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type softmaxFn struct {
	axis int
	y    *ndarray.NdArray
}

func (softmaxFn) NumInputs() int { return 1 }
func (f *softmaxFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	y, err := in[0].Softmax(f.axis)
	if err != nil {
		return nil, err
	}
	f.y = y
	return []*ndarray.NdArray{y}, nil
}

// Backward of softmax: dx = y * (g - sum(g*y, axis)), the standard
// Jacobian-vector product that avoids materializing the full Jacobian.
func (f *softmaxFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	gy, err := g[0].Mul(f.y)
	if err != nil {
		return nil, err
	}
	sum, err := gy.SumAxis(f.axis)
	if err != nil {
		return nil, err
	}
	sumBroadcast, err := sum.BroadcastTo(f.y.Shape())
	if err != nil {
		return nil, err
	}
	diff, err := g[0].Sub(sumBroadcast)
	if err != nil {
		return nil, err
	}
	dx, err := f.y.Mul(diff)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// Softmax applies a numerically stable softmax along axis.
func Softmax(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &softmaxFn{axis: axis}, x)
}

type logSoftmaxFn struct {
	axis int
	y    *ndarray.NdArray // softmax probabilities, reused for backward
}

func (logSoftmaxFn) NumInputs() int { return 1 }
func (f *logSoftmaxFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	maxVals, err := x.MaxAxis(f.axis)
	if err != nil {
		return nil, err
	}
	maxBroadcast, err := maxVals.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	shifted, err := x.Sub(maxBroadcast)
	if err != nil {
		return nil, err
	}
	expShifted := shifted.Exp()
	sums, err := expShifted.SumAxis(f.axis)
	if err != nil {
		return nil, err
	}
	sumsBroadcast, err := sums.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	y, err := expShifted.Div(sumsBroadcast)
	if err != nil {
		return nil, err
	}
	f.y = y
	logSums, err := sums.Log()
	if err != nil {
		return nil, err
	}
	logSumsBroadcast, err := logSums.BroadcastTo(x.Shape())
	if err != nil {
		return nil, err
	}
	logY, err := shifted.Sub(logSumsBroadcast)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{logY}, nil
}

// Backward of log-softmax: dx = g - y * sum(g, axis).
func (f *logSoftmaxFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	sum, err := g[0].SumAxis(f.axis)
	if err != nil {
		return nil, err
	}
	sumBroadcast, err := sum.BroadcastTo(f.y.Shape())
	if err != nil {
		return nil, err
	}
	correction, err := f.y.Mul(sumBroadcast)
	if err != nil {
		return nil, err
	}
	dx, err := g[0].Sub(correction)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// LogSoftmax computes log(softmax(x)) along axis in a single fused,
// numerically stable op (avoids the separate Log(Softmax(x)) catastrophic
// cancellation for very negative logits).
func LogSoftmax(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &logSoftmaxFn{axis: axis}, x)
}
