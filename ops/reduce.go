package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type sumAxisFn struct {
	axis    int
	inShape ndarray.Shape
}

func (sumAxisFn) NumInputs() int { return 1 }
func (f *sumAxisFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.inShape = in[0].Shape()
	out, err := in[0].SumAxis(f.axis)
	return []*ndarray.NdArray{out}, err
}
func (f *sumAxisFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].BroadcastTo(f.inShape)
	return []*ndarray.NdArray{out}, err
}

// SumAxis sums x along axis, keeping it as a size-1 dimension.
func SumAxis(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &sumAxisFn{axis: axis}, x)
}

type meanAxisFn struct {
	axis     int
	inShape  ndarray.Shape
	axisSize float32
}

func (meanAxisFn) NumInputs() int { return 1 }
func (f *meanAxisFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.inShape = in[0].Shape()
	ax := f.axis
	if ax < 0 {
		ax += f.inShape.Rank()
	}
	f.axisSize = float32(f.inShape.Dim(ax))
	out, err := in[0].MeanAxis(f.axis)
	return []*ndarray.NdArray{out}, err
}
func (f *meanAxisFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	broadcast, err := g[0].BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	dx, err := broadcast.DivScalar(f.axisSize)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// MeanAxis averages x along axis, keeping it as a size-1 dimension.
func MeanAxis(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &meanAxisFn{axis: axis}, x)
}

type maxAxisFn struct {
	axis    int
	x, y    *ndarray.NdArray
	inShape ndarray.Shape
}

func (maxAxisFn) NumInputs() int { return 1 }
func (f *maxAxisFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	f.inShape = in[0].Shape()
	y, err := in[0].MaxAxis(f.axis)
	if err != nil {
		return nil, err
	}
	f.y = y
	return []*ndarray.NdArray{y}, nil
}

// Backward routes the incoming gradient only to the elements that
// achieved the max along axis (ties split the gradient equally).
func (f *maxAxisFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	yBroadcast, err := f.y.BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	isMax, err := f.x.Eq(yBroadcast)
	if err != nil {
		return nil, err
	}
	count, err := isMax.SumAxis(f.axis)
	if err != nil {
		return nil, err
	}
	countBroadcast, err := count.BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	share, err := isMax.Div(countBroadcast)
	if err != nil {
		return nil, err
	}
	gBroadcast, err := g[0].BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	dx, err := gBroadcast.Mul(share)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// MaxAxis takes the maximum of x along axis, keeping it as a size-1
// dimension.
func MaxAxis(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &maxAxisFn{axis: axis}, x)
}

type minAxisFn struct {
	axis    int
	x, y    *ndarray.NdArray
	inShape ndarray.Shape
}

func (minAxisFn) NumInputs() int { return 1 }
func (f *minAxisFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x = in[0]
	f.inShape = in[0].Shape()
	y, err := in[0].MinAxis(f.axis)
	if err != nil {
		return nil, err
	}
	f.y = y
	return []*ndarray.NdArray{y}, nil
}
func (f *minAxisFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	yBroadcast, err := f.y.BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	isMin, err := f.x.Eq(yBroadcast)
	if err != nil {
		return nil, err
	}
	count, err := isMin.SumAxis(f.axis)
	if err != nil {
		return nil, err
	}
	countBroadcast, err := count.BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	share, err := isMin.Div(countBroadcast)
	if err != nil {
		return nil, err
	}
	gBroadcast, err := g[0].BroadcastTo(f.inShape)
	if err != nil {
		return nil, err
	}
	dx, err := gBroadcast.Mul(share)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// MinAxis takes the minimum of x along axis, keeping it as a size-1
// dimension.
func MinAxis(ctx autograd.Context, x *autograd.Variable, axis int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &minAxisFn{axis: axis}, x)
}

type sumAllFn struct{ inShape ndarray.Shape }

func (sumAllFn) NumInputs() int { return 1 }
func (f *sumAllFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.inShape = in[0].Shape()
	return []*ndarray.NdArray{in[0].Sum()}, nil
}
func (f *sumAllFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].BroadcastTo(f.inShape)
	return []*ndarray.NdArray{out}, err
}

// Sum reduces x to a scalar by summing every element.
func Sum(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &sumAllFn{}, x)
}
