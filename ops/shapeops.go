package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

type transposeFn struct{}

func (transposeFn) NumInputs() int { return 1 }
func (transposeFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Transpose()
	return []*ndarray.NdArray{out}, err
}
func (transposeFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Transpose()
	return []*ndarray.NdArray{out}, err
}

// Transpose swaps the two axes of a rank-2 Variable.
func Transpose(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, transposeFn{}, x)
}

type permuteFn struct{ perm, inverse []int }

func (permuteFn) NumInputs() int { return 1 }
func (f permuteFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Permute(f.perm)
	return []*ndarray.NdArray{out}, err
}
func (f permuteFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Permute(f.inverse)
	return []*ndarray.NdArray{out}, err
}

// Permute reorders axes according to perm.
func Permute(ctx autograd.Context, x *autograd.Variable, perm []int) (*autograd.Variable, error) {
	inverse := make([]int, len(perm))
	for i, p := range perm {
		inverse[p] = i
	}
	return autograd.Call1(ctx, permuteFn{perm: perm, inverse: inverse}, x)
}

type reshapeFn struct{ from, to ndarray.Shape }

func (reshapeFn) NumInputs() int { return 1 }
func (f reshapeFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Reshape(f.to)
	return []*ndarray.NdArray{out}, err
}
func (f reshapeFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Reshape(f.from)
	return []*ndarray.NdArray{out}, err
}

// Reshape returns x reshaped to the given shape (equal size required).
func Reshape(ctx autograd.Context, x *autograd.Variable, shape ndarray.Shape) (*autograd.Variable, error) {
	return autograd.Call1(ctx, reshapeFn{from: x.Value.Shape(), to: shape}, x)
}

type broadcastFn struct{ from, to ndarray.Shape }

func (broadcastFn) NumInputs() int { return 1 }
func (f broadcastFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].BroadcastTo(f.to)
	return []*ndarray.NdArray{out}, err
}
func (f broadcastFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].SumTo(f.from)
	return []*ndarray.NdArray{out}, err
}

// BroadcastTo expands x to shape.
func BroadcastTo(ctx autograd.Context, x *autograd.Variable, shape ndarray.Shape) (*autograd.Variable, error) {
	return autograd.Call1(ctx, broadcastFn{from: x.Value.Shape(), to: shape}, x)
}

type sumToFn struct{ from, to ndarray.Shape }

func (sumToFn) NumInputs() int { return 1 }
func (f sumToFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].SumTo(f.to)
	return []*ndarray.NdArray{out}, err
}
func (f sumToFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].BroadcastTo(f.from)
	return []*ndarray.NdArray{out}, err
}

// SumTo reduces x to shape by summing over broadcast axes.
func SumTo(ctx autograd.Context, x *autograd.Variable, shape ndarray.Shape) (*autograd.Variable, error) {
	return autograd.Call1(ctx, sumToFn{from: x.Value.Shape(), to: shape}, x)
}
