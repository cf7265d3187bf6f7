package autograd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// addFn and mulFn are minimal scalar Functions used only to exercise the
// autograd engine in isolation, without depending on the full ops
// package (which itself depends on autograd).
type addFn struct{}

func (addFn) NumInputs() int { return 2 }
func (addFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := in[0].Add(in[1])
	return []*ndarray.NdArray{out}, err
}
func (addFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	return []*ndarray.NdArray{g[0], g[0]}, nil
}

type mulFn struct{ x, y *ndarray.NdArray }

func (mulFn) NumInputs() int { return 2 }
func (f *mulFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	f.x, f.y = in[0], in[1]
	out, err := in[0].Mul(in[1])
	return []*ndarray.NdArray{out}, err
}
func (f *mulFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	dx, err := g[0].Mul(f.y)
	if err != nil {
		return nil, err
	}
	dy, err := g[0].Mul(f.x)
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, dy}, nil
}

func scalar(v float32) *ndarray.NdArray { return ndarray.Of1D([]float32{v}) }

func TestGenerationIsOneMoreThanMaxInputGeneration(t *testing.T) {
	ctx := autograd.Train()
	x := autograd.NewVariable(scalar(2), true, "x")
	y := autograd.NewVariable(scalar(3), true, "y")

	z, err := autograd.Call1(ctx, addFn{}, x, y)
	require.NoError(t, err)
	assert.Equal(t, 1, z.Generation)

	w, err := autograd.Call1(ctx, addFn{}, z, x)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Generation)
}

func TestBackwardCubeChainRule(t *testing.T) {
	ctx := autograd.Train()
	x := autograd.NewVariable(scalar(2), true, "x")

	y, err := autograd.Call1(ctx, &mulFn{}, x, x) // y = x^2
	require.NoError(t, err)
	z, err := autograd.Call1(ctx, &mulFn{}, y, x) // z = x^3
	require.NoError(t, err)

	require.NoError(t, z.Backward())
	v, err := x.Grad.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, v, 1e-5) // d/dx x^3 = 3x^2 = 12 at x=2
}

func TestEvalContextProducesLeafWithNoCreator(t *testing.T) {
	ctx := autograd.Eval()
	x := autograd.NewVariable(scalar(2), true, "x")
	y := autograd.NewVariable(scalar(3), true, "y")

	z, err := autograd.Call1(ctx, addFn{}, x, y)
	require.NoError(t, err)
	assert.False(t, z.HasCreator())
	assert.Equal(t, 0, z.Generation)
}

func TestBackwardOrderIsDeterministicByGenerationThenInsertion(t *testing.T) {
	// A diamond graph: both paths (d->b directly and d->c->b) must have
	// contributed to b's gradient before b's creator is processed,
	// regardless of enqueue order.
	ctx := autograd.Train()
	a := autograd.NewVariable(scalar(1), true, "a")

	b, err := autograd.Call1(ctx, addFn{}, a, a)
	require.NoError(t, err)
	c, err := autograd.Call1(ctx, addFn{}, a, b)
	require.NoError(t, err)
	d, err := autograd.Call1(ctx, addFn{}, b, c)
	require.NoError(t, err)

	require.NoError(t, d.Backward())
	v, err := a.Grad.Get(0)
	require.NoError(t, err)
	// d = b + c = (a+a) + (a+b) = a+a+a+a+a = 5a -> da/dd = 5
	assert.InDelta(t, 5.0, v, 1e-6)
}
