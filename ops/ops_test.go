package ops_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// numericGrad perturbs each element of x.Value by +-h and returns the
// central-difference gradient of f(x) (assumed to reduce to a scalar).
func numericGrad(t *testing.T, f func(*autograd.Variable) (*autograd.Variable, error), x *ndarray.NdArray) *ndarray.NdArray {
	t.Helper()
	const h = 1e-3
	data := x.Data()
	grad := make([]float32, len(data))
	for i := range data {
		plusData := append([]float32(nil), data...)
		plusData[i] += h
		minusData := append([]float32(nil), data...)
		minusData[i] -= h

		plus, err := ndarray.Of(plusData, x.Shape())
		require.NoError(t, err)
		minus, err := ndarray.Of(minusData, x.Shape())
		require.NoError(t, err)

		yPlus, err := f(autograd.NewVariable(plus, false, ""))
		require.NoError(t, err)
		yMinus, err := f(autograd.NewVariable(minus, false, ""))
		require.NoError(t, err)

		grad[i] = (yPlus.Value.Sum().Data()[0] - yMinus.Value.Sum().Data()[0]) / (2 * h)
	}
	out, err := ndarray.Of(grad, x.Shape())
	require.NoError(t, err)
	return out
}

func assertClose(t *testing.T, want, got *ndarray.NdArray, tol float32) {
	t.Helper()
	require.True(t, want.Shape().Equal(got.Shape()), "shape mismatch: want %s got %s", want.Shape(), got.Shape())
	wd, gd := want.Data(), got.Data()
	for i := range wd {
		assert.InDelta(t, wd[i], gd[i], float64(tol), "element %d: want %v got %v", i, wd[i], gd[i])
	}
}

func TestReLUGradientMatchesNumeric(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of([]float32{-2, -0.5, 0.5, 3}, ndarray.NewShape(4))
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.ReLU(ctx, x)
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	analytic := x.Grad
	numeric := numericGrad(t, func(v *autograd.Variable) (*autograd.Variable, error) {
		return ops.ReLU(autograd.Eval(), v)
	}, xVal)
	// ReLU is non-differentiable exactly at 0; none of our sample points
	// land there, so a loose tolerance suffices away from the kink.
	assertClose(t, numeric, analytic, 1e-2)
}

func TestSigmoidGradientMatchesNumeric(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of([]float32{-1, 0, 1, 2}, ndarray.NewShape(4))
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.Sigmoid(ctx, x)
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	numeric := numericGrad(t, func(v *autograd.Variable) (*autograd.Variable, error) {
		return ops.Sigmoid(autograd.Eval(), v)
	}, xVal)
	assertClose(t, numeric, x.Grad, 1e-2)
}

func TestGELUGradientMatchesNumeric(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of([]float32{-1.5, -0.2, 0.3, 1.7}, ndarray.NewShape(4))
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.GELU(ctx, x)
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	numeric := numericGrad(t, func(v *autograd.Variable) (*autograd.Variable, error) {
		return ops.GELU(autograd.Eval(), v)
	}, xVal)
	assertClose(t, numeric, x.Grad, 1e-2)
}

func TestSoftmaxMatchesKnownScenario(t *testing.T) {
	ctx := autograd.Eval()
	xVal, err := ndarray.Of([]float32{1000, 1001, 999}, ndarray.NewShape(1, 3))
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, false, "")

	y, err := ops.Softmax(ctx, x, -1)
	require.NoError(t, err)

	want, err := ndarray.Of([]float32{0.2447, 0.6652, 0.0900}, ndarray.NewShape(1, 3))
	require.NoError(t, err)
	assertClose(t, want, y.Value, 1e-3)
}

func TestMatMulGradientShapes(t *testing.T) {
	ctx := autograd.Train()
	aVal, err := ndarray.Of2D([][]float32{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	bVal, err := ndarray.Of2D([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	a := autograd.NewVariable(aVal, true, "a")
	b := autograd.NewVariable(bVal, true, "b")

	y, err := ops.MatMul(ctx, a, b)
	require.NoError(t, err)
	require.True(t, y.Value.Shape().Equal(ndarray.NewShape(3, 2)))

	require.NoError(t, y.Backward())
	assert.True(t, a.Grad.Shape().Equal(aVal.Shape()))
	assert.True(t, b.Grad.Shape().Equal(bVal.Shape()))
}

func TestCloneIsIdentityForwardAndBackward(t *testing.T) {
	ctx := autograd.Train()
	xVal := ndarray.Of1D([]float32{1, 2, 3})
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.Clone(ctx, x)
	require.NoError(t, err)
	assertClose(t, xVal, y.Value, 0)

	require.NoError(t, y.Backward())
	assertClose(t, ndarray.Ones(xVal.Shape()), x.Grad, 0)
}

func TestDetachHasNoCreatorAndNoGradPropagation(t *testing.T) {
	ctx := autograd.Train()
	xVal := ndarray.Of1D([]float32{1, 2, 3})
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.Clone(ctx, x)
	require.NoError(t, err)
	d := ops.Detach(y)

	assert.False(t, d.HasCreator())
	assert.False(t, d.RequiresGrad)
}

func TestGatherScatterRoundTrip(t *testing.T) {
	ctx := autograd.Train()
	tableVal, err := ndarray.Of2D([][]float32{{1, 2}, {3, 4}, {5, 6}, {7, 8}})
	require.NoError(t, err)
	table := autograd.NewVariable(tableVal, true, "table")

	rowIDs := []int{2, 0, 0}
	rows, err := ops.Gather(ctx, table, rowIDs)
	require.NoError(t, err)
	want, err := ndarray.Of2D([][]float32{{5, 6}, {1, 2}, {1, 2}})
	require.NoError(t, err)
	assertClose(t, want, rows.Value, 0)

	require.NoError(t, rows.Backward())
	// row 0 was selected twice, so its accumulated gradient is 2, row 2
	// once, row 1/3 never selected so zero.
	wantGrad, err := ndarray.Of2D([][]float32{{2, 2}, {0, 0}, {1, 1}, {0, 0}})
	require.NoError(t, err)
	assertClose(t, wantGrad, table.Grad, 0)
}

func TestTrilZeroesAboveDiagonal(t *testing.T) {
	ctx := autograd.Eval()
	xVal, err := ndarray.Of2D([][]float32{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}})
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, false, "")

	y, err := ops.Tril(ctx, x, 0)
	require.NoError(t, err)
	data := y.Value.Data()
	rows, cols := 3, 3
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > r {
				assert.Equal(t, float32(0), data[r*cols+c], "element (%d,%d) should be zeroed above the diagonal", r, c)
			} else {
				assert.Equal(t, float32(1), data[r*cols+c])
			}
		}
	}
}

func TestTopKSelectsLargestPerRow(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of2D([][]float32{{0.1, 0.9, 0.3, 0.5}})
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	vals, idx, err := ops.TopK(ctx, x, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(0.9), vals.Value.Data()[0])
	assert.Equal(t, float32(0.5), vals.Value.Data()[1])
	assert.Equal(t, float32(1), idx.Value.Data()[0])
	assert.Equal(t, float32(3), idx.Value.Data()[1])
}

func TestTopKBackwardIsZero(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of2D([][]float32{{0.1, 0.9, 0.3, 0.5}})
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	vals, _, err := ops.TopK(ctx, x, 2)
	require.NoError(t, err)
	require.NoError(t, vals.Backward())

	for _, g := range x.Grad.Data() {
		assert.Equal(t, float32(0), g)
	}
}

func TestRMSNormGradientMatchesNumeric(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of2D([][]float32{{1, 2, 3, 4}, {0.5, -1, 2, -2}})
	require.NoError(t, err)
	wVal := ndarray.Ones(ndarray.NewShape(4))
	x := autograd.NewVariable(xVal, true, "x")
	w := autograd.NewVariable(wVal, true, "w")

	y, err := ops.RMSNorm(ctx, x, w, 1e-5)
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	numeric := numericGrad(t, func(v *autograd.Variable) (*autograd.Variable, error) {
		return ops.RMSNorm(autograd.Eval(), v, autograd.NewVariable(wVal, false, ""), 1e-5)
	}, xVal)
	assertClose(t, numeric, x.Grad, 1e-2)
}

func TestLayerNormGradientMatchesNumeric(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of2D([][]float32{{1, 2, 3, 4}, {-1, 0, 1, 2}})
	require.NoError(t, err)
	wVal := ndarray.Ones(ndarray.NewShape(4))
	bVal := ndarray.Zeros(ndarray.NewShape(4))
	x := autograd.NewVariable(xVal, true, "x")
	w := autograd.NewVariable(wVal, true, "w")
	b := autograd.NewVariable(bVal, true, "b")

	y, err := ops.LayerNorm(ctx, x, w, b, 1e-5)
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	numeric := numericGrad(t, func(v *autograd.Variable) (*autograd.Variable, error) {
		return ops.LayerNorm(autograd.Eval(), v, autograd.NewVariable(wVal, false, ""), autograd.NewVariable(bVal, false, ""), 1e-5)
	}, xVal)
	assertClose(t, numeric, x.Grad, 1e-2)
}

func TestRoPEGradientIsInverseRotation(t *testing.T) {
	// RoPE rotates each pair of elements by theta; since rotation is
	// orthogonal, its backward is the rotation by -theta (R^T). Applying
	// RoPE forward and then feeding the rotated output itself back as the
	// upstream gradient should recover x within floating point tolerance,
	// since R^T R = I.
	ctx := autograd.Train()
	xVal, err := ndarray.Of3D([][][]float32{{{1, 2, 3, 4}, {5, 6, 7, 8}}})
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")

	rotated, err := ops.RoPE(ctx, x, 0, 10000)
	require.NoError(t, err)

	rotated.Grad = rotated.Value.Clone()
	require.NoError(t, rotated.Backward())

	// x.Grad = R^T(rotated(x)) = R^T R x = x.
	assertClose(t, xVal, x.Grad, 1e-4)
}

func TestMaskedFillReplacesSelectedElements(t *testing.T) {
	ctx := autograd.Train()
	xVal, err := ndarray.Of2D([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	maskVal, err := ndarray.Of2D([][]float32{{0, 1}, {1, 0}})
	require.NoError(t, err)
	x := autograd.NewVariable(xVal, true, "x")
	mask := autograd.NewVariable(maskVal, false, "mask")

	y, err := ops.MaskedFill(ctx, x, mask, -1)
	require.NoError(t, err)
	want, err := ndarray.Of2D([][]float32{{1, -1}, {-1, 4}})
	require.NoError(t, err)
	assertClose(t, want, y.Value, 0)

	require.NoError(t, y.Backward())
	wantGrad, err := ndarray.Of2D([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assertClose(t, wantGrad, x.Grad, 0)
}

func TestDropoutIsIdentityInEvalContext(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	xVal := ndarray.Of1D([]float32{1, 2, 3, 4, 5})
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.Dropout(autograd.Eval(), x, 0.5, rng)
	require.NoError(t, err)
	assertClose(t, xVal, y.Value, 0)
}

func TestDropoutZeroesRoughlyExpectedFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]float32, 1000)
	for i := range data {
		data[i] = 1
	}
	xVal := ndarray.Of1D(data)
	x := autograd.NewVariable(xVal, true, "x")

	y, err := ops.Dropout(autograd.Train(), x, 0.3, rng)
	require.NoError(t, err)
	zeros := 0
	for _, v := range y.Value.Data() {
		if v == 0 {
			zeros++
		}
	}
	frac := float64(zeros) / float64(len(data))
	assert.InDelta(t, 0.3, frac, 0.05)
}

func TestEqGtLtProduceZeroMaskGradient(t *testing.T) {
	ctx := autograd.Train()
	xVal := ndarray.Of1D([]float32{1, 2, 3})
	yVal := ndarray.Of1D([]float32{3, 2, 1})
	x := autograd.NewVariable(xVal, true, "x")
	y := autograd.NewVariable(yVal, true, "y")

	gt, err := ops.Gt(ctx, x, y)
	require.NoError(t, err)
	want, err := ndarray.Of(
		[]float32{0, 0, 1}, ndarray.NewShape(3))
	require.NoError(t, err)
	assertClose(t, want, gt.Value, 0)

	require.NoError(t, gt.Backward())
	assertClose(t, ndarray.Zeros(ndarray.NewShape(3)), x.Grad, 0)
}
