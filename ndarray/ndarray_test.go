package ndarray_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

func mustOf2D(t *testing.T, data [][]float32) *ndarray.NdArray {
	t.Helper()
	a, err := ndarray.Of2D(data)
	require.NoError(t, err)
	return a
}

func TestBroadcastAdd(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2, 3))
	b := mustOf2D(t, [][]float32{{1, 2, 3}})

	sum, err := a.Add(b)
	require.NoError(t, err)
	want := mustOf2D(t, [][]float32{{2, 3, 4}, {2, 3, 4}})
	assert.True(t, sum.Equal(want, 1e-6))
}

func TestBroadcastIncompatibleShapesError(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2, 3))
	b := ndarray.Ones(ndarray.NewShape(4))
	_, err := a.Add(b)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindShapeMismatch))
}

func TestBroadcastToMatchesOnes(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(1, 3))
	grown, err := a.BroadcastTo(ndarray.NewShape(2, 3))
	require.NoError(t, err)
	want := ndarray.Ones(ndarray.NewShape(2, 3))
	assert.True(t, grown.Equal(want, 1e-6))
}

func TestSumToReducesBroadcastAxes(t *testing.T) {
	grad := mustOf2D(t, [][]float32{{2, 2, 2}, {2, 2, 2}})
	reduced, err := grad.SumTo(ndarray.NewShape(1, 3))
	require.NoError(t, err)
	want := mustOf2D(t, [][]float32{{4, 4, 4}})
	assert.True(t, reduced.Equal(want, 1e-6))
}

func TestTransposeIsInvolution(t *testing.T) {
	a := mustOf2D(t, [][]float32{{1, 2, 3}, {4, 5, 6}})
	twice, err := a.Transpose()
	require.NoError(t, err)
	twice, err = twice.Transpose()
	require.NoError(t, err)
	assert.True(t, a.Equal(twice, 1e-6))
}

func TestReshapeRoundTrip(t *testing.T) {
	a := mustOf2D(t, [][]float32{{1, 2, 3}, {4, 5, 6}})
	flat, err := a.Reshape(ndarray.NewShape(6))
	require.NoError(t, err)
	back, err := flat.Reshape(ndarray.NewShape(2, 3))
	require.NoError(t, err)
	assert.True(t, a.Equal(back, 1e-6))
}

func TestReshapeSizeMismatchErrors(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2, 3))
	_, err := a.Reshape(ndarray.NewShape(4))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindShapeMismatch))
}

func TestDotShapeAndValues(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2, 3))
	b := ndarray.Ones(ndarray.NewShape(3, 4))
	c, err := a.Dot(b)
	require.NoError(t, err)
	assert.Equal(t, ndarray.NewShape(2, 4), c.Shape())
	for _, v := range c.Data() {
		assert.InDelta(t, 3.0, v, 1e-6)
	}
}

func TestSoftmaxStableAndSumsToOne(t *testing.T) {
	a := mustOf2D(t, [][]float32{{1000, 1001, 999}})
	probs, err := a.Softmax(-1)
	require.NoError(t, err)
	want := []float32{0.2447, 0.6652, 0.0900}
	for i, w := range want {
		v, err := probs.Get(0, i)
		require.NoError(t, err)
		assert.InDelta(t, w, v, 1e-4)
	}
	sum := probs.Sum()
	v, _ := sum.Get()
	assert.InDelta(t, 1.0, v, 1e-6)
	for _, v := range probs.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestSoftmaxLargeMagnitudeNoNaN(t *testing.T) {
	a := ndarray.Of1D([]float32{1000, -1000, 500})
	probs, err := a.Softmax(0)
	require.NoError(t, err)
	for _, v := range probs.Data() {
		assert.False(t, isNaNOrInf(v))
	}
}

func isNaNOrInf(v float32) bool {
	return v != v || v > 3.0e38 || v < -3.0e38
}

func TestClipRejectsInvertedBounds(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(3))
	_, err := a.Clip(1, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArgumentInvalid))
}

func TestDivByZeroErrors(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2))
	b := ndarray.Zeros(ndarray.NewShape(2))
	_, err := a.Div(b)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArithmetic))
}

func TestLogOfNonPositiveErrors(t *testing.T) {
	a := ndarray.Zeros(ndarray.NewShape(2))
	_, err := a.Log()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArithmetic))
}

func TestAddAtScatterGatherRoundTrip(t *testing.T) {
	zero := ndarray.Zeros(ndarray.NewShape(4, 2))
	g := mustOf2D(t, [][]float32{{1, 2}, {3, 4}})
	scattered, err := zero.AddAt([]int{1, 3}, nil, g)
	require.NoError(t, err)

	gathered, err := scattered.GetItem([]int{1, 3}, nil)
	require.NoError(t, err)
	assert.True(t, gathered.Equal(g, 1e-6))
}

func TestSubBlockExtraction(t *testing.T) {
	a := mustOf2D(t, [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	block, err := a.Sub(1, 3, 0, 2)
	require.NoError(t, err)
	want := mustOf2D(t, [][]float32{{4, 5}, {7, 8}})
	assert.True(t, block.Equal(want, 1e-6))
}

func TestArgmaxAxis(t *testing.T) {
	a := mustOf2D(t, [][]float32{{1, 5, 3}, {9, 2, 4}})
	am, err := a.ArgmaxAxis(1)
	require.NoError(t, err)
	v0, _ := am.Get(0, 0)
	v1, _ := am.Get(1, 0)
	assert.Equal(t, float32(1), v0)
	assert.Equal(t, float32(0), v1)
}

func TestLinspaceRejectsNonPositiveN(t *testing.T) {
	_, err := ndarray.Linspace(0, 1, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArgumentInvalid))
}

func TestPermuteRejectsInvalidPermutation(t *testing.T) {
	a := ndarray.Ones(ndarray.NewShape(2, 3, 4))
	_, err := a.Permute([]int{0, 0, 2})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindArgumentInvalid))
}
