package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

func TestRMSNormDefaultWeightIsOnesShapeDim(t *testing.T) {
	n := NewRMSNorm("rms", 4, 1e-6)
	assert.Equal(t, []int{4}, n.Weight.Value.Shape().Dims())
	for _, v := range n.Weight.Value.Data() {
		assert.Equal(t, float32(1), v)
	}
}

func TestRMSNormForwardPreservesShape(t *testing.T) {
	n := NewRMSNorm("rms", 4, 1e-6)
	x := autograd.NewVariable(ndarray.RandomNormal(ndarray.NewShape(2, 4), nil), true, "x")
	y, err := n.Forward(autograd.Train(), x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, y.Value.Shape().Dims())
}

func TestLayerNormDefaultParams(t *testing.T) {
	n := NewLayerNorm("ln", 3, 1e-5)
	for _, v := range n.Gamma.Value.Data() {
		assert.Equal(t, float32(1), v)
	}
	for _, v := range n.Beta.Value.Data() {
		assert.Equal(t, float32(0), v)
	}
}

func TestLayerNormNormalizesMeanAndVariance(t *testing.T) {
	n := NewLayerNorm("ln", 4, 1e-5)
	xArr, err := ndarray.Of([]float32{1, 2, 3, 4}, ndarray.NewShape(1, 4))
	require.NoError(t, err)
	x := autograd.NewVariable(xArr, false, "x")

	y, err := n.Forward(autograd.Eval(), x)
	require.NoError(t, err)

	var mean float32
	for _, v := range y.Value.Data() {
		mean += v
	}
	mean /= 4
	assert.InDelta(t, 0, mean, 1e-4)
}
