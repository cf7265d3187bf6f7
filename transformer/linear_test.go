package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

func TestLinearForwardShapeAndBias(t *testing.T) {
	seed := int64(5)
	lin, err := NewLinear("fc", 3, 4, true, &seed)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, lin.Bias.Value.Shape().Dims())

	x := autograd.NewVariable(ndarray.Ones(ndarray.NewShape(2, 3)), true, "x")
	y, err := lin.Forward(autograd.Train(), x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, y.Value.Shape().Dims())
}

func TestLinearWithoutBiasHasNilBias(t *testing.T) {
	seed := int64(5)
	lin, err := NewLinear("fc", 3, 4, false, &seed)
	require.NoError(t, err)
	assert.Nil(t, lin.Bias)
}

func TestLinearBackwardPropagatesGradient(t *testing.T) {
	seed := int64(9)
	lin, err := NewLinear("fc", 2, 2, true, &seed)
	require.NoError(t, err)
	lin.Weight.Value = ndarray.Ones(ndarray.NewShape(2, 2))

	x := autograd.NewVariable(ndarray.Ones(ndarray.NewShape(1, 2)), true, "x")
	y, err := lin.Forward(autograd.Train(), x)
	require.NoError(t, err)

	y.Grad = ndarray.Ones(y.Value.Shape())
	require.NoError(t, y.Backward())
	require.NotNil(t, x.Grad)
	for _, v := range x.Grad.Data() {
		assert.Equal(t, float32(2), v)
	}
}
