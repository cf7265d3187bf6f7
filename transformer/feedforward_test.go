package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

func TestFeedForwardDefaultHiddenDimIsFourTimesDModel(t *testing.T) {
	seed := int64(1)
	ff, err := NewFeedForward("ffn", FeedForwardConfig{DModel: 8}, &seed)
	require.NoError(t, err)
	assert.Equal(t, 32, ff.Config.HiddenDim)
}

func TestFeedForwardForwardShape(t *testing.T) {
	seed := int64(1)
	ff, err := NewFeedForward("ffn", FeedForwardConfig{DModel: 4, HiddenDim: 8, Activation: ActivationSiLU}, &seed)
	require.NoError(t, err)

	x := autograd.NewVariable(ndarray.Ones(ndarray.NewShape(3, 4)), true, "x")
	y, err := ff.Forward(autograd.Train(), x, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, y.Value.Shape().Dims())
}

func TestFeedForwardRejectsOutOfRangeDropout(t *testing.T) {
	seed := int64(1)
	_, err := NewFeedForward("ffn", FeedForwardConfig{DModel: 4, Dropout: 1.5}, &seed)
	assert.Error(t, err)
}
