package moe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

func TestLoadBalanceLossIsNonNegative(t *testing.T) {
	seed := int64(5)
	r, err := NewRouter("router", RouterConfig{DModel: 4, NumExperts: 4, TopK: 2}, &seed)
	require.NoError(t, err)

	x := autograd.NewVariable(ndarray.RandomNormal(ndarray.NewShape(6, 4), &seed), false, "x")
	route, err := r.Forward(autograd.Eval(), x, nil)
	require.NoError(t, err)

	loss, err := LoadBalanceLoss(route, 4, 0.01, 0.01)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss, float32(0))
}

func TestLoadBalanceLossEqualsAlphaForPerfectlyBalancedAssignment(t *testing.T) {
	allWeightsArr, err := ndarray.Of([]float32{
		0.5, 0.5,
		0.5, 0.5,
	}, ndarray.NewShape(2, 2))
	require.NoError(t, err)
	route := &RouterOutput{
		AllWeights: autograd.NewVariable(allWeightsArr, false, ""),
		TopKIndex:  [][]int{{0}, {1}},
	}
	loss, err := LoadBalanceLoss(route, 2, 0.01, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 0.01*2*0.5, loss, 1e-5)
}
