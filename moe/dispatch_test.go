package moe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// TestMoEDispatchMatchesEngineeredTopTwoWeights is spec.md §8 scenario 6:
// with num_experts=4, top_K=2 and router logits engineered so every
// sample's Top-2 is experts {0,1} with weights {0.7, 0.3}, the dispatch
// output equals 0.7*E0(x) + 0.3*E1(x) and usage_stats.counts = [batch,
// batch, 0, 0].
func TestMoEDispatchMatchesEngineeredTopTwoWeights(t *testing.T) {
	seed := int64(7)
	cfg := LayerConfig{
		Router:    RouterConfig{DModel: 4, NumExperts: 4, TopK: 2},
		HiddenDim: 8,
	}
	layer, err := NewLayer("moe", cfg, &seed)
	require.NoError(t, err)

	// Zero the gate weight and fix the bias so logits == bias for any x,
	// with softmax(bias[0])/softmax(bias[1]) == 7/3 and bias[2],bias[3]
	// low enough to never enter the Top-2.
	layer.Router.Gate.Weight.Value = ndarray.Zeros(ndarray.NewShape(4, 4))
	bias, err := ndarray.Of([]float32{float32(math.Log(7)), float32(math.Log(3)), -50, -50}, ndarray.NewShape(4))
	require.NoError(t, err)
	layer.Router.Gate.Bias.Value = bias

	const batch = 3
	ctx := autograd.Eval()
	x := autograd.NewVariable(ndarray.RandomNormal(ndarray.NewShape(batch, 4), &seed), false, "x")

	out, route, err := layer.Forward(ctx, x, nil)
	require.NoError(t, err)

	for b := 0; b < batch; b++ {
		assert.Equal(t, []int{0, 1}, route.TopKIndex[b])
		assert.InDelta(t, 0.7, route.TopKWeight.Value.Data()[b*2+0], 1e-5)
		assert.InDelta(t, 0.3, route.TopKWeight.Value.Data()[b*2+1], 1e-5)

		xb, err := ops.Gather(ctx, x, []int{b})
		require.NoError(t, err)
		e0, err := layer.Experts[0].Forward(ctx, xb)
		require.NoError(t, err)
		e1, err := layer.Experts[1].Forward(ctx, xb)
		require.NoError(t, err)
		for d := 0; d < 4; d++ {
			expected := 0.7*e0.Value.Data()[d] + 0.3*e1.Value.Data()[d]
			assert.InDelta(t, expected, out.Value.Data()[b*4+d], 1e-4)
		}
	}

	counts := layer.Stats.Counts()
	assert.Equal(t, []int64{batch, batch, 0, 0}, counts)
}

func TestMoECapacityLimitingBoundsAcceptedTokensPerExpert(t *testing.T) {
	seed := int64(3)
	cfg := LayerConfig{
		Router:    RouterConfig{DModel: 4, NumExperts: 2, TopK: 1, CapacityFactor: 0.5},
		HiddenDim: 8,
	}
	layer, err := NewLayer("moe", cfg, &seed)
	require.NoError(t, err)

	// Force every sample to route to expert 0 so capacity limiting must
	// engage: capacity = ceil(0.5 * batch / 2) = ceil(batch/4).
	layer.Router.Gate.Weight.Value = ndarray.Zeros(ndarray.NewShape(2, 4))
	bias, err := ndarray.Of([]float32{10, -10}, ndarray.NewShape(2))
	require.NoError(t, err)
	layer.Router.Gate.Bias.Value = bias

	const batch = 8
	ctx := autograd.Eval()
	x := autograd.NewVariable(ndarray.RandomNormal(ndarray.NewShape(batch, 4), &seed), false, "x")

	_, route, err := layer.Forward(ctx, x, nil)
	require.NoError(t, err)

	accepted, droppedCount := 0, 0
	for b := 0; b < batch; b++ {
		if route.Dropped[b][0] {
			droppedCount++
		} else {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 2) // ceil(0.5*8/2) == 2
	assert.Equal(t, batch, accepted+droppedCount)
}
