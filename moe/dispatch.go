package moe

import (
	"math/rand"
	"strconv"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// LayerConfig composes a Router with its pool of Experts.
type LayerConfig struct {
	Router       RouterConfig
	HiddenDim    int `validate:"required,gt=0"`
	LoadBalAlpha float32
	LoadBalBeta  float32
}

// Layer is the full MoE block: route each sample to its Top-K experts,
// dispatch, accumulate usage statistics, and return the RouterOutput
// alongside the output (spec.md §4.6). Forward does not compute the
// load-balance auxiliary loss itself; LoadBalanceLoss computes it from
// that RouterOutput, and Config.LoadBalAlpha/LoadBalBeta are not read by
// Layer.
type Layer struct {
	*nn.Module
	Config  LayerConfig
	Router  *Router
	Experts []*Expert
	Stats   *UsageStats
}

// NewLayer builds a Router and Config.Router.NumExperts independent
// Experts, each a d_model -> HiddenDim -> d_model ReLU MLP.
func NewLayer(name string, cfg LayerConfig, seed *int64) (*Layer, error) {
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	router, err := NewRouter("router", cfg.Router, deriveSeed(seed, 0))
	if err != nil {
		return nil, err
	}
	l := &Layer{
		Module: nn.NewModule(name),
		Config: cfg,
		Router: router,
		Stats:  NewUsageStats(cfg.Router.NumExperts),
	}
	if err := l.RegisterModule("router", router.Module); err != nil {
		return nil, err
	}
	for i := 0; i < cfg.Router.NumExperts; i++ {
		expert, err := NewExpert("", cfg.Router.DModel, cfg.HiddenDim, deriveSeed(seed, int64(i+1)*17))
		if err != nil {
			return nil, err
		}
		l.Experts = append(l.Experts, expert)
		if err := l.RegisterModule(expertName(i), expert.Module); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func expertName(i int) string {
	return "expert_" + strconv.Itoa(i)
}

// Forward dispatches a (batch, d_model) input to its routed experts and
// returns the combined output, the router output (for load-balance loss)
// and updates l.Stats with this call's Top-K selections.
func (l *Layer) Forward(ctx autograd.Context, x *autograd.Variable, rng *rand.Rand) (*autograd.Variable, *RouterOutput, error) {
	route, err := l.Router.Forward(ctx, x, rng)
	if err != nil {
		return nil, nil, err
	}
	dModel := x.Value.Shape().Dim(1)
	batch := x.Value.Shape().Dim(0)

	out := autograd.NewVariable(ndarray.Zeros(ndarray.NewShape(batch, dModel)), false, "")
	for b := 0; b < batch; b++ {
		xb, err := ops.Gather(ctx, x, []int{b})
		if err != nil {
			return nil, nil, err
		}
		acc := autograd.NewVariable(ndarray.Zeros(ndarray.NewShape(1, dModel)), false, "")
		for k, expertIdx := range route.TopKIndex[b] {
			if route.Dropped[b][k] {
				l.Stats.recordDrop(expertIdx)
				continue
			}
			expertOut, err := l.Experts[expertIdx].Forward(ctx, xb)
			if err != nil {
				return nil, nil, err
			}
			weight, err := selectElement(ctx, route.TopKWeight, b, k)
			if err != nil {
				return nil, nil, err
			}
			weightBroadcast, err := ops.BroadcastTo(ctx, weight, expertOut.Value.Shape())
			if err != nil {
				return nil, nil, err
			}
			scaled, err := ops.Mul(ctx, expertOut, weightBroadcast)
			if err != nil {
				return nil, nil, err
			}
			acc, err = ops.Add(ctx, acc, scaled)
			if err != nil {
				return nil, nil, err
			}
			l.Stats.record(expertIdx)
		}
		out, err = ops.ScatterAdd(ctx, out, acc, []int{b})
		if err != nil {
			return nil, nil, err
		}
	}
	return out, route, nil
}
