package moe

import (
	"math/rand"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
	"github.com/tensorforge/core/transformer"
)

// RouterConfig configures a Router. CapacityFactor is the SPEC_FULL.md
// §4.6 expansion: 0 (the default) means unlimited per-expert capacity,
// matching spec.md §4.6 exactly; a positive value bounds each expert to
// ceil(CapacityFactor * batch / NumExperts) accepted tokens per batch.
type RouterConfig struct {
	DModel         int     `validate:"required,gt=0"`
	NumExperts     int     `validate:"required,gt=0"`
	TopK           int     `validate:"required,gt=0"`
	NoiseFactor    float32 `validate:"gte=0"`
	CapacityFactor float32 `validate:"gte=0"`
}

// RouterOutput is spec.md §3's "Router output": per-sample Top-K expert
// indices and normalized weights, plus the full per-expert probability
// vector (AllWeights) retained for load-balance statistics.
type RouterOutput struct {
	TopKIndex  [][]int            // [batch][TopK], expert id
	TopKWeight *autograd.Variable // (batch, TopK), renormalized to sum to 1 per row
	AllWeights *autograd.Variable // (batch, NumExperts), pre-selection softmax
	Dropped    [][]bool           // [batch][TopK], true where capacity limiting dropped that slot
}

// Router is a Linear d_model -> num_experts gate (spec.md §4.6).
type Router struct {
	*nn.Module
	Config RouterConfig
	Gate   *transformer.Linear
}

// NewRouter builds the gate projection.
func NewRouter(name string, cfg RouterConfig, seed *int64) (*Router, error) {
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.TopK > cfg.NumExperts {
		return nil, errs.New(errs.KindArgumentInvalid, "top_k %d exceeds num_experts %d", cfg.TopK, cfg.NumExperts)
	}
	gate, err := transformer.NewLinear("gate", cfg.DModel, cfg.NumExperts, true, seed)
	if err != nil {
		return nil, err
	}
	r := &Router{Module: nn.NewModule(name), Config: cfg, Gate: gate}
	if err := r.RegisterModule("gate", gate.Module); err != nil {
		return nil, err
	}
	return r, nil
}

// Forward computes gate logits, adds noisy-gating uniform noise in
// training mode, softmaxes over all experts, then selects and
// renormalizes the Top-K per sample. When Config.CapacityFactor > 0,
// slots beyond each expert's capacity are marked Dropped in
// per-assignment order (lowest sample index first).
func (r *Router) Forward(ctx autograd.Context, x *autograd.Variable, rng *rand.Rand) (*RouterOutput, error) {
	logits, err := r.Gate.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	if ctx.Training && r.Config.NoiseFactor > 0 {
		batch := logits.Value.Shape().Dim(0)
		numExperts := logits.Value.Shape().Dim(1)
		noiseData := make([]float32, batch*numExperts)
		for i := range noiseData {
			noiseData[i] = (rng.Float32()*2 - 1) * r.Config.NoiseFactor
		}
		noiseArr, err := ndarray.Of(noiseData, logits.Value.Shape())
		if err != nil {
			return nil, err
		}
		noise := autograd.NewVariable(noiseArr, false, "router_noise")
		logits, err = ops.Add(ctx, logits, noise)
		if err != nil {
			return nil, err
		}
	}

	allWeights, err := ops.Softmax(ctx, logits, 1)
	if err != nil {
		return nil, err
	}

	topValue, topIndex, err := ops.TopK(ctx, allWeights, r.Config.TopK)
	if err != nil {
		return nil, err
	}
	rowSum, err := ops.SumAxis(ctx, topValue, 1)
	if err != nil {
		return nil, err
	}
	rowSumBroadcast, err := ops.BroadcastTo(ctx, rowSum, topValue.Value.Shape())
	if err != nil {
		return nil, err
	}
	normalized, err := ops.Div(ctx, topValue, rowSumBroadcast)
	if err != nil {
		return nil, err
	}

	batch := allWeights.Value.Shape().Dim(0)
	indexData := topIndex.Value.Data()
	idx := make([][]int, batch)
	for b := 0; b < batch; b++ {
		idx[b] = make([]int, r.Config.TopK)
		for k := 0; k < r.Config.TopK; k++ {
			idx[b][k] = int(indexData[b*r.Config.TopK+k])
		}
	}

	dropped := applyCapacity(idx, r.Config.NumExperts, r.Config.CapacityFactor)

	return &RouterOutput{
		TopKIndex:  idx,
		TopKWeight: normalized,
		AllWeights: allWeights,
		Dropped:    dropped,
	}, nil
}

// applyCapacity marks assignment slots dropped once an expert's running
// accepted count (in sample order) reaches its capacity. capacityFactor
// <= 0 disables limiting and every slot is accepted (spec.md §4.6
// behavior, unchanged).
func applyCapacity(idx [][]int, numExperts int, capacityFactor float32) [][]bool {
	batch := len(idx)
	dropped := make([][]bool, batch)
	for b := range dropped {
		dropped[b] = make([]bool, len(idx[b]))
	}
	if capacityFactor <= 0 {
		return dropped
	}
	capacity := int(capacityFactor*float32(batch)/float32(numExperts) + 0.999999)
	if capacity < 1 {
		capacity = 1
	}
	accepted := make([]int, numExperts)
	for b := 0; b < batch; b++ {
		for k, expert := range idx[b] {
			if accepted[expert] >= capacity {
				dropped[b][k] = true
				continue
			}
			accepted[expert]++
		}
	}
	return dropped
}
