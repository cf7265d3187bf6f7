package transformer

import (
	"math/rand"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ops"
)

// Activation names the nonlinearity between a FeedForward block's two
// Linear layers.
type Activation int

const (
	ActivationGELU Activation = iota
	ActivationSiLU
)

// FeedForwardConfig configures a FeedForward block. HiddenDim defaults to
// 4*DModel (spec.md §4.5: "Hidden dim typically 4 × d_model") when left 0.
type FeedForwardConfig struct {
	DModel     int `validate:"required,gt=0"`
	HiddenDim  int
	Activation Activation
	Dropout    float32 `validate:"gte=0,lt=1"`
}

// FeedForward is the two-Linear-layer block with an activation between
// them: GELU for GPT-family models, SiLU for MiniMind (spec.md §4.5).
// Grounded on zautner-Atomic-GPT-explorer/forward.go's MLP block
// (Linear → ReLU → Linear), generalized to a configurable activation and
// hidden dimension.
type FeedForward struct {
	*nn.Module
	Config FeedForwardConfig
	FC1    *Linear
	FC2    *Linear
}

func NewFeedForward(name string, cfg FeedForwardConfig, seed *int64) (*FeedForward, error) {
	if cfg.HiddenDim == 0 {
		cfg.HiddenDim = 4 * cfg.DModel
	}
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	f := &FeedForward{Module: nn.NewModule(name), Config: cfg}
	var err error
	if f.FC1, err = NewLinear("fc1", cfg.DModel, cfg.HiddenDim, true, deriveSeed(seed, 1)); err != nil {
		return nil, err
	}
	if f.FC2, err = NewLinear("fc2", cfg.HiddenDim, cfg.DModel, true, deriveSeed(seed, 2)); err != nil {
		return nil, err
	}
	_ = f.RegisterModule("fc1", f.FC1.Module)
	_ = f.RegisterModule("fc2", f.FC2.Module)
	return f, nil
}

// Forward applies x -> FC1 -> activation -> [dropout] -> FC2 over a rank-2
// (batch, DModel) input.
func (f *FeedForward) Forward(ctx autograd.Context, x *autograd.Variable, rng *rand.Rand) (*autograd.Variable, error) {
	h, err := f.FC1.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	switch f.Config.Activation {
	case ActivationSiLU:
		h, err = ops.SiLU(ctx, h)
	default:
		h, err = ops.GELU(ctx, h)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Training && f.Config.Dropout > 0 {
		h, err = ops.Dropout(ctx, h, f.Config.Dropout, rng)
		if err != nil {
			return nil, err
		}
	}
	return f.FC2.Forward(ctx, h)
}
