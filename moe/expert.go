package moe

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ops"
	"github.com/tensorforge/core/transformer"
)

// Expert is spec.md §4.6's "two-layer MLP with ReLU" dispatch target.
type Expert struct {
	*nn.Module
	FC1 *transformer.Linear
	FC2 *transformer.Linear
}

// NewExpert builds one d_model -> hidden -> d_model ReLU MLP.
func NewExpert(name string, dModel, hidden int, seed *int64) (*Expert, error) {
	fc1, err := transformer.NewLinear("fc1", dModel, hidden, true, deriveSeed(seed, 1))
	if err != nil {
		return nil, err
	}
	fc2, err := transformer.NewLinear("fc2", hidden, dModel, true, deriveSeed(seed, 2))
	if err != nil {
		return nil, err
	}
	e := &Expert{Module: nn.NewModule(name), FC1: fc1, FC2: fc2}
	if err := e.RegisterModule("fc1", fc1.Module); err != nil {
		return nil, err
	}
	if err := e.RegisterModule("fc2", fc2.Module); err != nil {
		return nil, err
	}
	return e, nil
}

// Forward runs x through FC1 -> ReLU -> FC2.
func (e *Expert) Forward(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	h, err := e.FC1.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	h, err = ops.ReLU(ctx, h)
	if err != nil {
		return nil, err
	}
	return e.FC2.Forward(ctx, h)
}

func deriveSeed(base *int64, offset int64) *int64 {
	if base == nil {
		return nil
	}
	derived := *base + offset
	return &derived
}
