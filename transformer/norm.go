package transformer

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// RMSNorm normalizes its input's last axis by root-mean-square magnitude
// and rescales by a single learned weight vector of shape (dim,). Default
// eps 1e-6 (spec.md §4.5). Grounded on
// zautner-Atomic-GPT-explorer/model.go's RMSNorm, generalized from a
// per-element scalar loop to ops.RMSNorm's rederived tensor backward (see
// DESIGN.md for why the source's version is not ported as-is).
type RMSNorm struct {
	*nn.Module
	Dim    int
	Eps    float32
	Weight *nn.Parameter
}

func NewRMSNorm(name string, dim int, eps float32) *RMSNorm {
	if eps == 0 {
		eps = 1e-6
	}
	n := &RMSNorm{
		Module: nn.NewModule(name),
		Dim:    dim,
		Eps:    eps,
		Weight: nn.NewParameter(ndarray.Ones(ndarray.NewShape(dim)), "weight"),
	}
	_ = n.RegisterParameter("weight", n.Weight)
	return n
}

func (n *RMSNorm) Forward(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return ops.RMSNorm(ctx, x, n.Weight, n.Eps)
}

// LayerNorm normalizes its input's last axis by mean and variance, then
// scales by a learned γ and shifts by a learned β, both shape (dim,).
// Default eps 1e-5 (spec.md §4.5).
type LayerNorm struct {
	*nn.Module
	Dim   int
	Eps   float32
	Gamma *nn.Parameter
	Beta  *nn.Parameter
}

func NewLayerNorm(name string, dim int, eps float32) *LayerNorm {
	if eps == 0 {
		eps = 1e-5
	}
	n := &LayerNorm{
		Module: nn.NewModule(name),
		Dim:    dim,
		Eps:    eps,
		Gamma:  nn.NewParameter(ndarray.Ones(ndarray.NewShape(dim)), "gamma"),
		Beta:   nn.NewParameter(ndarray.Zeros(ndarray.NewShape(dim)), "beta"),
	}
	_ = n.RegisterParameter("gamma", n.Gamma)
	_ = n.RegisterParameter("beta", n.Beta)
	return n
}

func (n *LayerNorm) Forward(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	return ops.LayerNorm(ctx, x, n.Gamma, n.Beta, n.Eps)
}
