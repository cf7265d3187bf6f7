// Package transformer implements the Transformer primitives spec.md §4.5
// names: LayerNorm/RMSNorm, Linear, grouped-query multi-head self
// attention with causal masking, RoPE and a KV-cache, the feed-forward
// block, and the pre-norm (or parallel) Block that composes them. It is
// generalized from zautner-Atomic-GPT-explorer/forward.go's hand-rolled,
// scalar-Value forward pass into Module/Parameter-based layers built on
// the ops package's tensor operators.
package transformer

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// Linear computes y = x @ Wᵀ + b. Weight shape (out, in); bias shape
// (out,) when enabled (spec.md §4.5 Linear). Grounded on
// zautner-Atomic-GPT-explorer/model.go's Linear (a hand-unrolled dot
// product per output row, one Value at a time), generalized to a batched
// MatMul over the full weight matrix.
type Linear struct {
	*nn.Module
	InDim, OutDim int
	HasBias       bool
	Weight        *nn.Parameter
	Bias          *nn.Parameter
}

// NewLinear builds a Linear layer with Xavier-uniform weight init and
// zero bias init (spec.md §4.5).
func NewLinear(name string, inDim, outDim int, bias bool, seed *int64) (*Linear, error) {
	wInit, err := nn.Initializers["xavier_uniform"](ndarray.NewShape(outDim, inDim), inDim, outDim, seed)
	if err != nil {
		return nil, err
	}
	l := &Linear{
		Module:  nn.NewModule(name),
		InDim:   inDim,
		OutDim:  outDim,
		HasBias: bias,
		Weight:  nn.NewParameter(wInit, "weight"),
	}
	if err := l.RegisterParameter("weight", l.Weight); err != nil {
		return nil, err
	}
	if bias {
		l.Bias = nn.NewParameter(ndarray.Zeros(ndarray.NewShape(outDim)), "bias")
		if err := l.RegisterParameter("bias", l.Bias); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Forward applies y = x @ Wᵀ [+ b] to a rank-2 (batch, InDim) input.
func (l *Linear) Forward(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error) {
	wT, err := ops.Transpose(ctx, l.Weight)
	if err != nil {
		return nil, err
	}
	y, err := ops.MatMul(ctx, x, wT)
	if err != nil {
		return nil, err
	}
	if !l.HasBias {
		return y, nil
	}
	biasBroadcast, err := ops.BroadcastTo(ctx, l.Bias, y.Value.Shape())
	if err != nil {
		return nil, err
	}
	return ops.Add(ctx, y, biasBroadcast)
}
