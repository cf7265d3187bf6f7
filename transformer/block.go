package transformer

import (
	"math/rand"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// NormKind selects the normalization layer a Block uses.
type NormKind int

const (
	NormRMS NormKind = iota
	NormLayer
)

// normLayer is the common interface RMSNorm and LayerNorm both satisfy,
// letting Block stay agnostic to which one it was built with.
type normLayer interface {
	Forward(ctx autograd.Context, x *autograd.Variable) (*autograd.Variable, error)
}

// BlockConfig configures a pre-norm (or parallel) Transformer block.
type BlockConfig struct {
	DModel   int `validate:"required,gt=0"`
	Norm     NormKind
	NormEps  float32
	Attn     AttentionConfig
	FFN      FeedForwardConfig
	Parallel bool
}

// Block is spec.md §4.5's Transformer block: the standard pre-norm
// composition `y = x + Attention(Norm(x)); z = y + FFN(Norm(y))`, or the
// optional parallel variant `z = x + Attention(Norm1(x)) + FFN(Norm2(x))`
// used by GPT-3-style models, computing both branches from independent
// norms of the same input. Grounded on
// zautner-Atomic-GPT-explorer/forward.go's per-layer loop body
// (RMSNorm → attention → residual add, RMSNorm → MLP → residual add),
// generalized to a configurable norm/activation/GQA and the parallel
// variant the source never implements.
type Block struct {
	*nn.Module
	Config BlockConfig
	Norm1  normLayer
	Norm2  normLayer
	Attn   *MultiHeadAttention
	FFN    *FeedForward
}

func NewBlock(name string, cfg BlockConfig, seed *int64) (*Block, error) {
	cfg.Attn.DModel = cfg.DModel
	cfg.FFN.DModel = cfg.DModel
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	b := &Block{Module: nn.NewModule(name), Config: cfg}
	b.Norm1 = b.newNorm("norm1", cfg)
	b.Norm2 = b.newNorm("norm2", cfg)

	var err error
	if b.Attn, err = NewMultiHeadAttention("attn", cfg.Attn, deriveSeed(seed, 10)); err != nil {
		return nil, err
	}
	if b.FFN, err = NewFeedForward("ffn", cfg.FFN, deriveSeed(seed, 20)); err != nil {
		return nil, err
	}
	_ = b.RegisterModule("attn", b.Attn.Module)
	_ = b.RegisterModule("ffn", b.FFN.Module)
	return b, nil
}

func (b *Block) newNorm(name string, cfg BlockConfig) normLayer {
	eps := cfg.NormEps
	switch cfg.Norm {
	case NormLayer:
		if eps == 0 {
			eps = 1e-5
		}
		n := NewLayerNorm(name, cfg.DModel, eps)
		_ = b.RegisterModule(name, n.Module)
		return n
	default:
		if eps == 0 {
			eps = 1e-6
		}
		n := NewRMSNorm(name, cfg.DModel, eps)
		_ = b.RegisterModule(name, n.Module)
		return n
	}
}

// Forward runs one Block over x (shape (batch, seq, d_model)). startPos
// and cache parameterize the attention sub-layer's KV-cache behavior
// exactly as MultiHeadAttention.Forward does.
func (b *Block) Forward(ctx autograd.Context, x *autograd.Variable, startPos int, cache *KVCache, rng *rand.Rand) (*autograd.Variable, error) {
	if b.Config.Parallel {
		return b.forwardParallel(ctx, x, startPos, cache, rng)
	}

	normed1, err := b.Norm1.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	attnOut, err := b.Attn.Forward(ctx, normed1, startPos, cache, rng)
	if err != nil {
		return nil, err
	}
	y, err := ops.Add(ctx, x, attnOut)
	if err != nil {
		return nil, err
	}

	normed2, err := b.Norm2.Forward(ctx, y)
	if err != nil {
		return nil, err
	}
	ffnOut, err := b.applyFFN(ctx, normed2, rng)
	if err != nil {
		return nil, err
	}
	return ops.Add(ctx, y, ffnOut)
}

func (b *Block) forwardParallel(ctx autograd.Context, x *autograd.Variable, startPos int, cache *KVCache, rng *rand.Rand) (*autograd.Variable, error) {
	normed1, err := b.Norm1.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	attnOut, err := b.Attn.Forward(ctx, normed1, startPos, cache, rng)
	if err != nil {
		return nil, err
	}

	normed2, err := b.Norm2.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	ffnOut, err := b.applyFFN(ctx, normed2, rng)
	if err != nil {
		return nil, err
	}

	sum, err := ops.Add(ctx, attnOut, ffnOut)
	if err != nil {
		return nil, err
	}
	return ops.Add(ctx, x, sum)
}

// applyFFN reshapes x to rank 2 for FeedForward.Forward and back.
func (b *Block) applyFFN(ctx autograd.Context, x *autograd.Variable, rng *rand.Rand) (*autograd.Variable, error) {
	dims := x.Value.Shape().Dims()
	batch, seq, dModel := dims[0], dims[1], dims[2]
	flat, err := ops.Reshape(ctx, x, ndarray.NewShape(batch*seq, dModel))
	if err != nil {
		return nil, err
	}
	out, err := b.FFN.Forward(ctx, flat, rng)
	if err != nil {
		return nil, err
	}
	return ops.Reshape(ctx, out, ndarray.NewShape(batch, seq, dModel))
}
