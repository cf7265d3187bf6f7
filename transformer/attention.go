package transformer

import (
	"math"
	"math/rand"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
	"github.com/tensorforge/core/ops"
)

// AttentionConfig configures a MultiHeadAttention layer. NumKVHeads <
// NumHeads yields grouped-query attention; NumKVHeads == NumHeads (the
// default when left 0 at construction) reduces to ordinary multi-head
// attention, matching spec.md §4.5 exactly (SPEC_FULL.md §4.5's GQA
// expansion).
type AttentionConfig struct {
	DModel     int     `validate:"required,gt=0"`
	NumHeads   int     `validate:"required,gt=0"`
	NumKVHeads int     `validate:"required,gt=0"`
	Causal     bool
	MaxSeqLen  int     `validate:"required,gt=0"`
	Dropout    float32 `validate:"gte=0,lt=1"`
	RopeBase   float64
	UseRoPE    bool
}

// MultiHeadAttention implements spec.md §4.5's multi-head self-attention:
// Q/K/V/O projections, optional RoPE on Q and K, scaled dot-product
// scores with an optional causal mask, softmax, optional dropout, and a
// weighted sum of values projected back through Wo. Grounded on
// zautner-Atomic-GPT-explorer/forward.go's per-head loop over slices of a
// flat embedding vector, generalized from one token at a time to batched
// (batch, seq, d_model) tensors and from one KV head per Q head to
// NumKVHeads ≤ NumHeads (GQA).
type MultiHeadAttention struct {
	*nn.Module
	Config         AttentionConfig
	HeadDim        int
	Wq, Wk, Wv, Wo *Linear
}

// NewMultiHeadAttention builds the four projections. cfg.NumKVHeads
// defaults to cfg.NumHeads when left 0.
func NewMultiHeadAttention(name string, cfg AttentionConfig, seed *int64) (*MultiHeadAttention, error) {
	if cfg.NumKVHeads == 0 {
		cfg.NumKVHeads = cfg.NumHeads
	}
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.DModel%cfg.NumHeads != 0 {
		return nil, errs.New(errs.KindArgumentInvalid, "d_model %d must divide by num_heads %d", cfg.DModel, cfg.NumHeads)
	}
	if cfg.NumHeads%cfg.NumKVHeads != 0 {
		return nil, errs.New(errs.KindArgumentInvalid, "num_heads %d must divide by num_kv_heads %d", cfg.NumHeads, cfg.NumKVHeads)
	}
	headDim := cfg.DModel / cfg.NumHeads
	kvDim := cfg.NumKVHeads * headDim

	m := &MultiHeadAttention{Module: nn.NewModule(name), Config: cfg, HeadDim: headDim}
	var err error
	if m.Wq, err = NewLinear("wq", cfg.DModel, cfg.DModel, false, deriveSeed(seed, 1)); err != nil {
		return nil, err
	}
	if m.Wk, err = NewLinear("wk", cfg.DModel, kvDim, false, deriveSeed(seed, 2)); err != nil {
		return nil, err
	}
	if m.Wv, err = NewLinear("wv", cfg.DModel, kvDim, false, deriveSeed(seed, 3)); err != nil {
		return nil, err
	}
	if m.Wo, err = NewLinear("wo", cfg.DModel, cfg.DModel, false, deriveSeed(seed, 4)); err != nil {
		return nil, err
	}
	_ = m.RegisterModule("wq", m.Wq.Module)
	_ = m.RegisterModule("wk", m.Wk.Module)
	_ = m.RegisterModule("wv", m.Wv.Module)
	_ = m.RegisterModule("wo", m.Wo.Module)
	return m, nil
}

// projectHeads applies a Linear to x (batch, seq, d_model), then reshapes
// and permutes its output to (batch, heads, seq, headDim).
func projectHeads(ctx autograd.Context, lin *Linear, x *autograd.Variable, batch, seq, heads, headDim int) (*autograd.Variable, error) {
	flat, err := ops.Reshape(ctx, x, ndarray.NewShape(batch*seq, lin.InDim))
	if err != nil {
		return nil, err
	}
	y, err := lin.Forward(ctx, flat)
	if err != nil {
		return nil, err
	}
	y4, err := ops.Reshape(ctx, y, ndarray.NewShape(batch, seq, heads, headDim))
	if err != nil {
		return nil, err
	}
	return ops.Permute(ctx, y4, []int{0, 2, 1, 3})
}

// repeatKVHeads expands (batch, numKVHeads, seq, headDim) to (batch,
// numHeads, seq, headDim) by repeating each KV head across its query
// group, via broadcast (whose backward correctly sums gradients from
// every query head back onto the shared KV head).
func repeatKVHeads(ctx autograd.Context, kv *autograd.Variable, batch, numKVHeads, numHeads, seq, headDim int) (*autograd.Variable, error) {
	if numKVHeads == numHeads {
		return kv, nil
	}
	repeat := numHeads / numKVHeads
	expanded, err := ops.Reshape(ctx, kv, ndarray.NewShape(batch, numKVHeads, 1, seq, headDim))
	if err != nil {
		return nil, err
	}
	broadcast, err := ops.BroadcastTo(ctx, expanded, ndarray.NewShape(batch, numKVHeads, repeat, seq, headDim))
	if err != nil {
		return nil, err
	}
	return ops.Reshape(ctx, broadcast, ndarray.NewShape(batch, numHeads, seq, headDim))
}

// causalMask builds a (seqQ, seqK) 0/1 mask: 1 where key position j is
// strictly beyond query position startPos+i, per spec.md §4.5's KV-cache
// integration note, broadcast to (batchHeads, seqQ, seqK).
func causalMask(batchHeads, seqQ, seqK, startPos int) *autograd.Variable {
	data := make([]float32, seqQ*seqK)
	for i := 0; i < seqQ; i++ {
		absPos := startPos + i
		for j := 0; j < seqK; j++ {
			if j > absPos {
				data[i*seqK+j] = 1
			}
		}
	}
	base, _ := ndarray.Of(data, ndarray.NewShape(seqQ, seqK))
	full, _ := base.BroadcastTo(ndarray.NewShape(batchHeads, seqQ, seqK))
	return autograd.NewVariable(full, false, "causal_mask")
}

// Forward runs self-attention over x (shape (batch, seq, d_model)). When
// cache is non-nil, x holds only the new tokens starting at startPos; the
// new K/V are appended to cache and the full cached K/V are used for
// scoring (spec.md §4.5 KV-cache integration). rng is consulted only when
// dropout is active in a training context.
func (m *MultiHeadAttention) Forward(ctx autograd.Context, x *autograd.Variable, startPos int, cache *KVCache, rng *rand.Rand) (*autograd.Variable, error) {
	dims := x.Value.Shape().Dims()
	if len(dims) != 3 {
		return nil, errs.New(errs.KindShapeMismatch, "attention input must be rank 3 (batch, seq, d_model), got rank %d", len(dims))
	}
	batch, seq := dims[0], dims[1]
	cfg := m.Config

	q, err := projectHeads(ctx, m.Wq, x, batch, seq, cfg.NumHeads, m.HeadDim)
	if err != nil {
		return nil, err
	}
	k, err := projectHeads(ctx, m.Wk, x, batch, seq, cfg.NumKVHeads, m.HeadDim)
	if err != nil {
		return nil, err
	}
	v, err := projectHeads(ctx, m.Wv, x, batch, seq, cfg.NumKVHeads, m.HeadDim)
	if err != nil {
		return nil, err
	}

	if cfg.UseRoPE {
		if q, err = ops.RoPE(ctx, q, startPos, cfg.RopeBase); err != nil {
			return nil, err
		}
		if k, err = ops.RoPE(ctx, k, startPos, cfg.RopeBase); err != nil {
			return nil, err
		}
	}

	seqK := seq
	if cache != nil {
		kFull, vFull, err := cache.Update(k.Value, v.Value)
		if err != nil {
			return nil, err
		}
		k = autograd.NewVariable(kFull, false, "cached_k")
		v = autograd.NewVariable(vFull, false, "cached_v")
		seqK = kFull.Shape().Dim(2)
	}

	k, err = repeatKVHeads(ctx, k, batch, cfg.NumKVHeads, cfg.NumHeads, seqK, m.HeadDim)
	if err != nil {
		return nil, err
	}
	v, err = repeatKVHeads(ctx, v, batch, cfg.NumKVHeads, cfg.NumHeads, seqK, m.HeadDim)
	if err != nil {
		return nil, err
	}

	batchHeads := batch * cfg.NumHeads
	qFlat, err := ops.Reshape(ctx, q, ndarray.NewShape(batchHeads, seq, m.HeadDim))
	if err != nil {
		return nil, err
	}
	kFlat, err := ops.Reshape(ctx, k, ndarray.NewShape(batchHeads, seqK, m.HeadDim))
	if err != nil {
		return nil, err
	}
	vFlat, err := ops.Reshape(ctx, v, ndarray.NewShape(batchHeads, seqK, m.HeadDim))
	if err != nil {
		return nil, err
	}

	kT, err := ops.Permute(ctx, kFlat, []int{0, 2, 1})
	if err != nil {
		return nil, err
	}
	scores, err := ops.BatchMatMul(ctx, qFlat, kT)
	if err != nil {
		return nil, err
	}
	scores, err = ops.MulScalar(ctx, scores, float32(1/math.Sqrt(float64(m.HeadDim))))
	if err != nil {
		return nil, err
	}

	if cfg.Causal {
		mask := causalMask(batchHeads, seq, seqK, startPos)
		scores, err = ops.MaskedFill(ctx, scores, mask, -1e9)
		if err != nil {
			return nil, err
		}
	}

	weights, err := ops.Softmax(ctx, scores, -1)
	if err != nil {
		return nil, err
	}
	if ctx.Training && cfg.Dropout > 0 {
		weights, err = ops.Dropout(ctx, weights, cfg.Dropout, rng)
		if err != nil {
			return nil, err
		}
	}

	context, err := ops.BatchMatMul(ctx, weights, vFlat)
	if err != nil {
		return nil, err
	}
	context4, err := ops.Reshape(ctx, context, ndarray.NewShape(batch, cfg.NumHeads, seq, m.HeadDim))
	if err != nil {
		return nil, err
	}
	contextPerm, err := ops.Permute(ctx, context4, []int{0, 2, 1, 3})
	if err != nil {
		return nil, err
	}
	contextFlat, err := ops.Reshape(ctx, contextPerm, ndarray.NewShape(batch*seq, cfg.DModel))
	if err != nil {
		return nil, err
	}
	out, err := m.Wo.Forward(ctx, contextFlat)
	if err != nil {
		return nil, err
	}
	return ops.Reshape(ctx, out, ndarray.NewShape(batch, seq, cfg.DModel))
}
