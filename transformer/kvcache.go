package transformer

import (
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// KVCache holds one layer's cached keys and values across an
// autoregressive generation session: shape (batch, heads, cachedLen,
// headDim) for each of K and V, pre-allocated to (batch, heads,
// maxLen, headDim) and written into a moving window rather than
// rebuilt every step, per spec.md §9's explicit design note ("an
// implementer should pre-allocate ... and write into a moving window
// instead, to avoid O(L²) copy cost across a long generation") — the
// source (zautner-Atomic-GPT-explorer/forward.go) instead appends to a
// growing Go slice every step.
type KVCache struct {
	Batch, Heads, HeadDim, MaxLen int
	k, v                          []float32
	currentLen                    int
}

// NewKVCache allocates an empty cache for the given dimensions.
func NewKVCache(batch, heads, headDim, maxLen int) *KVCache {
	size := batch * heads * maxLen * headDim
	return &KVCache{
		Batch: batch, Heads: heads, HeadDim: headDim, MaxLen: maxLen,
		k: make([]float32, size),
		v: make([]float32, size),
	}
}

// CurrentLen reports how many positions are currently cached.
func (c *KVCache) CurrentLen() int { return c.currentLen }

// Clear resets the cache to empty, for reuse at the start of a new
// generation session.
func (c *KVCache) Clear() {
	c.currentLen = 0
}

// Update appends newK/newV (each shape (batch, heads, newSeq, headDim))
// to the cache on the sequence axis and returns the full cached K and V
// up to the new length. When the append would exceed MaxLen, the oldest
// positions are truncated (the window slides forward) so current_len
// never exceeds MaxLen, per spec.md §3's KVCache invariant.
func (c *KVCache) Update(newK, newV *ndarray.NdArray) (*ndarray.NdArray, *ndarray.NdArray, error) {
	dims := newK.Shape().Dims()
	if len(dims) != 4 || dims[0] != c.Batch || dims[1] != c.Heads || dims[3] != c.HeadDim {
		return nil, nil, errs.New(errs.KindShapeMismatch, "KVCache.Update shape %v incompatible with cache (%d,%d,*,%d)", dims, c.Batch, c.Heads, c.HeadDim)
	}
	newSeq := dims[2]

	total := c.currentLen + newSeq
	shift := 0
	if total > c.MaxLen {
		shift = total - c.MaxLen
		total = c.MaxLen
	}

	if shift > 0 {
		c.shiftWindow(shift)
	}
	writeAt := c.currentLen
	c.writeSlice(c.k, newK.Data(), writeAt, newSeq)
	c.writeSlice(c.v, newV.Data(), writeAt, newSeq)
	c.currentLen = total

	kOut, err := c.snapshot(c.k)
	if err != nil {
		return nil, nil, err
	}
	vOut, err := c.snapshot(c.v)
	if err != nil {
		return nil, nil, err
	}
	return kOut, vOut, nil
}

// shiftWindow slides every (batch, head) row's cached positions left by
// shift, discarding the oldest shift positions.
func (c *KVCache) shiftWindow(shift int) {
	for _, buf := range [][]float32{c.k, c.v} {
		for b := 0; b < c.Batch; b++ {
			for h := 0; h < c.Heads; h++ {
				rowBase := (b*c.Heads + h) * c.MaxLen * c.HeadDim
				copy(buf[rowBase:rowBase+(c.MaxLen-shift)*c.HeadDim], buf[rowBase+shift*c.HeadDim:rowBase+c.MaxLen*c.HeadDim])
			}
		}
	}
	c.currentLen -= shift
}

func (c *KVCache) writeSlice(dst, src []float32, writeAt, newSeq int) {
	for b := 0; b < c.Batch; b++ {
		for h := 0; h < c.Heads; h++ {
			dstBase := (b*c.Heads+h)*c.MaxLen*c.HeadDim + writeAt*c.HeadDim
			srcBase := (b*c.Heads + h) * newSeq * c.HeadDim
			copy(dst[dstBase:dstBase+newSeq*c.HeadDim], src[srcBase:srcBase+newSeq*c.HeadDim])
		}
	}
}

// snapshot returns the currently valid (batch, heads, currentLen,
// headDim) slice of buf as a fresh NdArray.
func (c *KVCache) snapshot(buf []float32) (*ndarray.NdArray, error) {
	out := make([]float32, c.Batch*c.Heads*c.currentLen*c.HeadDim)
	for b := 0; b < c.Batch; b++ {
		for h := 0; h < c.Heads; h++ {
			srcBase := (b*c.Heads + h) * c.MaxLen * c.HeadDim
			dstBase := (b*c.Heads + h) * c.currentLen * c.HeadDim
			copy(out[dstBase:dstBase+c.currentLen*c.HeadDim], buf[srcBase:srcBase+c.currentLen*c.HeadDim])
		}
	}
	return ndarray.Of(out, ndarray.NewShape(c.Batch, c.Heads, c.currentLen, c.HeadDim))
}
