package transformer

import (
	"github.com/google/uuid"
)

// Session wraps one KVCache per layer under a single identity, giving one
// generation session a single owner for its per-layer caches. The type
// system does not enforce that ownership: NewKVCache is exported and
// MultiHeadAttention.Forward and Block.Forward accept any *KVCache, so a
// cache can also be created and passed without a Session. This has no analogue in the source (which keeps keys/values as
// bare `[][][]*Value` slices threaded by hand through Forward's
// parameters) — grounded directly on SPEC_FULL.md §3's expansion note.
type Session struct {
	ID     uuid.UUID
	caches []*KVCache
}

// NewSession allocates a fresh per-layer KVCache set identified by a new
// uuid.
func NewSession(numLayers, batch, heads, headDim, maxLen int) *Session {
	caches := make([]*KVCache, numLayers)
	for i := range caches {
		caches[i] = NewKVCache(batch, heads, headDim, maxLen)
	}
	return &Session{ID: uuid.New(), caches: caches}
}

// Cache returns the KVCache owned by this session for the given layer
// index.
func (s *Session) Cache(layer int) *KVCache {
	return s.caches[layer]
}

// Clear resets every layer's cache, for starting a new generation without
// reallocating.
func (s *Session) Clear() {
	for _, c := range s.caches {
		c.Clear()
	}
}
