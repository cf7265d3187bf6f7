package autograd

import (
	"sync/atomic"

	"github.com/tensorforge/core/ndarray"
)

var seqCounter int64

func nextSeq() int64 { return atomic.AddInt64(&seqCounter, 1) }

// Variable is a node in the autodiff graph.
type Variable struct {
	Value        *ndarray.NdArray
	Grad         *ndarray.NdArray
	creator      *call
	Generation   int
	RequiresGrad bool
	Name         string
	seq          int64
}

// NewVariable constructs a leaf Variable (no creator). name is optional.
func NewVariable(value *ndarray.NdArray, requiresGrad bool, name string) *Variable {
	return &Variable{
		Value:        value,
		RequiresGrad: requiresGrad,
		Name:         name,
		Generation:   0,
		seq:          nextSeq(),
	}
}

// HasCreator reports whether this Variable was produced by a Function
// call (as opposed to being a leaf).
func (v *Variable) HasCreator() bool { return v.creator != nil }

// ZeroGrad clears the accumulated gradient.
func (v *Variable) ZeroGrad() { v.Grad = nil }

// UnchainBackward walks the creator chain breadth-first from v and clears
// each Function call's input references, allowing the underlying
// NdArrays to be freed between training steps (spec.md §4.2).
func (v *Variable) UnchainBackward() {
	queue := []*Variable{v}
	visited := make(map[*call]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		c := cur.creator
		if c == nil || visited[c] {
			continue
		}
		visited[c] = true
		for _, in := range c.inputs {
			queue = append(queue, in)
		}
		c.inputs = nil
	}
}
