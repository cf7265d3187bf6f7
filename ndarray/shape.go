// Package ndarray implements the n-dimensional float32 array engine: an
// immutable shape descriptor plus a contiguous row-major buffer, with
// arithmetic, broadcasting, reductions, matmul, masking and slicing.
package ndarray

import (
	"fmt"
	"strings"

	"github.com/tensorforge/core/errs"
)

// Shape is an ordered sequence of dims. A 0-length dim is a legal
// sentinel (an empty axis); Rank and Size are derived, never stored.
type Shape struct {
	dims []int
}

// NewShape builds a Shape from the given dims. Negative dims are rejected;
// zero-length dims are permitted as sentinels.
func NewShape(dims ...int) Shape {
	cp := make([]int, len(dims))
	for i, d := range dims {
		if d < 0 {
			panic(errs.New(errs.KindArgumentInvalid, "shape dim %d is negative", d))
		}
		cp[i] = d
	}
	return Shape{dims: cp}
}

// Dims returns a copy of the ordered dims.
func (s Shape) Dims() []int {
	cp := make([]int, len(s.dims))
	copy(cp, s.dims)
	return cp
}

// Dim returns the size of axis i.
func (s Shape) Dim(i int) int { return s.dims[i] }

// Rank is the number of dims.
func (s Shape) Rank() int { return len(s.dims) }

// Size is the product of all dims (the buffer length for an NdArray with
// this shape). A rank-0 shape has size 1 (a scalar).
func (s Shape) Size() int {
	size := 1
	for _, d := range s.dims {
		size *= d
	}
	return size
}

// Equal reports whether two shapes have identical dims.
func (s Shape) Equal(o Shape) bool {
	if len(s.dims) != len(o.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != o.dims[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s.dims))
	for i, d := range s.dims {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// BroadcastCompatible reports whether s and o are broadcast-compatible:
// right-aligned, each dim pair is equal or one of them is 1.
func (s Shape) BroadcastCompatible(o Shape) bool {
	_, ok := BroadcastShape(s, o)
	return ok
}

// BroadcastShape computes the result shape of broadcasting a and b
// together, right-aligned per NumPy-style rules.
func BroadcastShape(a, b Shape) (Shape, bool) {
	n := len(a.dims)
	if len(b.dims) > n {
		n = len(b.dims)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		ai := 1
		if idx := len(a.dims) - n + i; idx >= 0 {
			ai = a.dims[idx]
		}
		bi := 1
		if idx := len(b.dims) - n + i; idx >= 0 {
			bi = b.dims[idx]
		}
		switch {
		case ai == bi:
			out[i] = ai
		case ai == 1:
			out[i] = bi
		case bi == 1:
			out[i] = ai
		default:
			return Shape{}, false
		}
	}
	return NewShape(out...), true
}

// resolveAxis turns a possibly-negative axis into [0, rank).
func resolveAxis(axis, rank int) (int, error) {
	a := axis
	if a < 0 {
		a = rank + a
	}
	if a < 0 || a >= rank {
		return 0, errs.New(errs.KindArgumentInvalid, "axis %d out of range for rank %d", axis, rank)
	}
	return a, nil
}

// strides computes row-major strides for the given dims.
func strides(dims []int) []int {
	st := make([]int, len(dims))
	acc := 1
	for i := len(dims) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= dims[i]
	}
	return st
}
