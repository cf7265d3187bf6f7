package ndarray

import "github.com/tensorforge/core/errs"

// Reshape returns a view-equivalent array with a new shape of equal size.
func (a *NdArray) Reshape(shape Shape) (*NdArray, error) {
	if shape.Size() != a.shape.Size() {
		return nil, errs.New(errs.KindShapeMismatch, "cannot reshape %s (size %d) into %s (size %d)", a.shape, a.shape.Size(), shape, shape.Size())
	}
	buf := make([]float32, len(a.buf))
	copy(buf, a.buf)
	return newRaw(shape, buf), nil
}

// Transpose swaps the two axes of a rank-2 array.
func (a *NdArray) Transpose() (*NdArray, error) {
	if a.shape.Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "Transpose() requires rank 2, got rank %d; use Permute for other ranks", a.shape.Rank())
	}
	return a.Permute([]int{1, 0})
}

// Permute reorders axes according to perm, which must be a permutation of
// [0, rank).
func (a *NdArray) Permute(perm []int) (*NdArray, error) {
	rank := a.shape.Rank()
	if len(perm) != rank {
		return nil, errs.New(errs.KindArgumentInvalid, "permutation length %d does not match rank %d", len(perm), rank)
	}
	seen := make([]bool, rank)
	for _, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return nil, errs.New(errs.KindArgumentInvalid, "invalid or duplicate permutation entry %d", p)
		}
		seen[p] = true
	}

	dims := a.shape.Dims()
	outDims := make([]int, rank)
	for i, p := range perm {
		outDims[i] = dims[p]
	}
	outShape := NewShape(outDims...)
	srcStrides := strides(dims)
	out := make([]float32, len(a.buf))

	idx := make([]int, rank)
	for i := range out {
		srcIdx := make([]int, rank)
		for outAxis, srcAxis := range perm {
			srcIdx[srcAxis] = idx[outAxis]
		}
		off := 0
		for j, v := range srcIdx {
			off += v * srcStrides[j]
		}
		out[i] = a.buf[off]
		incIdx(idx, outDims)
	}
	return newRaw(outShape, out), nil
}

// Flatten collapses the array into shape (1, size).
func (a *NdArray) Flatten() *NdArray {
	buf := make([]float32, len(a.buf))
	copy(buf, a.buf)
	return newRaw(NewShape(1, a.shape.Size()), buf)
}

// BroadcastTo expands a to the given shape per broadcasting rules.
func (a *NdArray) BroadcastTo(shape Shape) (*NdArray, error) {
	if !shapeBroadcastsInto(a.shape, shape) {
		return nil, errs.New(errs.KindShapeMismatch, "cannot broadcast %s to %s", a.shape, shape)
	}
	dims := shape.Dims()
	st := broadcastStrides(a.shape, dims)
	out := make([]float32, shape.Size())
	idx := make([]int, len(dims))
	for i := range out {
		out[i] = a.buf[dotIdx(idx, st)]
		incIdx(idx, dims)
	}
	return newRaw(shape, out), nil
}

// shapeBroadcastsInto reports whether src can broadcast into the exact
// target shape (target must equal the broadcast result of src and target).
func shapeBroadcastsInto(src, target Shape) bool {
	result, ok := BroadcastShape(src, target)
	return ok && result.Equal(target)
}

// SumTo reduces a broadcast-expanded array back down to shape, summing
// over every axis that was broadcast (size-1 in shape, or absent due to
// rank difference).
func (a *NdArray) SumTo(shape Shape) (*NdArray, error) {
	if shape.Size() > a.shape.Size() {
		return nil, errs.New(errs.KindShapeMismatch, "SumTo target %s is larger than source %s", shape, a.shape)
	}
	srcDims := a.shape.Dims()
	rankDiff := len(srcDims) - shape.Rank()
	if rankDiff < 0 {
		return nil, errs.New(errs.KindShapeMismatch, "SumTo target %s has higher rank than source %s", shape, a.shape)
	}
	result := a
	// Sum off leading axes with no counterpart in shape.
	for i := 0; i < rankDiff; i++ {
		reduced, err := result.SumAxis(0)
		if err != nil {
			return nil, err
		}
		squeezed, err := reduced.Reshape(NewShape(reduced.shape.Dims()[1:]...))
		if err != nil {
			return nil, err
		}
		result = squeezed
	}
	// Sum (with keepdims) over remaining axes that are size 1 in target.
	targetDims := shape.Dims()
	for axis, d := range targetDims {
		if d == 1 && result.shape.Dim(axis) != 1 {
			reduced, err := result.SumAxis(axis)
			if err != nil {
				return nil, err
			}
			result = reduced
		}
	}
	if !result.shape.Equal(shape) {
		return nil, errs.New(errs.KindShapeMismatch, "SumTo could not reduce %s into %s", a.shape, shape)
	}
	return result, nil
}
