package ndarray

import "github.com/tensorforge/core/errs"

// Eq returns a 0/1 mask of elementwise equality, with broadcasting.
func (a *NdArray) Eq(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 {
		if x == y {
			return 1
		}
		return 0
	})
}

// Gt returns a 0/1 mask of elementwise a > b, with broadcasting.
func (a *NdArray) Gt(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 {
		if x > y {
			return 1
		}
		return 0
	})
}

// Lt returns a 0/1 mask of elementwise a < b, with broadcasting.
func (a *NdArray) Lt(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 {
		if x < y {
			return 1
		}
		return 0
	})
}

// Mask returns a 0/1 mask of elements strictly greater than threshold
// (an alias for Gt against a scalar).
func (a *NdArray) Mask(threshold float32) *NdArray {
	return a.mapUnary(func(v float32) float32 {
		if v > threshold {
			return 1
		}
		return 0
	})
}

// Maximum computes the elementwise max of a and a scalar threshold.
func (a *NdArray) Maximum(threshold float32) *NdArray {
	return a.mapUnary(func(v float32) float32 {
		if v > threshold {
			return v
		}
		return threshold
	})
}

// Clip clamps every element into [lo, hi]. Errors if lo > hi.
func (a *NdArray) Clip(lo, hi float32) (*NdArray, error) {
	if lo > hi {
		return nil, errs.New(errs.KindArgumentInvalid, "clip requires lo <= hi, got lo=%v hi=%v", lo, hi)
	}
	return a.mapUnary(func(v float32) float32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}), nil
}
