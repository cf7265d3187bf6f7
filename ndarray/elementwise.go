package ndarray

import (
	"math"

	"github.com/tensorforge/core/errs"
)

// broadcastPair walks a's and b's broadcast-compatible index space and
// applies fn(aValue, bValue) for every output element, returning a new
// array of the broadcast shape.
func broadcastPair(a, b *NdArray, fn func(x, y float32) float32) (*NdArray, error) {
	out, ok := BroadcastShape(a.shape, b.shape)
	if !ok {
		return nil, errs.New(errs.KindShapeMismatch, "cannot broadcast %s with %s", a.shape, b.shape)
	}
	dims := out.Dims()
	result := make([]float32, out.Size())
	aStrides := broadcastStrides(a.shape, dims)
	bStrides := broadcastStrides(b.shape, dims)
	idx := make([]int, len(dims))
	for i := range result {
		ao := dotIdx(idx, aStrides)
		bo := dotIdx(idx, bStrides)
		result[i] = fn(a.buf[ao], b.buf[bo])
		incIdx(idx, dims)
	}
	return newRaw(out, result), nil
}

// broadcastStrides computes, for a source shape right-aligned against the
// broadcast output dims, the stride to use on each output axis (0 where
// the source dim is 1-and-broadcast, the true stride otherwise).
func broadcastStrides(src Shape, outDims []int) []int {
	n := len(outDims)
	srcDims := src.dims
	offset := n - len(srcDims)
	srcStrides := strides(srcDims)
	result := make([]int, n)
	for i := 0; i < n; i++ {
		si := i - offset
		if si < 0 {
			result[i] = 0
			continue
		}
		if srcDims[si] == 1 {
			result[i] = 0
		} else {
			result[i] = srcStrides[si]
		}
	}
	return result
}

func dotIdx(idx, strides []int) int {
	off := 0
	for i, v := range idx {
		off += v * strides[i]
	}
	return off
}

func incIdx(idx, dims []int) {
	for i := len(dims) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < dims[i] {
			return
		}
		idx[i] = 0
	}
}

// Add computes elementwise a+b with broadcasting.
func (a *NdArray) Add(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 { return x + y })
}

// Sub computes elementwise a-b with broadcasting.
func (a *NdArray) Sub(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 { return x - y })
}

// Mul computes elementwise a*b with broadcasting.
func (a *NdArray) Mul(b *NdArray) (*NdArray, error) {
	return broadcastPair(a, b, func(x, y float32) float32 { return x * y })
}

// Div computes elementwise a/b with broadcasting. Errors if any divisor
// element is exactly zero.
func (a *NdArray) Div(b *NdArray) (*NdArray, error) {
	for _, v := range b.buf {
		if v == 0 {
			return nil, errs.New(errs.KindArithmetic, "division by zero")
		}
	}
	return broadcastPair(a, b, func(x, y float32) float32 { return x / y })
}

func (a *NdArray) mapUnary(fn func(float32) float32) *NdArray {
	out := make([]float32, len(a.buf))
	for i, v := range a.buf {
		out[i] = fn(v)
	}
	return newRaw(a.shape, out)
}

// AddScalar adds a constant to every element.
func (a *NdArray) AddScalar(s float32) *NdArray {
	return a.mapUnary(func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by a constant.
func (a *NdArray) MulScalar(s float32) *NdArray {
	return a.mapUnary(func(v float32) float32 { return v * s })
}

// DivScalar divides every element by a constant. Errors if s == 0.
func (a *NdArray) DivScalar(s float32) (*NdArray, error) {
	if s == 0 {
		return nil, errs.New(errs.KindArithmetic, "division by zero scalar")
	}
	return a.mapUnary(func(v float32) float32 { return v / s }), nil
}

// Neg negates every element.
func (a *NdArray) Neg() *NdArray { return a.mapUnary(func(v float32) float32 { return -v }) }

// Abs takes the absolute value of every element.
func (a *NdArray) Abs() *NdArray {
	return a.mapUnary(func(v float32) float32 {
		if v < 0 {
			return -v
		}
		return v
	})
}

// Exp applies e^x elementwise.
func (a *NdArray) Exp() *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Log applies natural log elementwise. Errors if any element is <= 0.
func (a *NdArray) Log() (*NdArray, error) {
	for _, v := range a.buf {
		if v <= 0 {
			return nil, errs.New(errs.KindArithmetic, "log of non-positive value %v", v)
		}
	}
	return a.mapUnary(func(v float32) float32 { return float32(math.Log(float64(v))) }), nil
}

// Sqrt applies sqrt elementwise. Errors if any element is negative.
func (a *NdArray) Sqrt() (*NdArray, error) {
	for _, v := range a.buf {
		if v < 0 {
			return nil, errs.New(errs.KindArithmetic, "sqrt of negative value %v", v)
		}
	}
	return a.mapUnary(func(v float32) float32 { return float32(math.Sqrt(float64(v))) }), nil
}

// Pow raises every element to the given exponent.
func (a *NdArray) Pow(exp float32) *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(math.Pow(float64(v), float64(exp))) })
}

// Square computes x^2 elementwise.
func (a *NdArray) Square() *NdArray { return a.mapUnary(func(v float32) float32 { return v * v }) }

// Sin applies sine elementwise.
func (a *NdArray) Sin() *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(math.Sin(float64(v))) })
}

// Cos applies cosine elementwise.
func (a *NdArray) Cos() *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(math.Cos(float64(v))) })
}

// Tanh applies hyperbolic tangent elementwise.
func (a *NdArray) Tanh() *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(math.Tanh(float64(v))) })
}

// Sigmoid applies the logistic sigmoid elementwise.
func (a *NdArray) Sigmoid() *NdArray {
	return a.mapUnary(func(v float32) float32 { return float32(1 / (1 + math.Exp(-float64(v)))) })
}
