package ndarray

import (
	"fmt"
	"math/rand"

	"github.com/tensorforge/core/errs"
)

// NdArray is a pair of (Shape, contiguous row-major float32 buffer of
// length shape.Size()). Read APIs treat it as value-typed: every op below
// returns a freshly allocated NdArray unless the doc comment says
// otherwise. Set is the one op that mutates in place; AddTo and AddAt
// return fresh copies.
type NdArray struct {
	shape Shape
	buf   []float32
}

// Shape returns the array's shape.
func (a *NdArray) Shape() Shape { return a.shape }

// Size is the number of elements (shape.Size()).
func (a *NdArray) Size() int { return len(a.buf) }

// Data returns the underlying buffer. Callers must not mutate it; use Set
// or the documented mutating ops instead.
func (a *NdArray) Data() []float32 { return a.buf }

func newRaw(shape Shape, buf []float32) *NdArray {
	if len(buf) != shape.Size() {
		panic(errs.New(errs.KindShapeMismatch, "buffer length %d does not match shape %s (size %d)", len(buf), shape, shape.Size()))
	}
	return &NdArray{shape: shape, buf: buf}
}

// Zeros builds an all-zero array of the given shape.
func Zeros(shape Shape) *NdArray {
	return newRaw(shape, make([]float32, shape.Size()))
}

// Ones builds an all-one array of the given shape.
func Ones(shape Shape) *NdArray {
	buf := make([]float32, shape.Size())
	for i := range buf {
		buf[i] = 1
	}
	return newRaw(shape, buf)
}

// Eye builds a 2-D identity-like array: 1 on the main diagonal, 0
// elsewhere. shape must be rank 2.
func Eye(shape Shape) (*NdArray, error) {
	if shape.Rank() != 2 {
		return nil, errs.New(errs.KindArgumentInvalid, "Eye requires rank-2 shape, got %s", shape)
	}
	rows, cols := shape.Dim(0), shape.Dim(1)
	buf := make([]float32, rows*cols)
	n := rows
	if cols < n {
		n = cols
	}
	for i := 0; i < n; i++ {
		buf[i*cols+i] = 1
	}
	return newRaw(shape, buf), nil
}

// Of builds an NdArray from a flat []float32 plus an explicit shape.
func Of(data []float32, shape Shape) (*NdArray, error) {
	if len(data) != shape.Size() {
		return nil, errs.New(errs.KindShapeMismatch, "data length %d does not match shape %s (size %d)", len(data), shape, shape.Size())
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return newRaw(shape, buf), nil
}

// Of1D builds a rank-1 array directly from a []float32.
func Of1D(data []float32) *NdArray {
	buf := make([]float32, len(data))
	copy(buf, data)
	return newRaw(NewShape(len(data)), buf)
}

// Of2D builds a rank-2 array from row-major [][]float32. All rows must
// have equal length.
func Of2D(data [][]float32) (*NdArray, error) {
	if len(data) == 0 {
		return newRaw(NewShape(0, 0), nil), nil
	}
	cols := len(data[0])
	buf := make([]float32, 0, len(data)*cols)
	for _, row := range data {
		if len(row) != cols {
			return nil, errs.New(errs.KindShapeMismatch, "ragged 2-D input: row length %d, expected %d", len(row), cols)
		}
		buf = append(buf, row...)
	}
	return newRaw(NewShape(len(data), cols), buf), nil
}

// Of3D builds a rank-3 array from nested [][][]float32.
func Of3D(data [][][]float32) (*NdArray, error) {
	if len(data) == 0 {
		return newRaw(NewShape(0, 0, 0), nil), nil
	}
	d1, d2 := len(data[0]), 0
	if d1 > 0 {
		d2 = len(data[0][0])
	}
	buf := make([]float32, 0, len(data)*d1*d2)
	for _, plane := range data {
		if len(plane) != d1 {
			return nil, errs.New(errs.KindShapeMismatch, "ragged 3-D input")
		}
		for _, row := range plane {
			if len(row) != d2 {
				return nil, errs.New(errs.KindShapeMismatch, "ragged 3-D input")
			}
			buf = append(buf, row...)
		}
	}
	return newRaw(NewShape(len(data), d1, d2), buf), nil
}

// Of4D builds a rank-4 array from nested [][][][]float32.
func Of4D(data [][][][]float32) (*NdArray, error) {
	if len(data) == 0 {
		return newRaw(NewShape(0, 0, 0, 0), nil), nil
	}
	d1 := len(data[0])
	d2, d3 := 0, 0
	if d1 > 0 {
		d2 = len(data[0][0])
		if d2 > 0 {
			d3 = len(data[0][0][0])
		}
	}
	buf := make([]float32, 0, len(data)*d1*d2*d3)
	for _, cube := range data {
		if len(cube) != d1 {
			return nil, errs.New(errs.KindShapeMismatch, "ragged 4-D input")
		}
		for _, plane := range cube {
			if len(plane) != d2 {
				return nil, errs.New(errs.KindShapeMismatch, "ragged 4-D input")
			}
			for _, row := range plane {
				if len(row) != d3 {
					return nil, errs.New(errs.KindShapeMismatch, "ragged 4-D input")
				}
				buf = append(buf, row...)
			}
		}
	}
	return newRaw(NewShape(len(data), d1, d2, d3), buf), nil
}

// Linspace returns n evenly spaced samples from start to end, inclusive.
// n must be >= 1.
func Linspace(start, end float32, n int) (*NdArray, error) {
	if n <= 0 {
		return nil, errs.New(errs.KindArgumentInvalid, "linspace requires n >= 1, got %d", n)
	}
	buf := make([]float32, n)
	if n == 1 {
		buf[0] = start
		return newRaw(NewShape(n), buf), nil
	}
	step := (end - start) / float32(n-1)
	for i := 0; i < n; i++ {
		buf[i] = start + step*float32(i)
	}
	return newRaw(NewShape(n), buf), nil
}

// RandomNormal draws iid samples from a standard normal distribution
// into the given shape. A nil seed uses the package-level source.
func RandomNormal(shape Shape, seed *int64) *NdArray {
	rng := rngFor(seed)
	buf := make([]float32, shape.Size())
	for i := range buf {
		buf[i] = float32(rng.NormFloat64())
	}
	return newRaw(shape, buf)
}

// RandomUniform draws iid samples uniformly from [min, max) into the
// given shape. A nil seed uses the package-level source.
func RandomUniform(min, max float32, shape Shape, seed *int64) *NdArray {
	rng := rngFor(seed)
	buf := make([]float32, shape.Size())
	for i := range buf {
		buf[i] = min + float32(rng.Float64())*(max-min)
	}
	return newRaw(shape, buf)
}

func rngFor(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(*seed))
}

// Clone returns a deep copy.
func (a *NdArray) Clone() *NdArray {
	buf := make([]float32, len(a.buf))
	copy(buf, a.buf)
	return newRaw(a.shape, buf)
}

// Equal reports elementwise approximate equality within tol.
func (a *NdArray) Equal(o *NdArray, tol float32) bool {
	if !a.shape.Equal(o.shape) {
		return false
	}
	for i := range a.buf {
		d := a.buf[i] - o.buf[i]
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

func (a *NdArray) String() string {
	n := len(a.buf)
	sample := n
	if sample > 8 {
		sample = 8
	}
	return fmt.Sprintf("NdArray%s%v...", a.shape, a.buf[:sample])
}

func flatIndex(shape Shape, idx []int) (int, error) {
	if len(idx) != shape.Rank() {
		return 0, errs.New(errs.KindIndexOutOfBounds, "expected %d indices, got %d", shape.Rank(), len(idx))
	}
	st := strides(shape.dims)
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= shape.dims[i] {
			return 0, errs.New(errs.KindIndexOutOfBounds, "index %d out of range for axis %d (size %d)", ix, i, shape.dims[i])
		}
		off += ix * st[i]
	}
	return off, nil
}

// Get reads the scalar at the given multi-index.
func (a *NdArray) Get(indices ...int) (float32, error) {
	off, err := flatIndex(a.shape, indices)
	if err != nil {
		return 0, err
	}
	return a.buf[off], nil
}

// Set mutates the scalar at the given multi-index in place.
func (a *NdArray) Set(value float32, indices ...int) error {
	off, err := flatIndex(a.shape, indices)
	if err != nil {
		return err
	}
	a.buf[off] = value
	return nil
}
