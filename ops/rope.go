package ops

import (
	"math"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// ropeFn applies rotary position embeddings over the last axis of x,
// rotating each consecutive pair of elements by an angle that grows
// with both position (second-to-last axis, offset by startPos) and pair
// index (per the standard inverse-frequency schedule base^(-2i/headDim)).
// The rotation is an orthogonal linear map, so its Jacobian-transpose is
// the same rotation with the angle negated; Backward exploits that
// directly rather than re-deriving it per element.
type ropeFn struct {
	base     float64
	startPos int
	seqLen   int
	headDim  int
	lead     int // product of all axes before the (seqLen, headDim) pair
	cos, sin []float32
}

func (ropeFn) NumInputs() int { return 1 }

func (f *ropeFn) precompute() {
	half := f.headDim / 2
	f.cos = make([]float32, f.seqLen*half)
	f.sin = make([]float32, f.seqLen*half)
	for pos := 0; pos < f.seqLen; pos++ {
		p := float64(f.startPos + pos)
		for i := 0; i < half; i++ {
			freq := 1.0 / math.Pow(f.base, float64(2*i)/float64(f.headDim))
			angle := p * freq
			f.cos[pos*half+i] = float32(math.Cos(angle))
			f.sin[pos*half+i] = float32(math.Sin(angle))
		}
	}
}

func (f *ropeFn) rotate(in []float32, negateSin bool) []float32 {
	half := f.headDim / 2
	out := make([]float32, len(in))
	rowSize := f.seqLen * f.headDim
	for l := 0; l < f.lead; l++ {
		base := l * rowSize
		for pos := 0; pos < f.seqLen; pos++ {
			rowBase := base + pos*f.headDim
			for i := 0; i < half; i++ {
				c := f.cos[pos*half+i]
				s := f.sin[pos*half+i]
				if negateSin {
					s = -s
				}
				x1 := in[rowBase+2*i]
				x2 := in[rowBase+2*i+1]
				out[rowBase+2*i] = x1*c - x2*s
				out[rowBase+2*i+1] = x1*s + x2*c
			}
		}
	}
	return out
}

func (f *ropeFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	dims := x.Shape().Dims()
	if len(dims) < 2 {
		return nil, errs.New(errs.KindNotSupported, "RoPE requires rank >= 2, got rank %d", len(dims))
	}
	f.headDim = dims[len(dims)-1]
	if f.headDim%2 != 0 {
		return nil, errs.New(errs.KindArgumentInvalid, "RoPE requires an even head dim, got %d", f.headDim)
	}
	f.seqLen = dims[len(dims)-2]
	lead := 1
	for i := 0; i < len(dims)-2; i++ {
		lead *= dims[i]
	}
	f.lead = lead
	f.precompute()

	out := f.rotate(x.Data(), false)
	result, err := ndarray.Of(out, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}

func (f *ropeFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out := f.rotate(g[0].Data(), true)
	dx, err := ndarray.Of(out, g[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// RoPE applies rotary position embeddings to x (shape (..., seqLen,
// headDim)) with positions starting at startPos, using the given base
// for the inverse-frequency schedule (10000 is the usual default).
func RoPE(ctx autograd.Context, x *autograd.Variable, startPos int, base float64) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &ropeFn{base: base, startPos: startPos}, x)
}
