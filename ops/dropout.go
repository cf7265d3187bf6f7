package ops

import (
	"math/rand"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/ndarray"
)

// dropoutFn zeroes elements independently with probability p and rescales
// survivors by 1/(1-p) (inverted dropout), so the expected activation is
// unchanged whether or not dropout is applied at inference.
type dropoutFn struct {
	p    float32
	rng  *rand.Rand
	mask *ndarray.NdArray
}

func (dropoutFn) NumInputs() int { return 1 }
func (f *dropoutFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	keep := 1 - f.p
	data := x.Data()
	maskData := make([]float32, len(data))
	out := make([]float32, len(data))
	for i, v := range data {
		if f.rng.Float32() < keep {
			maskData[i] = 1 / keep
			out[i] = v / keep
		}
	}
	maskArr, err := ndarray.Of(maskData, x.Shape())
	if err != nil {
		return nil, err
	}
	f.mask = maskArr
	result, err := ndarray.Of(out, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}
func (f *dropoutFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	out, err := g[0].Mul(f.mask)
	return []*ndarray.NdArray{out}, err
}

// Dropout zeroes elements of x independently with probability p when ctx
// is a training context; in an eval context it is the identity (the
// defining invariant of inverted dropout).
func Dropout(ctx autograd.Context, x *autograd.Variable, p float32, rng *rand.Rand) (*autograd.Variable, error) {
	if !ctx.Training || p <= 0 {
		return autograd.Call1(ctx, cloneFn{}, x)
	}
	return autograd.Call1(ctx, &dropoutFn{p: p, rng: rng}, x)
}
