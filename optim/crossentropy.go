package optim

import (
	"math"

	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// crossEntropyFn fuses softmax and negative log-likelihood into a single
// Function so Backward can use the closed form (softmax - one_hot)/N
// (spec.md §4.7) instead of composing Softmax+Log+Gather and letting
// generic backward chaining rediscover the same simplification.
type crossEntropyFn struct {
	labels  []int
	softmax *ndarray.NdArray
}

func (crossEntropyFn) NumInputs() int { return 1 }

func (f *crossEntropyFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	logits := in[0]
	if logits.Shape().Rank() != 2 {
		return nil, errs.New(errs.KindShapeMismatch, "cross-entropy logits must be rank 2, got rank %d", logits.Shape().Rank())
	}
	n, v := logits.Shape().Dim(0), logits.Shape().Dim(1)
	if len(f.labels) != n {
		return nil, errs.New(errs.KindShapeMismatch, "expected %d labels, got %d", n, len(f.labels))
	}
	probs, err := logits.Softmax(1)
	if err != nil {
		return nil, err
	}
	f.softmax = probs

	data := probs.Data()
	var total float64
	for i, label := range f.labels {
		if label < 0 || label >= v {
			return nil, errs.New(errs.KindIndexOutOfBounds, "label %d out of range for vocab %d", label, v)
		}
		p := data[i*v+label]
		total += -math.Log(float64(p) + 1e-30)
	}
	lossArr, err := ndarray.Of([]float32{float32(total / float64(n))}, ndarray.NewShape(1))
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{lossArr}, nil
}

func (f *crossEntropyFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	n, v := f.softmax.Shape().Dim(0), f.softmax.Shape().Dim(1)
	upstream := g[0].Data()[0]
	out := make([]float32, n*v)
	copy(out, f.softmax.Data())
	for i, label := range f.labels {
		out[i*v+label] -= 1
	}
	scale := upstream / float32(n)
	for i := range out {
		out[i] *= scale
	}
	dx, err := ndarray.Of(out, f.softmax.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// CrossEntropy computes the mean negative log-likelihood of logits (N, V)
// against integer labels (N,), with softmax fused into the same Function
// so Backward returns (softmax - one_hot)/N directly (spec.md §4.7).
func CrossEntropy(ctx autograd.Context, logits *autograd.Variable, labels []int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &crossEntropyFn{labels: labels}, logits)
}
