package ops

import (
	"github.com/tensorforge/core/autograd"
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// maskedFillFn replaces elements where mask is non-zero with a constant
// fill value. mask is a real graph input (non-differentiable: Backward
// returns nil at its position) rather than a struct field, since it is
// itself typically produced by another op (Tril, Gt, ...) and belongs in
// the graph for generation bookkeeping even though no gradient flows
// through it.
type maskedFillFn struct {
	fill float32
	mask *ndarray.NdArray
}

func (maskedFillFn) NumInputs() int { return 2 }
func (f *maskedFillFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x, mask := in[0], in[1]
	if !x.Shape().Equal(mask.Shape()) {
		return nil, errs.New(errs.KindShapeMismatch, "MaskedFill requires matching shapes, got %s and %s", x.Shape(), mask.Shape())
	}
	f.mask = mask
	data := x.Data()
	maskData := mask.Data()
	out := make([]float32, len(data))
	for i := range data {
		if maskData[i] != 0 {
			out[i] = f.fill
		} else {
			out[i] = data[i]
		}
	}
	result, err := ndarray.Of(out, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}
func (f *maskedFillFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	data := g[0].Data()
	maskData := f.mask.Data()
	out := make([]float32, len(data))
	for i := range data {
		if maskData[i] == 0 {
			out[i] = data[i]
		}
	}
	dx, err := ndarray.Of(out, g[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx, nil}, nil
}

// MaskedFill replaces elements of x where mask is non-zero with fill.
func MaskedFill(ctx autograd.Context, x, mask *autograd.Variable, fill float32) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &maskedFillFn{fill: fill}, x, mask)
}

type trilFn struct{ k int }

func (trilFn) NumInputs() int { return 1 }
func (f trilFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	x := in[0]
	if x.Shape().Rank() != 2 {
		return nil, errs.New(errs.KindNotSupported, "Tril requires rank 2, got rank %d", x.Shape().Rank())
	}
	rows, cols := x.Shape().Dim(0), x.Shape().Dim(1)
	data := x.Data()
	out := make([]float32, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c-r <= f.k {
				out[r*cols+c] = data[r*cols+c]
			}
		}
	}
	result, err := ndarray.Of(out, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}
func (f trilFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	rows, cols := g[0].Shape().Dim(0), g[0].Shape().Dim(1)
	data := g[0].Data()
	out := make([]float32, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c-r <= f.k {
				out[r*cols+c] = data[r*cols+c]
			}
		}
	}
	dx, err := ndarray.Of(out, g[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{dx}, nil
}

// Tril zeroes elements above the k-th diagonal of a rank-2 Variable,
// the building block for a causal attention mask (k=0).
func Tril(ctx autograd.Context, x *autograd.Variable, k int) (*autograd.Variable, error) {
	return autograd.Call1(ctx, trilFn{k: k}, x)
}

// whereFn selects elementwise between x and y according to a 0/1 cond
// tensor. cond is non-differentiable.
type whereFn struct{ cond *ndarray.NdArray }

func (whereFn) NumInputs() int { return 3 }
func (f *whereFn) Forward(in []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	cond, x, y := in[0], in[1], in[2]
	if !cond.Shape().Equal(x.Shape()) || !cond.Shape().Equal(y.Shape()) {
		return nil, errs.New(errs.KindShapeMismatch, "Where requires matching shapes, got cond=%s x=%s y=%s", cond.Shape(), x.Shape(), y.Shape())
	}
	f.cond = cond
	condData, xData, yData := cond.Data(), x.Data(), y.Data()
	out := make([]float32, len(condData))
	for i := range condData {
		if condData[i] != 0 {
			out[i] = xData[i]
		} else {
			out[i] = yData[i]
		}
	}
	result, err := ndarray.Of(out, x.Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{result}, nil
}
func (f *whereFn) Backward(g []*ndarray.NdArray) ([]*ndarray.NdArray, error) {
	condData := f.cond.Data()
	gData := g[0].Data()
	dx := make([]float32, len(gData))
	dy := make([]float32, len(gData))
	for i := range gData {
		if condData[i] != 0 {
			dx[i] = gData[i]
		} else {
			dy[i] = gData[i]
		}
	}
	dxArr, err := ndarray.Of(dx, g[0].Shape())
	if err != nil {
		return nil, err
	}
	dyArr, err := ndarray.Of(dy, g[0].Shape())
	if err != nil {
		return nil, err
	}
	return []*ndarray.NdArray{nil, dxArr, dyArr}, nil
}

// Where selects x where cond is non-zero, y elsewhere.
func Where(ctx autograd.Context, cond, x, y *autograd.Variable) (*autograd.Variable, error) {
	return autograd.Call1(ctx, &whereFn{}, cond, x, y)
}
