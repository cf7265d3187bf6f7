package autograd

import (
	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// Function is a stateless-per-call primitive op: Forward computes raw
// NdArray outputs from raw NdArray inputs; Backward maps an upstream
// gradient per output into one gradient per input (nil at a position
// means that input is non-differentiable, e.g. an integer index tensor).
// NumInputs fixes the arity Call checks against (spec.md §3 "Invariant:
// requires_input_num matches the number of inputs").
type Function interface {
	Forward(inputs []*ndarray.NdArray) ([]*ndarray.NdArray, error)
	Backward(gradOutputs []*ndarray.NdArray) ([]*ndarray.NdArray, error)
	NumInputs() int
}

// call is the per-invocation record binding a Function to the specific
// input/output Variables it was invoked with; this is what the backward
// priority queue traverses.
type call struct {
	fn         Function
	inputs     []*Variable
	outputs    []*Variable
	generation int
	seq        int64
}

// Call invokes fn on inputs. In a training context, when any input
// requires grad, the outputs are wrapped as non-leaf Variables whose
// creator is this call and whose generation is 1 + max(input
// generations); otherwise (eval context, or no input requires grad) the
// outputs are returned as ungrounded leaves with no creator.
func Call(ctx Context, fn Function, inputs ...*Variable) ([]*Variable, error) {
	if len(inputs) != fn.NumInputs() {
		return nil, errs.New(errs.KindArgumentInvalid, "function expects %d inputs, got %d", fn.NumInputs(), len(inputs))
	}
	raw := make([]*ndarray.NdArray, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, errs.New(errs.KindNullInput, "input %d is nil", i)
		}
		raw[i] = in.Value
	}
	outVals, err := fn.Forward(raw)
	if err != nil {
		return nil, err
	}

	requiresGrad := false
	if ctx.Training {
		for _, in := range inputs {
			if in.RequiresGrad {
				requiresGrad = true
				break
			}
		}
	}

	outputs := make([]*Variable, len(outVals))
	if !requiresGrad {
		for i, val := range outVals {
			outputs[i] = NewVariable(val, false, "")
		}
		return outputs, nil
	}

	maxGen := 0
	for _, in := range inputs {
		if in.Generation > maxGen {
			maxGen = in.Generation
		}
	}
	c := &call{fn: fn, inputs: inputs, generation: maxGen + 1, seq: nextSeq()}
	for i, val := range outVals {
		outputs[i] = &Variable{
			Value:        val,
			RequiresGrad: true,
			Generation:   c.generation,
			creator:      c,
			seq:          nextSeq(),
		}
	}
	c.outputs = outputs
	return outputs, nil
}

// Call1 is a convenience wrapper for single-output Functions.
func Call1(ctx Context, fn Function, inputs ...*Variable) (*Variable, error) {
	outs, err := Call(ctx, fn, inputs...)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}
