package optim

import (
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
)

// ClipGradNorm computes the global L2 norm over every parameter's
// gradient and, if it exceeds maxNorm, rescales every gradient by
// maxNorm/norm (spec.md §4.7). Parameters with a nil Grad are skipped
// when computing the norm and left untouched. Returns the pre-clip norm.
func ClipGradNorm(params []*nn.Parameter, maxNorm float32) float32 {
	grads := make([]*ndarray.NdArray, 0, len(params))
	for _, p := range params {
		if p.Grad != nil {
			grads = append(grads, p.Grad)
		}
	}
	norm := ndarray.GlobalL2Norm(grads)
	if norm <= maxNorm || norm == 0 {
		return norm
	}
	scale := maxNorm / norm
	for _, p := range params {
		if p.Grad != nil {
			p.Grad = p.Grad.MulScalar(scale)
		}
	}
	return norm
}
