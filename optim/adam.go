// Package optim implements spec.md §4.7's optimizer and loss
// primitives — Adam (and the SPEC_FULL.md §4.7 AdamW expansion), fused
// softmax cross-entropy, global-L2-norm gradient clipping, and the
// linear-warmup/cosine-decay learning-rate schedule. Grounded on
// zautner-Atomic-GPT-explorer/model.go's Update method (a flat
// parameter/moment-buffer Adam step), generalized from per-scalar
// *Value parameters to per-parameter *ndarray.NdArray moment buffers.
package optim

import (
	"math"

	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/nn"
	"github.com/tensorforge/core/ndarray"
)

// AdamConfig configures an Adam/AdamW optimizer. Beta1/Beta2/Eps default
// to the spec's stated values (0.9, 0.999, 1e-8) when left zero.
// WeightDecay is the SPEC_FULL.md §4.7 AdamW expansion: 0 (the default)
// reproduces spec.md §4.7's plain Adam update exactly.
type AdamConfig struct {
	LR          float32 `validate:"required,gt=0"`
	Beta1       float32 `validate:"gte=0,lt=1"`
	Beta2       float32 `validate:"gte=0,lt=1"`
	Eps         float32 `validate:"gte=0"`
	WeightDecay float32 `validate:"gte=0"`
}

// Adam maintains per-parameter first/second moment buffers and applies
// spec.md §4.7's update rule. Grounded on model.go's Update: the same
// m/v/step bookkeeping, generalized from a flat []float64 per scalar
// Value to one NdArray moment buffer per registered Parameter.
type Adam struct {
	Config AdamConfig
	params []*nn.Parameter
	m, v   []*ndarray.NdArray
	step   int
}

// ParamsOf flattens a Module's named-parameter tree into the ordered
// slice NewAdam expects, in the same pre-order as NamedParameters.
func ParamsOf(m *nn.Module) []*nn.Parameter {
	named := m.NamedParameters("")
	out := make([]*nn.Parameter, 0, named.Len())
	for pair := named.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// NewAdam builds an optimizer over params, zero-initializing its moment
// buffers to match each parameter's shape.
func NewAdam(cfg AdamConfig, params []*nn.Parameter) (*Adam, error) {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	if err := nn.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &Adam{
		Config: cfg,
		params: params,
		m:      make([]*ndarray.NdArray, len(params)),
		v:      make([]*ndarray.NdArray, len(params)),
	}
	for i, p := range params {
		if p == nil {
			return nil, errs.New(errs.KindNullInput, "parameter %d is nil", i)
		}
		a.m[i] = ndarray.Zeros(p.Value.Shape())
		a.v[i] = ndarray.Zeros(p.Value.Shape())
	}
	return a, nil
}

// Step applies one Adam (or AdamW, when Config.WeightDecay > 0) update
// to every parameter that currently carries a gradient, then advances the
// internal step counter used for bias correction. Parameters with a nil
// Grad are left untouched.
func (a *Adam) Step() error {
	a.step++
	beta1, beta2, eps, lr, wd := a.Config.Beta1, a.Config.Beta2, a.Config.Eps, a.Config.LR, a.Config.WeightDecay
	biasCorrect1 := float32(1 - math.Pow(float64(beta1), float64(a.step)))
	biasCorrect2 := float32(1 - math.Pow(float64(beta2), float64(a.step)))

	for i, p := range a.params {
		if p.Grad == nil {
			continue
		}
		g := p.Grad

		mScaled := a.m[i].MulScalar(beta1)
		gScaled := g.MulScalar(1 - beta1)
		m, err := mScaled.Add(gScaled)
		if err != nil {
			return err
		}
		a.m[i] = m

		vScaled := a.v[i].MulScalar(beta2)
		gSqScaled := g.Square().MulScalar(1 - beta2)
		v, err := vScaled.Add(gSqScaled)
		if err != nil {
			return err
		}
		a.v[i] = v

		mHat := m.MulScalar(1 / biasCorrect1)
		vHat := v.MulScalar(1 / biasCorrect2)
		vHatSqrt, err := vHat.Sqrt()
		if err != nil {
			return err
		}
		denom := vHatSqrt.AddScalar(eps)
		update, err := mHat.Div(denom)
		if err != nil {
			return err
		}

		theta := p.Value
		if wd != 0 {
			theta = theta.MulScalar(1 - lr*wd)
		}
		newTheta, err := theta.Sub(update.MulScalar(lr))
		if err != nil {
			return err
		}
		p.Value = newTheta
		p.Grad = nil
	}
	return nil
}
