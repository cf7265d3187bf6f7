package moe

import (
	"gonum.org/v1/gonum/stat"

	"github.com/tensorforge/core/errs"
)

// LoadBalanceLoss computes spec.md §4.6's auxiliary load-balance loss
// from a RouterOutput: Importance is the normalized column sum of
// AllWeights, Load is the normalized count of Top-K selections, and the
// loss combines their dot product with the coefficient of variation of
// Load. alpha/beta default to 0.01 (the spec's "typical" values) when
// both are left 0.
func LoadBalanceLoss(route *RouterOutput, numExperts int, alpha, beta float32) (float32, error) {
	if alpha == 0 && beta == 0 {
		alpha, beta = 0.01, 0.01
	}
	allWeights := route.AllWeights.Value
	if allWeights.Shape().Rank() != 2 || allWeights.Shape().Dim(1) != numExperts {
		return 0, errs.New(errs.KindShapeMismatch, "all_weights must be (batch, %d)", numExperts)
	}
	batch := allWeights.Shape().Dim(0)
	data := allWeights.Data()

	importance := make([]float64, numExperts)
	for b := 0; b < batch; b++ {
		for e := 0; e < numExperts; e++ {
			importance[e] += float64(data[b*numExperts+e])
		}
	}
	normalize(importance)

	load := make([]float64, numExperts)
	for _, row := range route.TopKIndex {
		for _, e := range row {
			load[e]++
		}
	}
	normalize(load)

	var dot float64
	for e := 0; e < numExperts; e++ {
		dot += importance[e] * load[e]
	}

	mean := stat.Mean(load, nil)
	var cv float64
	if mean > 0 {
		std := stat.StdDev(load, nil)
		cv = std / mean
	}

	loss := float64(alpha)*float64(numExperts)*dot + float64(beta)*cv
	return float32(loss), nil
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
