package ndarray

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GlobalL2Norm computes the L2 norm of the concatenation of every array's
// buffer, used by gradient clipping (optim) to compute a single norm over
// all parameter gradients without materializing the concatenation.
func GlobalL2Norm(arrays []*NdArray) float32 {
	var total float64
	for _, a := range arrays {
		if a == nil || len(a.buf) == 0 {
			continue
		}
		buf64 := make([]float64, len(a.buf))
		for i, v := range a.buf {
			buf64[i] = float64(v)
		}
		total += floats.Dot(buf64, buf64)
	}
	return float32(math.Sqrt(total))
}
