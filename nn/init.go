package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tensorforge/core/errs"
	"github.com/tensorforge/core/ndarray"
)

// InitFunc builds a freshly initialized NdArray of the given shape. seed
// is optional (nil uses an unseeded source); fanIn/fanOut describe the
// shape's role in a Linear-style weight matrix (rows=fanOut, cols=fanIn)
// and are ignored by initializers that do not need them.
type InitFunc func(shape ndarray.Shape, fanIn, fanOut int, seed *int64) (*ndarray.NdArray, error)

// Initializers is the name-keyed registry spec.md §6 calls "Initializer
// registry (by name)", promoted in SPEC_FULL.md §4.4 into its own
// sub-component since every Module constructor depends on it.
var Initializers = map[string]InitFunc{
	"zeros":           initZeros,
	"ones":            initOnes,
	"xavier_uniform":  initXavierUniform(1),
	"xavier_normal":   initXavierNormal(1),
	"kaiming_uniform": initKaimingUniform(0, "fan_in"),
	"kaiming_normal":  initKaimingNormal(0, "fan_in"),
	"orthogonal":      initOrthogonal(1),
}

func initZeros(shape ndarray.Shape, _, _ int, _ *int64) (*ndarray.NdArray, error) {
	return ndarray.Zeros(shape), nil
}

func initOnes(shape ndarray.Shape, _, _ int, _ *int64) (*ndarray.NdArray, error) {
	return ndarray.Ones(shape), nil
}

func initXavierUniform(gain float32) InitFunc {
	return func(shape ndarray.Shape, fanIn, fanOut int, seed *int64) (*ndarray.NdArray, error) {
		bound := gain * float32(math.Sqrt(6/float64(fanIn+fanOut)))
		return ndarray.RandomUniform(-bound, bound, shape, seed), nil
	}
}

func initXavierNormal(gain float32) InitFunc {
	return func(shape ndarray.Shape, fanIn, fanOut int, seed *int64) (*ndarray.NdArray, error) {
		std := gain * float32(math.Sqrt(2/float64(fanIn+fanOut)))
		return scaleNormal(shape, std, seed), nil
	}
}

// kaimingGain mirrors PyTorch's calculate_gain('leaky_relu', a): a=0
// reduces to the plain ReLU gain sqrt(2).
func kaimingGain(a float32) float32 {
	return float32(math.Sqrt(2 / (1 + float64(a)*float64(a))))
}

func initKaimingUniform(a float32, mode string) InitFunc {
	return func(shape ndarray.Shape, fanIn, fanOut int, seed *int64) (*ndarray.NdArray, error) {
		fan := fanIn
		if mode == "fan_out" {
			fan = fanOut
		}
		if fan <= 0 {
			return nil, errs.New(errs.KindArgumentInvalid, "kaiming init requires a positive fan, got %d", fan)
		}
		gain := kaimingGain(a)
		bound := float32(math.Sqrt(3)) * gain / float32(math.Sqrt(float64(fan)))
		return ndarray.RandomUniform(-bound, bound, shape, seed), nil
	}
}

func initKaimingNormal(a float32, mode string) InitFunc {
	return func(shape ndarray.Shape, fanIn, fanOut int, seed *int64) (*ndarray.NdArray, error) {
		fan := fanIn
		if mode == "fan_out" {
			fan = fanOut
		}
		if fan <= 0 {
			return nil, errs.New(errs.KindArgumentInvalid, "kaiming init requires a positive fan, got %d", fan)
		}
		gain := kaimingGain(a)
		std := gain / float32(math.Sqrt(float64(fan)))
		return scaleNormal(shape, std, seed), nil
	}
}

func scaleNormal(shape ndarray.Shape, std float32, seed *int64) *ndarray.NdArray {
	raw := ndarray.RandomNormal(shape, seed)
	return raw.MulScalar(std)
}

// initOrthogonal builds a rank-2 orthogonal matrix via QR decomposition
// of a random Gaussian matrix (Saxe et al.), rather than the silent
// xavier_normal fallback a naive port would carry (spec.md §9's Open
// Question explicitly calls this out; see DESIGN.md).
func initOrthogonal(gain float32) InitFunc {
	return func(shape ndarray.Shape, _, _ int, seed *int64) (*ndarray.NdArray, error) {
		if shape.Rank() != 2 {
			return nil, errs.New(errs.KindNotSupported, "orthogonal init requires rank 2, got rank %d", shape.Rank())
		}
		rows, cols := shape.Dim(0), shape.Dim(1)
		n := rows
		if cols > n {
			n = cols
		}
		randArr := ndarray.RandomNormal(ndarray.NewShape(n, n), seed)
		a := mat.NewDense(n, n, toFloat64(randArr.Data()))

		var qr mat.QR
		qr.Factorize(a)
		q := mat.NewDense(n, n, nil)
		qr.QTo(q)

		out := make([]float32, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out[i*cols+j] = gain * float32(q.At(i, j))
			}
		}
		return ndarray.Of(out, shape)
	}
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
