package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorforge/core/ndarray"
)

func TestZerosAndOnesInitializers(t *testing.T) {
	shape := ndarray.NewShape(3, 4)
	seed := int64(1)

	z, err := Initializers["zeros"](shape, 4, 3, &seed)
	require.NoError(t, err)
	for _, v := range z.Data() {
		assert.Equal(t, float32(0), v)
	}

	o, err := Initializers["ones"](shape, 4, 3, &seed)
	require.NoError(t, err)
	for _, v := range o.Data() {
		assert.Equal(t, float32(1), v)
	}
}

func TestXavierUniformStaysWithinBound(t *testing.T) {
	fanIn, fanOut := 10, 20
	shape := ndarray.NewShape(fanOut, fanIn)
	seed := int64(42)

	arr, err := Initializers["xavier_uniform"](shape, fanIn, fanOut, &seed)
	require.NoError(t, err)

	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	for _, v := range arr.Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
}

func TestKaimingUniformRejectsNonPositiveFan(t *testing.T) {
	shape := ndarray.NewShape(4, 0)
	seed := int64(1)
	_, err := Initializers["kaiming_uniform"](shape, 0, 4, &seed)
	assert.Error(t, err)
}

func TestOrthogonalRejectsNonRank2(t *testing.T) {
	shape := ndarray.NewShape(2, 3, 4)
	seed := int64(1)
	_, err := Initializers["orthogonal"](shape, 0, 0, &seed)
	assert.Error(t, err)
}

func TestOrthogonalProducesOrthonormalRows(t *testing.T) {
	rows, cols := 4, 4
	shape := ndarray.NewShape(rows, cols)
	seed := int64(7)

	arr, err := Initializers["orthogonal"](shape, cols, rows, &seed)
	require.NoError(t, err)

	data := arr.Data()
	// Q Q^T should be (approximately) the identity: row i dotted with row
	// j is ~1 for i==j and ~0 otherwise, since Q's rows span an
	// orthonormal basis of R^n for a square factor.
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			var dot float32
			for k := 0; k < cols; k++ {
				dot += data[i*cols+k] * data[j*cols+k]
			}
			if i == j {
				assert.InDelta(t, 1.0, dot, 1e-4)
			} else {
				assert.InDelta(t, 0.0, dot, 1e-4)
			}
		}
	}
}
