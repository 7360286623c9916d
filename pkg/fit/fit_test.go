package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestCurveLinear(t *testing.T) {
	xs := []float64{-1, -0.75, -0.5, -0.25, 0}
	ys := []float64{0.62, 0.71, 0.80, 0.86, 0.97}

	res, err := Curve(Linear, xs, ys, nil)
	require.NoError(t, err)

	// closed-form ordinary least squares: y = alpha + beta*x
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	assert.InDelta(t, beta, res.Params[0], 1e-4)
	assert.InDelta(t, alpha, res.Params[1], 1e-4)
	assert.Greater(t, res.R2, 0.95)

	pred := res.Predict([]float64{0})
	assert.InDelta(t, alpha, pred[0], 1e-4)
}

func TestCurveExpDecay(t *testing.T) {
	xs := []float64{-0.6, -0.4, -0.3, -0.1, 0}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 1.8 - math.Pow(4, 4*x) + 0.01*math.Sin(float64(i))
	}

	res, err := Curve(ExpDecay, xs, ys, nil)
	require.NoError(t, err)

	// a single additive parameter has the least-squares solution mean(y + 4^(4x))
	want := 0.0
	for i, x := range xs {
		want += ys[i] + math.Pow(4, 4*x)
	}
	want /= float64(len(xs))

	require.Len(t, res.Params, 1)
	assert.InDelta(t, want, res.Params[0], 1e-4)
}

func TestCurveErrors(t *testing.T) {
	_, err := Curve(Linear, []float64{1}, []float64{1}, nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = Curve(Linear, []float64{1, 2}, []float64{1}, nil)
	assert.Error(t, err)

	_, err = Curve(Linear, []float64{1, 2}, []float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestLinspace(t *testing.T) {
	steps := Linspace(-1, 0, 5)
	assert.Equal(t, []float64{-1, -0.75, -0.5, -0.25, 0}, steps)
	assert.Len(t, Linspace(0, 1, 100), 100)
	assert.Equal(t, []float64{3}, Linspace(3, 7, 1))
	assert.Nil(t, Linspace(0, 1, 0))
}

func TestDispersion(t *testing.T) {
	xs := Dispersion([]float64{0.2, -0.1, 0.4})
	assert.InDeltaSlice(t, []float64{-0.3, 0, -0.5}, xs, 1e-12)
	assert.Nil(t, Dispersion(nil))
}
