// Package fit provides least-squares curve fitting for the relation between
// cluster dispersion and annotation agreement.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned when there are fewer observations than parameters.
var ErrTooFewPoints = errors.New("too few points to fit")

// Model is a parametric curve y = Eval(x, params).
type Model struct {
	Name   string                               `json:"name"`
	Params int                                  `json:"params"`
	Eval   func(x float64, p []float64) float64 `json:"-"`
}

// Linear is y = a*x + b.
var Linear = Model{
	Name:   "linear",
	Params: 2,
	Eval: func(x float64, p []float64) float64 {
		return p[0]*x + p[1]
	},
}

// ExpDecay is y = a - 4^(4x). Agreement falls off sharply as the
// dispersion level x moves above zero.
var ExpDecay = Model{
	Name:   "exp-decay",
	Params: 1,
	Eval: func(x float64, p []float64) float64 {
		return p[0] - math.Pow(4, 4*x)
	},
}

// Result holds fitted parameters and goodness of fit.
type Result struct {
	Model  Model     `json:"model"`
	Params []float64 `json:"params"`
	SSE    float64   `json:"sse"`
	R2     float64   `json:"r2"`
}

// Predict evaluates the fitted curve at each x.
func (r Result) Predict(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = r.Model.Eval(x, r.Params)
	}
	return ys
}

// Curve fits model to (xs, ys) by minimising the sum of squared residuals
// with Nelder-Mead. A nil p0 starts every parameter at 1.
func Curve(model Model, xs, ys, p0 []float64) (Result, error) {
	if len(xs) != len(ys) {
		return Result{}, fmt.Errorf("fit %s: %d x values, %d y values", model.Name, len(xs), len(ys))
	}
	if len(xs) < model.Params {
		return Result{}, fmt.Errorf("%w: %s needs %d, got %d", ErrTooFewPoints, model.Name, model.Params, len(xs))
	}
	if p0 == nil {
		p0 = make([]float64, model.Params)
		for i := range p0 {
			p0[i] = 1
		}
	}
	if len(p0) != model.Params {
		return Result{}, fmt.Errorf("fit %s: expected %d initial parameters, got %d", model.Name, model.Params, len(p0))
	}

	sse := func(p []float64) float64 {
		total := 0.0
		for i, x := range xs {
			d := ys[i] - model.Eval(x, p)
			total += d * d
		}
		return total
	}

	problem := optimize.Problem{Func: sse}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 200,
		},
		MajorIterations: 20000,
	}
	res, err := optimize.Minimize(problem, p0, settings, &optimize.NelderMead{})
	if err != nil {
		return Result{}, fmt.Errorf("fit %s: %w", model.Name, err)
	}

	result := Result{
		Model:  model,
		Params: res.X,
		SSE:    res.F,
	}
	result.R2 = rSquared(ys, result.SSE)
	return result, nil
}

// rSquared follows the usual convention for constant observations: 1 for
// an exact fit, 0 otherwise.
func rSquared(ys []float64, sse float64) float64 {
	mean := stat.Mean(ys, nil)
	total := 0.0
	for _, y := range ys {
		total += (y - mean) * (y - mean)
	}
	if total == 0 {
		if sse == 0 {
			return 1
		}
		return 0
	}
	return 1 - sse/total
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Dispersion converts silhouette scores into a dispersion level:
// x = -(s - min(s)), so the most compact cluster sits at the most negative x
// and the least compact at 0.
func Dispersion(silhouettes []float64) []float64 {
	if len(silhouettes) == 0 {
		return nil
	}
	lo := floats.Min(silhouettes)
	xs := make([]float64, len(silhouettes))
	for i, s := range silhouettes {
		xs[i] = -(s - lo)
	}
	return xs
}
