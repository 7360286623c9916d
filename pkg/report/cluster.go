package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/fit"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// ClusterFigure draws one panel per fitted tool: the per-cluster F1 scores
// against dispersion level, with the fitted curve dashed on top. All panels
// share the y range.
func (r *Renderer) ClusterFigure(xs []float64, scores *models.ClusterScores, fits []benchmark.ClusterFit) (string, error) {
	if len(xs) == 0 || len(fits) == 0 {
		return "", ErrNoData
	}

	steps := fit.Linspace(floats.Min(xs), floats.Max(xs), benchmark.FitSteps)
	ymin, ymax := math.Inf(1), math.Inf(-1)

	plots := make([]*plot.Plot, len(fits))
	for k, f := range fits {
		ys := scores.F1[f.Tool]
		if len(ys) != len(xs) {
			return "", fmt.Errorf("tool %s: %d scores for %d clusters", f.Tool, len(ys), len(xs))
		}

		p := newPlot(f.Tool, vg.Points(10))

		points := make(plotter.XYs, len(xs))
		for i := range xs {
			points[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return "", fmt.Errorf("tool %s: %w", f.Tool, err)
		}
		scatter.GlyphStyle = draw.GlyphStyle{Color: black, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}

		predicted := f.Result.Predict(steps)
		curve := make(plotter.XYs, len(steps))
		for i := range steps {
			curve[i] = plotter.XY{X: steps[i], Y: predicted[i]}
		}
		line, err := plotter.NewLine(curve)
		if err != nil {
			return "", fmt.Errorf("tool %s fit: %w", f.Tool, err)
		}
		line.LineStyle = lineStyle(black, vg.Points(1), true)

		p.Add(scatter, line)
		p.X.Label.Text = "Cluster dispersion level"
		p.X.Tick.Marker = plot.ConstantTicks(nil)

		ymin = math.Min(ymin, math.Min(floats.Min(ys), floats.Min(predicted)))
		ymax = math.Max(ymax, math.Max(floats.Max(ys), floats.Max(predicted)))
		plots[k] = p
	}

	pad := 0.05 * (ymax - ymin)
	if pad == 0 {
		pad = 0.05
	}
	for _, p := range plots {
		p.Y.Min, p.Y.Max = ymin-pad, ymax+pad
	}
	plots[0].Y.Label.Text = "Agreement level (F1-score)"

	return r.save(ClusterFile, 7*vg.Inch, 3.2*vg.Inch, plots...)
}
