package report

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

const (
	kappaTitle    = "Agreement level (Cohen's Kappa score)"
	referenceNote = "*Dataset from Azimuth's reference"
)

// StudyTable draws the tools x studies Kappa table. Tissue labels sit
// under every pair of studies and reference studies are starred.
func (r *Renderer) StudyTable(scores *models.StudyScores) (string, error) {
	if len(scores.Studies) == 0 || len(scores.Tools) == 0 {
		return "", ErrNoData
	}

	cols := len(scores.Studies)
	var tickAt []float64
	var tickLabels []string
	for j := 0; j < cols; j += 2 {
		tickAt = append(tickAt, float64(j)+1)
		tickLabels = append(tickLabels, scores.Studies[j].Tissue)
	}

	// pairs share a dashed divider, pairs are split by a solid one
	var colLines []gridLine
	for j := 0; j < cols-1; j++ {
		style := lineStyle(black, vg.Points(1), false)
		if j%2 == 0 {
			style = lineStyle(darkGrey, vg.Points(0.5), true)
		}
		colLines = append(colLines, gridLine{at: float64(j + 1), style: style})
	}

	var rowLines []gridLine
	for i := 1; i < len(scores.Tools); i++ {
		rowLines = append(rowLines, gridLine{at: float64(i), style: lineStyle(darkGrey, vg.Points(0.5), true)})
	}

	markers := make([]string, cols)
	footnote := ""
	for j, s := range scores.Studies {
		if s.IsReference() {
			markers[j] = s.Source
			footnote = referenceNote
		}
	}

	p := r.newTable(tableLayout{
		title:        kappaTitle,
		values:       scores.Kappa,
		rowLabels:    scores.Tools,
		colTicks:     constantTicks(tickAt, tickLabels),
		rowLines:     rowLines,
		colLines:     colLines,
		markers:      markers,
		footnote:     footnote,
		bestInColumn: true,
	})
	return r.save(StudyTableFile, 18*vg.Inch, 3*vg.Inch, p)
}

// StudyBox draws the Kappa distributions of each tool as box plots with a
// point swarm, one panel for reference studies and one for external ones.
func (r *Renderer) StudyBox(scores *models.StudyScores) (string, error) {
	if len(scores.Studies) == 0 || len(scores.Tools) == 0 {
		return "", ErrNoData
	}

	panels := []struct {
		source string
		title  string
	}{
		{benchmark.SourceReference, "Datasets from Azimuth's reference"},
		{benchmark.SourceExternal, "External datasets"},
	}

	plots := make([]*plot.Plot, len(panels))
	for k, panel := range panels {
		p := newPlot(panel.title, vg.Points(10))

		ticks := make([]float64, len(scores.Tools))
		for i, tool := range scores.Tools {
			ticks[i] = float64(i)
			values := benchmark.SourceValues(scores, i, panel.source)
			if len(values) == 0 {
				r.logger.Debug("no scores for box plot", zap.String("tool", tool), zap.String("source", panel.source))
				continue
			}
			if err := addBox(p, float64(i), values); err != nil {
				return "", fmt.Errorf("%s box for %s: %w", panel.source, tool, err)
			}
		}
		p.X.Tick.Marker = constantTicks(ticks, scores.Tools)

		threshold := plotter.NewFunction(func(float64) float64 { return r.good })
		threshold.LineStyle = lineStyle(black, vg.Points(1), true)
		p.Add(threshold)

		plots[k] = p
	}

	xmax := float64(len(scores.Tools)) - 0.5
	last := plots[len(plots)-1]
	label, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: xmax, Y: r.good}},
		Labels: []string{"good agreement"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to build threshold label: %w", err)
	}
	style := textStyle(vg.Points(8), false)
	style.XAlign = text.XRight
	style.YAlign = text.YBottom
	label.TextStyle = []text.Style{style}
	last.Add(label)

	// adding plotters widens the axes, so the shared range is set last
	for _, p := range plots {
		p.X.Min, p.X.Max = -0.5, xmax
		p.Y.Min, p.Y.Max = 0.3, 1
	}
	plots[0].Y.Label.Text = kappaTitle

	return r.save(StudyBoxFile, 7*vg.Inch, 3.2*vg.Inch, plots...)
}

// addBox adds a capless, flier-free box plot at x and overlays the values
// as a swarm.
func addBox(p *plot.Plot, x float64, values []float64) error {
	box, err := plotter.NewBoxPlot(vg.Points(36), x, plotter.Values(values))
	if err != nil {
		return err
	}
	box.CapWidth = 0
	box.GlyphStyle.Radius = 0
	box.BoxStyle = lineStyle(midGrey, vg.Points(1), false)
	box.MedianStyle = lineStyle(midGrey, vg.Points(1), false)
	box.WhiskerStyle = lineStyle(midGrey, vg.Points(1), false)

	points, err := plotter.NewScatter(swarm(x, values))
	if err != nil {
		return err
	}
	points.GlyphStyle = draw.GlyphStyle{Color: black, Radius: vg.Points(2.5), Shape: draw.CircleGlyph{}}

	p.Add(box, points)
	return nil
}

const (
	swarmBin  = 0.015
	swarmStep = 0.06
)

// swarm spreads values around x so that points with close values do not
// overlap: the k-th point of a value bin is pushed alternately left and
// right by growing offsets.
func swarm(x float64, values []float64) plotter.XYs {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	xys := make(plotter.XYs, len(sorted))
	bins := make(map[int]int)
	for i, v := range sorted {
		bin := int(math.Floor(v / swarmBin))
		k := bins[bin]
		bins[bin]++

		offset := float64((k+1)/2) * swarmStep
		if k%2 == 1 {
			offset = -offset
		}
		xys[i] = plotter.XY{X: x + offset, Y: v}
	}
	return xys
}
