package report

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ===== SCORE GRID =====

// gridLine is a separator drawn across the grid at a data coordinate.
type gridLine struct {
	at    float64
	style draw.LineStyle
}

// scoreGrid draws a score matrix as a shaded, annotated table. Row 0 is
// drawn at the top, so cell (i, j) spans [j, j+1] x [rows-i-1, rows-i] in
// data coordinates.
type scoreGrid struct {
	values [][]float64
	fills  [][]color.Color
	bold   [][]bool
	font   vg.Length

	rowLines []gridLine
	colLines []gridLine

	// markers are drawn above the top row, one per column; empty entries
	// are skipped
	markers []string
}

func (g *scoreGrid) dims() (rows, cols int) {
	if len(g.values) == 0 {
		return 0, 0
	}
	return len(g.values), len(g.values[0])
}

// DataRange implements plot.DataRanger.
func (g *scoreGrid) DataRange() (xmin, xmax, ymin, ymax float64) {
	rows, cols := g.dims()
	return 0, float64(cols), 0, float64(rows)
}

// Plot implements plot.Plotter.
func (g *scoreGrid) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	rows, cols := g.dims()

	for i, row := range g.values {
		y0, y1 := float64(rows-i-1), float64(rows-i)
		for j, v := range row {
			x0, x1 := float64(j), float64(j+1)
			cell := []vg.Point{
				{X: trX(x0), Y: trY(y0)},
				{X: trX(x1), Y: trY(y0)},
				{X: trX(x1), Y: trY(y1)},
				{X: trX(x0), Y: trY(y1)},
			}
			c.FillPolygon(g.fills[i][j], c.ClipPolygonXY(cell))
			c.FillText(textStyle(g.font, g.bold[i][j]), vg.Point{X: trX(x0 + 0.5), Y: trY(y0 + 0.5)}, formatScore(v))
		}
	}

	for _, l := range g.colLines {
		c.StrokeLine2(l.style, trX(l.at), trY(0), trX(l.at), trY(float64(rows)))
	}
	for _, l := range g.rowLines {
		c.StrokeLine2(l.style, trX(0), trY(l.at), trX(float64(cols)), trY(l.at))
	}

	frame := lineStyle(black, vg.Points(1), false)
	left, right := trX(0), trX(float64(cols))
	bottom, top := trY(0), trY(float64(rows))
	c.StrokeLine2(frame, left, bottom, right, bottom)
	c.StrokeLine2(frame, left, top, right, top)
	c.StrokeLine2(frame, left, bottom, left, top)
	c.StrokeLine2(frame, right, bottom, right, top)

	for j, m := range g.markers {
		if m == "" {
			continue
		}
		c.FillText(textStyle(g.font, false), vg.Point{X: trX(float64(j) + 0.5), Y: top + g.font}, m)
	}
}

// swatch is a legend thumbnail filled with a flat colour.
type swatch struct {
	fill color.Color
}

// Thumbnail implements plot.Thumbnailer.
func (s swatch) Thumbnail(c *draw.Canvas) {
	box := []vg.Point{
		c.Min,
		{X: c.Min.X, Y: c.Max.Y},
		c.Max,
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.fill, box)
	c.StrokeLines(lineStyle(black, vg.Points(0.5), false), append(box, c.Min))
}

// ===== TABLE LAYOUT =====

// tableLayout describes one score table figure.
type tableLayout struct {
	title     string
	values    [][]float64
	rowLabels []string
	colTicks  plot.ConstantTicks
	rowLines  []gridLine
	colLines  []gridLine
	markers   []string
	footnote  string

	// bestInColumn compares scores down each column instead of along
	// each row when choosing the bold entry
	bestInColumn bool
}

// newTable builds the plot of a score table.
func (r *Renderer) newTable(layout tableLayout) *plot.Plot {
	rows := len(layout.values)
	grid := &scoreGrid{
		values:   layout.values,
		fills:    make([][]color.Color, rows),
		bold:     boldMask(layout.values, layout.bestInColumn),
		font:     vg.Points(9),
		rowLines: layout.rowLines,
		colLines: layout.colLines,
		markers:  layout.markers,
	}
	for i, row := range layout.values {
		grid.fills[i] = make([]color.Color, len(row))
		for j, v := range row {
			grid.fills[i][j] = r.shade(v)
		}
	}

	p := newPlot(layout.title, vg.Points(12))
	p.Add(grid)

	positions := make([]float64, rows)
	for i := range positions {
		positions[i] = float64(rows-i) - 0.5
	}
	p.Y.Tick.Marker = constantTicks(positions, layout.rowLabels)
	p.X.Tick.Marker = layout.colTicks

	for _, axis := range []*plot.Axis{&p.X, &p.Y} {
		axis.Padding = 0
		axis.LineStyle.Width = 0
		axis.Tick.Length = 0
		axis.Tick.LineStyle.Width = 0
		axis.Tick.Label.Font.Size = vg.Points(9)
	}

	if layout.footnote != "" {
		p.X.Label.Text = layout.footnote
		p.X.Label.TextStyle.Font.Size = vg.Points(10)
	}

	p.Legend.Add("Good agreement", swatch{fill: goodFill})
	p.Legend.Top = true
	p.Legend.YOffs = vg.Points(24)
	p.Legend.TextStyle.Font.Size = vg.Points(9)
	return p
}

// boldMask marks the best score of each comparison: per column when
// byColumn is set, per row otherwise.
func boldMask(values [][]float64, byColumn bool) [][]bool {
	mask := make([][]bool, len(values))
	for i, row := range values {
		mask[i] = make([]bool, len(row))
		for j := range row {
			if byColumn {
				column := make([]float64, len(values))
				for k := range values {
					column[k] = values[k][j]
				}
				mask[i][j] = isBest(column, i)
			} else {
				mask[i][j] = isBest(row, j)
			}
		}
	}
	return mask
}
