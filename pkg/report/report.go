// Package report renders benchmark scores as static SVG figures.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// Figure file names
const (
	StudyTableFile    = "score_by_study.svg"
	StudyBoxFile      = "study_box.svg"
	CelltypeTableFile = "score_by_celltype.svg"
	ClusterFile       = "score_by_cluster.svg"
)

// ErrNoData is returned when a figure has nothing to show.
var ErrNoData = errors.New("no data to plot")

var (
	black    = color.Black
	darkGrey = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	midGrey  = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	goodFill = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

	dashes = []vg.Length{vg.Points(4), vg.Points(2)}
)

// Renderer writes figures into an output directory.
type Renderer struct {
	outputDir string
	good      float64
	shades    palette.ColorMap
	logger    *zap.Logger
}

// NewRenderer creates a renderer. Scores at or above good are shaded in
// the score tables and marked by a reference line in the box plot.
func NewRenderer(outputDir string, good float64, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// luminance maps need increasing lightness, so the map runs from
	// #dddddd to white and shade reflects scores onto it
	shades, err := moreland.NewLuminance([]color.Color{
		goodFill,
		color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff},
		color.White,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build colour map: %w", err)
	}
	shades.SetMin(0.5)
	shades.SetMax(1)

	return &Renderer{outputDir: outputDir, good: good, shades: shades, logger: logger}, nil
}

// shade returns the cell colour of a score: score² when the score reaches
// the good threshold, blank otherwise.
func (r *Renderer) shade(score float64) color.Color {
	v := 0.0
	if models.Available(score) && score >= r.good {
		v = score * score
	}
	lo, hi := r.shades.Min(), r.shades.Max()
	v = max(lo, min(hi, v))

	c, err := r.shades.At(lo + hi - v)
	if err != nil {
		return color.White
	}
	return c
}

// save lays the plots out in one row and writes them as a single SVG.
func (r *Renderer) save(name string, width, height vg.Length, plots ...*plot.Plot) (string, error) {
	img := vgsvg.New(width, height)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[0][i])
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := img.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	r.logger.Info("wrote figure", zap.String("path", path))
	return path, nil
}

// ===== STYLE HELPERS =====

func textStyle(size vg.Length, bold bool) text.Style {
	f := font.Font{Typeface: "Liberation", Variant: "Sans", Size: size}
	if bold {
		f.Weight = xfont.WeightBold
	}
	return text.Style{
		Color:   black,
		Font:    f,
		XAlign:  text.XCenter,
		YAlign:  text.YCenter,
		Handler: plot.DefaultTextHandler,
	}
}

func lineStyle(c color.Color, width vg.Length, dashed bool) draw.LineStyle {
	ls := draw.LineStyle{Color: c, Width: width}
	if dashed {
		ls.Dashes = dashes
	}
	return ls
}

func newPlot(title string, size vg.Length) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = size
	p.Title.Padding = vg.Points(6)
	return p
}

// formatScore renders a score with four decimals, or "-" when the score is
// not available.
func formatScore(v float64) string {
	if !models.Available(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

// isBest reports whether v beats every other entry of the same comparison.
func isBest(values []float64, k int) bool {
	v := values[k]
	if !models.Available(v) {
		return false
	}
	for i, other := range values {
		if i != k && !(v > other) {
			return false
		}
	}
	return true
}

func constantTicks(positions []float64, labels []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(labels))
	for i, label := range labels {
		ticks[i] = plot.Tick{Value: positions[i], Label: label}
	}
	return plot.ConstantTicks(ticks)
}
