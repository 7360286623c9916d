package report

import (
	"gonum.org/v1/plot/vg"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// CelltypeTable draws the groups x tools F1 table, one row per cell-type
// group in the order the scores are sorted.
func (r *Renderer) CelltypeTable(scores *models.CelltypeScores) (string, error) {
	if len(scores.Groups) == 0 || len(scores.Tools) == 0 {
		return "", ErrNoData
	}

	ticks := make([]float64, len(scores.Tools))
	for j := range scores.Tools {
		ticks[j] = float64(j) + 0.5
	}

	dashed := lineStyle(darkGrey, vg.Points(0.5), true)
	var rowLines, colLines []gridLine
	for i := 1; i < len(scores.Groups); i++ {
		rowLines = append(rowLines, gridLine{at: float64(i), style: dashed})
	}
	for j := 1; j < len(scores.Tools); j++ {
		colLines = append(colLines, gridLine{at: float64(j), style: dashed})
	}

	p := r.newTable(tableLayout{
		title:     "Agreement level (F1-score)",
		values:    scores.F1,
		rowLabels: scores.Groups,
		colTicks:  constantTicks(ticks, scores.Tools),
		rowLines:  rowLines,
		colLines:  colLines,
	})
	p.Title.TextStyle.Font.Size = vg.Points(10)

	height := max(3.2*vg.Inch, vg.Length(len(scores.Groups))*vg.Points(18)+vg.Inch)
	return r.save(CelltypeTableFile, 3.6*vg.Inch, height, p)
}
