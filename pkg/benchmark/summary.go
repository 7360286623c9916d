package benchmark

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// Source groups used by the summary and the box-plot figure
const (
	SourceReference = "reference"
	SourceExternal  = "external"
)

// SourceOf names the source group of a study.
func SourceOf(s models.Study) string {
	if s.IsReference() {
		return SourceReference
	}
	return SourceExternal
}

// SummaryRow describes the Kappa distribution of one tool over the
// studies of one source group. Studies without a score are not counted.
type SummaryRow struct {
	Tool   string  `json:"tool"`
	Source string  `json:"source"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Good   int     `json:"good"` // studies at or above the good-agreement threshold
}

// SourceValues returns the positive Kappa scores of tool i for studies of
// the given source group, in manifest order. Scores at or below chance
// level and undefined scores are left out.
func SourceValues(scores *models.StudyScores, i int, source string) []float64 {
	var values []float64
	for j, study := range scores.Studies {
		if SourceOf(study) != source {
			continue
		}
		if v := scores.Kappa[i][j]; v > 0 {
			values = append(values, v)
		}
	}
	return values
}

// Summarize computes per tool and source group statistics of the Kappa
// scores, counting how many studies reach the good threshold.
func Summarize(scores *models.StudyScores, good float64) []SummaryRow {
	var rows []SummaryRow
	for i, tool := range scores.Tools {
		for _, source := range []string{SourceReference, SourceExternal} {
			values := SourceValues(scores, i, source)
			row := SummaryRow{Tool: tool, Source: source, Count: len(values)}
			if len(values) > 0 {
				sorted := append([]float64(nil), values...)
				sort.Float64s(sorted)

				row.Mean = stat.Mean(sorted, nil)
				row.Median = quantile(sorted, 0.5)
				row.Q1 = quantile(sorted, 0.25)
				row.Q3 = quantile(sorted, 0.75)
				row.Min = sorted[0]
				row.Max = sorted[len(sorted)-1]
				for _, v := range sorted {
					if v >= good {
						row.Good++
					}
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// quantile interpolates linearly between the order statistics of sorted at
// rank (n-1)p, so the median of an even count is the mean of the two middle
// values.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
