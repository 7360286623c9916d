package benchmark

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/metrics"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// ScoreByStudy computes Cohen's Kappa, micro F1 and NMI between truth and
// each tool for every study. A tool whose column is missing from a study
// is scored as if it had predicted Unassigned for every cell.
func (r *Runner) ScoreByStudy(ctx context.Context) (*models.StudyScores, error) {
	loaded, err := r.loadStudies(ctx, false)
	if err != nil {
		return nil, err
	}

	scores := models.NewStudyScores(r.cfg.Studies, models.ToolNames(r.cfg.Tools))
	for j, d := range loaded {
		for i, tool := range r.cfg.Tools {
			pred, ok := d.table.Prediction(tool.Column)
			if !ok {
				r.logger.Info("tool column missing, scoring as unassigned",
					zap.String("study", d.study.ID),
					zap.String("tool", tool.Name))
				pred = unassigned(d.table.Len())
			}

			if scores.Kappa[i][j], err = metrics.CohenKappa(d.table.Truth, pred); err != nil {
				return nil, fmt.Errorf("study %s, tool %s: %w", d.study.ID, tool.Name, err)
			}
			if scores.F1[i][j], err = metrics.MicroF1(d.table.Truth, pred); err != nil {
				return nil, fmt.Errorf("study %s, tool %s: %w", d.study.ID, tool.Name, err)
			}
			if scores.NMI[i][j], err = metrics.NormalizedMutualInfo(d.table.Truth, pred); err != nil {
				return nil, fmt.Errorf("study %s, tool %s: %w", d.study.ID, tool.Name, err)
			}
		}

		r.logger.Debug("scored study", zap.String("study", d.study.ID), zap.Float64s("kappa", column(scores.Kappa, j)))
	}

	return scores, nil
}

func unassigned(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = models.Unassigned
	}
	return labels
}

func column(m [][]float64, j int) []float64 {
	col := make([]float64, len(m))
	for i := range m {
		col[i] = m[i][j]
	}
	return col
}
