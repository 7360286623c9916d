package benchmark

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/annotation-benchmark/pkg/fit"
	"github.com/gilchrisn/annotation-benchmark/pkg/metrics"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// FitSteps is the number of points the fitted curves are evaluated on.
const FitSteps = 100

// ScoreByCluster treats each cell-type group of a study as a cluster in the
// study's embedding. For every group with at least MinClusterCells cells and
// more than one distinct true label, it records the silhouette of the
// group's cells (labelled by truth) and the micro F1 of each tool.
func (r *Runner) ScoreByCluster(ctx context.Context) (*models.ClusterScores, error) {
	resolver, err := r.loadGroups()
	if err != nil {
		return nil, err
	}

	loaded, err := r.loadStudies(ctx, true)
	if err != nil {
		return nil, err
	}
	kept := r.eligible(loaded)
	if len(kept) == 0 {
		return nil, ErrNoEligibleStudies
	}

	scores := &models.ClusterScores{F1: make(map[string][]float64, len(r.cfg.Tools))}
	for _, d := range kept {
		labels, members := partition(resolver.resolve(d.table.Truth))

		for _, group := range labels {
			if group == models.Unassigned {
				continue
			}

			idx := members[group]
			truth := subset(d.table.Truth, idx)
			if len(idx) < r.cfg.MinClusterCells || metrics.Distinct(truth) == 1 {
				continue
			}

			sil, err := metrics.Silhouette(ctx, selectRows(d.embedding.Points, idx), truth, r.workers())
			if errors.Is(err, metrics.ErrLabelCount) {
				r.logger.Warn("skipping cluster", zap.String("study", d.study.ID), zap.String("group", group), zap.Error(err))
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("study %s, group %s: %w", d.study.ID, group, err)
			}

			f1 := make([]float64, len(r.cfg.Tools))
			for i, tool := range r.cfg.Tools {
				pred, _ := d.table.Prediction(tool.Column)
				if f1[i], err = metrics.MicroF1(truth, subset(pred, idx)); err != nil {
					return nil, fmt.Errorf("study %s, group %s: %w", d.study.ID, group, err)
				}
			}

			scores.Studies = append(scores.Studies, d.study.ID)
			scores.Groups = append(scores.Groups, group)
			scores.Silhouette = append(scores.Silhouette, sil)
			for i, tool := range r.cfg.Tools {
				scores.F1[tool.Name] = append(scores.F1[tool.Name], f1[i])
			}

			r.logger.Debug("scored cluster",
				zap.String("study", d.study.ID),
				zap.String("group", group),
				zap.Int("cells", len(idx)),
				zap.Float64("silhouette", sil))
		}
	}

	r.logger.Info("scored clusters", zap.Int("studies", len(kept)), zap.Int("clusters", scores.Len()))
	return scores, nil
}

// ClusterFit is the fitted dispersion-agreement curve of one tool.
type ClusterFit struct {
	Tool   string     `json:"tool"`
	Result fit.Result `json:"result"`
}

// DispersionFits converts silhouettes into dispersion levels and fits one
// curve per tool: exponential decay for the first tool, a line for the
// others. It returns the dispersion levels alongside the fits.
func DispersionFits(scores *models.ClusterScores, tools []string) ([]float64, []ClusterFit, error) {
	xs := fit.Dispersion(scores.Silhouette)

	fits := make([]ClusterFit, 0, len(tools))
	for i, tool := range tools {
		model := fit.Linear
		if i == 0 {
			model = fit.ExpDecay
		}

		res, err := fit.Curve(model, xs, scores.F1[tool], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("tool %s: %w", tool, err)
		}
		fits = append(fits, ClusterFit{Tool: tool, Result: res})
	}
	return xs, fits, nil
}

func selectRows(points *mat.Dense, idx []int) *mat.Dense {
	_, cols := points.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, j := range idx {
		out.SetRow(i, points.RawRowView(j))
	}
	return out
}
