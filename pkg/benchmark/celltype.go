package benchmark

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/metrics"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// ScoreByCelltype pools the cells of every study that has predictions from
// all tools, buckets them by the group of their true cell type and computes
// micro F1 per group and tool. The Unassigned group is dropped. Rows are
// ordered by ascending score of the first tool.
func (r *Runner) ScoreByCelltype(ctx context.Context) (*models.CelltypeScores, error) {
	resolver, err := r.loadGroups()
	if err != nil {
		return nil, err
	}

	loaded, err := r.loadStudies(ctx, false)
	if err != nil {
		return nil, err
	}
	kept := r.eligible(loaded)
	if len(kept) == 0 {
		return nil, ErrNoEligibleStudies
	}

	var truth []string
	preds := make([][]string, len(r.cfg.Tools))
	for _, d := range kept {
		truth = append(truth, d.table.Truth...)
		for i, tool := range r.cfg.Tools {
			p, _ := d.table.Prediction(tool.Column)
			preds[i] = append(preds[i], p...)
		}
	}

	labels, members := partition(resolver.resolve(truth))

	scores := &models.CelltypeScores{Tools: models.ToolNames(r.cfg.Tools)}
	for _, group := range labels {
		if group == models.Unassigned {
			continue
		}

		idx := members[group]
		t := subset(truth, idx)
		row := make([]float64, len(r.cfg.Tools))
		for i := range r.cfg.Tools {
			if row[i], err = metrics.MicroF1(t, subset(preds[i], idx)); err != nil {
				return nil, fmt.Errorf("group %s: %w", group, err)
			}
		}

		scores.Groups = append(scores.Groups, group)
		scores.F1 = append(scores.F1, row)
		scores.Cells = append(scores.Cells, len(idx))
	}

	sortCelltypes(scores)

	r.logger.Info("scored cell-type groups",
		zap.Int("studies", len(kept)),
		zap.Int("cells", len(truth)),
		zap.Int("groups", len(scores.Groups)))
	return scores, nil
}

// sortCelltypes orders rows by the first tool's score, ascending.
func sortCelltypes(s *models.CelltypeScores) {
	order := make([]int, len(s.Groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.F1[order[a]][0] < s.F1[order[b]][0]
	})

	groups := make([]string, len(order))
	f1 := make([][]float64, len(order))
	cells := make([]int, len(order))
	for i, j := range order {
		groups[i] = s.Groups[j]
		f1[i] = s.F1[j]
		cells[i] = s.Cells[j]
	}
	s.Groups, s.F1, s.Cells = groups, f1, cells
}
