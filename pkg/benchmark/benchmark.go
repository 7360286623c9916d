// Package benchmark scores annotation tools against ground truth per study,
// per cell-type group and per cluster.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/annotation-benchmark/pkg/config"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
	"github.com/gilchrisn/annotation-benchmark/pkg/parser"
)

// ErrNoEligibleStudies is returned when no study carries predictions from
// every tool, so pooled scoring has nothing to work on.
var ErrNoEligibleStudies = errors.New("no study has predictions from every tool")

// Runner executes the scoring routines over the studies of a configuration.
// Study tables and the grouping table are read once and shared by every
// routine run on the same Runner.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	loaded        []*studyData
	withEmbedding bool
	resolver      *groupResolver
}

// NewRunner creates a runner; a nil logger discards log output.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

func (r *Runner) workers() int {
	if r.cfg.Workers < 1 {
		return 1
	}
	return r.cfg.Workers
}

// studyData is one loaded study.
type studyData struct {
	study     models.Study
	table     *models.ResultTable
	embedding *models.Embedding
}

// Load reads every study up front so the routines that follow share one
// pass over the data directory. withEmbedding also reads the embeddings
// needed by ScoreByCluster.
func (r *Runner) Load(ctx context.Context, withEmbedding bool) error {
	_, err := r.loadStudies(ctx, withEmbedding)
	return err
}

// loadStudies returns the loaded studies, reading them on first use or when
// embeddings are requested but were not read before.
func (r *Runner) loadStudies(ctx context.Context, withEmbedding bool) ([]*studyData, error) {
	if r.loaded != nil && (r.withEmbedding || !withEmbedding) {
		return r.loaded, nil
	}
	loaded, err := r.readStudies(ctx, withEmbedding)
	if err != nil {
		return nil, err
	}
	r.loaded, r.withEmbedding = loaded, withEmbedding
	return loaded, nil
}

// readStudies reads result.tsv for every study concurrently. With
// withEmbedding set, tsne.tsv is also read for studies carrying every
// tool column. Output order follows the manifest.
func (r *Runner) readStudies(ctx context.Context, withEmbedding bool) ([]*studyData, error) {
	studies := r.cfg.Studies
	loaded := make([]*studyData, len(studies))
	columns := r.cfg.ToolColumns()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, study := range studies {
		i, study := i, study
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			table, err := parser.ReadResultTable(r.cfg.ResultPath(study), columns)
			if err != nil {
				return fmt.Errorf("study %s: %w", study.ID, err)
			}
			data := &studyData{study: study, table: table}

			if withEmbedding && table.HasAll(r.cfg.Tools) {
				emb, err := parser.ReadEmbedding(r.cfg.EmbeddingPath(study))
				if err != nil {
					return fmt.Errorf("study %s: %w", study.ID, err)
				}
				if emb.Rows() != table.Len() {
					return fmt.Errorf("study %s: embedding has %d cells, result table has %d", study.ID, emb.Rows(), table.Len())
				}
				data.embedding = emb
			}

			r.logger.Debug("loaded study",
				zap.String("study", study.ID),
				zap.String("tissue", study.Tissue),
				zap.Int("cells", table.Len()))
			loaded[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// eligible keeps the studies that carry a prediction column for every tool.
func (r *Runner) eligible(loaded []*studyData) []*studyData {
	var kept []*studyData
	for _, d := range loaded {
		if !d.table.HasAll(r.cfg.Tools) {
			r.logger.Info("skipping study without every tool column", zap.String("study", d.study.ID))
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// groupResolver maps truth labels to their groups, reporting every unknown
// label once.
type groupResolver struct {
	groups  models.GroupMap
	unknown map[string]bool
	logger  *zap.Logger
}

func (r *Runner) loadGroups() (*groupResolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}
	groups, err := parser.ReadGroupMap(r.cfg.GroupTablePath())
	if err != nil {
		return nil, err
	}
	r.resolver = &groupResolver{groups: groups, unknown: make(map[string]bool), logger: r.logger}
	return r.resolver, nil
}

func (gr *groupResolver) resolve(labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		group, ok := gr.groups[label]
		if !ok {
			if !gr.unknown[label] {
				gr.unknown[label] = true
				gr.logger.Warn("cell type missing from group table, treating as unassigned", zap.String("celltype", label))
			}
			group = models.Unassigned
		}
		out[i] = group
	}
	return out
}

// partition returns the distinct groups in sorted order and, for each, the
// indices of its members.
func partition(groups []string) ([]string, map[string][]int) {
	members := make(map[string][]int)
	for i, g := range groups {
		members[g] = append(members[g], i)
	}
	labels := make([]string, 0, len(members))
	for g := range members {
		labels = append(labels, g)
	}
	sort.Strings(labels)
	return labels, members
}

func subset(labels []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}
