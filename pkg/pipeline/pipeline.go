// Package pipeline runs the benchmark routines end to end: scoring,
// figures, the text summary and optional persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/config"
	"github.com/gilchrisn/annotation-benchmark/pkg/fit"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
	"github.com/gilchrisn/annotation-benchmark/pkg/report"
	"github.com/gilchrisn/annotation-benchmark/pkg/store"
	"github.com/gilchrisn/annotation-benchmark/pkg/validation"
)

// SummaryFile is written to the output directory after every run.
const SummaryFile = "benchmark_summary.txt"

// Stage selects one benchmark routine.
type Stage string

const (
	StageStudy    Stage = "study"
	StageCelltype Stage = "celltype"
	StageCluster  Stage = "cluster"
)

// AllStages lists every routine in execution order.
func AllStages() []Stage {
	return []Stage{StageStudy, StageCelltype, StageCluster}
}

// Pipeline runs benchmark stages and renders their figures.
type Pipeline struct {
	Config *config.Config
	Logger *zap.Logger

	// Store, when set, receives every completed run
	Store *store.Store

	SkipFigures bool
}

// Result contains the complete pipeline output
type Result struct {
	models.Report

	Summary    []benchmark.SummaryRow `json:"summary,omitempty"`
	Dispersion []float64              `json:"dispersion,omitempty"`
	Fits       []benchmark.ClusterFit `json:"fits,omitempty"`
	Figures    []string               `json:"figures,omitempty"`
	Run        *store.Run             `json:"run,omitempty"`

	TotalRuntimeMS int64 `json:"total_runtime_ms"`
}

// New creates a pipeline over cfg.
func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Config: cfg, Logger: logger}
}

// Run executes the given stages, or all of them when none are named.
// Stages without eligible studies are logged and skipped. A figure that
// cannot be written fails the run.
func (p *Pipeline) Run(ctx context.Context, stages ...Stage) (*Result, error) {
	start := time.Now()
	if len(stages) == 0 {
		stages = AllStages()
	}

	if err := validation.ValidateOutputDirectory(p.Config.OutputDir); err != nil {
		return nil, err
	}

	runner := benchmark.NewRunner(p.Config, p.Logger)
	renderer, err := report.NewRenderer(p.Config.OutputDir, p.Config.GoodAgreement, p.Logger)
	if err != nil {
		return nil, err
	}

	if err := runner.Load(ctx, slices.Contains(stages, StageCluster)); err != nil {
		return nil, fmt.Errorf("failed to load studies: %w", err)
	}

	res := &Result{}
	for _, stage := range stages {
		p.Logger.Info("running stage", zap.String("stage", string(stage)))

		var err error
		switch stage {
		case StageStudy:
			err = p.runStudy(ctx, runner, renderer, res)
		case StageCelltype:
			err = p.runCelltype(ctx, runner, renderer, res)
		case StageCluster:
			err = p.runCluster(ctx, runner, renderer, res)
		default:
			err = fmt.Errorf("unknown stage %q", stage)
		}
		if errors.Is(err, benchmark.ErrNoEligibleStudies) {
			p.Logger.Warn("skipping stage", zap.String("stage", string(stage)), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s stage failed: %w", stage, err)
		}
	}

	if p.Store != nil {
		run, err := p.Store.SaveReport(ctx, p.Config.DataDir, &res.Report)
		if err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		res.Run = &run
	}

	res.TotalRuntimeMS = time.Since(start).Milliseconds()

	if err := p.writeOutputs(res); err != nil {
		return nil, err
	}

	p.Logger.Info("pipeline finished",
		zap.Int64("runtime_ms", res.TotalRuntimeMS),
		zap.Int("figures", len(res.Figures)))
	return res, nil
}

func (p *Pipeline) runStudy(ctx context.Context, runner *benchmark.Runner, renderer *report.Renderer, res *Result) error {
	scores, err := runner.ScoreByStudy(ctx)
	if err != nil {
		return err
	}
	res.Study = scores
	res.Summary = benchmark.Summarize(scores, p.Config.GoodAgreement)

	if err := p.render(res, func() (string, error) { return renderer.StudyTable(scores) }); err != nil {
		return err
	}
	return p.render(res, func() (string, error) { return renderer.StudyBox(scores) })
}

func (p *Pipeline) runCelltype(ctx context.Context, runner *benchmark.Runner, renderer *report.Renderer, res *Result) error {
	scores, err := runner.ScoreByCelltype(ctx)
	if err != nil {
		return err
	}
	res.Celltype = scores

	return p.render(res, func() (string, error) { return renderer.CelltypeTable(scores) })
}

func (p *Pipeline) runCluster(ctx context.Context, runner *benchmark.Runner, renderer *report.Renderer, res *Result) error {
	scores, err := runner.ScoreByCluster(ctx)
	if err != nil {
		return err
	}
	res.Cluster = scores

	xs, fits, err := benchmark.DispersionFits(scores, models.ToolNames(p.Config.Tools))
	if errors.Is(err, fit.ErrTooFewPoints) {
		p.Logger.Warn("not enough clusters to fit", zap.Int("clusters", scores.Len()), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	res.Dispersion, res.Fits = xs, fits

	for _, f := range fits {
		p.Logger.Info("fitted dispersion curve",
			zap.String("tool", f.Tool),
			zap.String("model", f.Result.Model.Name),
			zap.Float64s("params", f.Result.Params),
			zap.Float64("r2", f.Result.R2))
	}

	return p.render(res, func() (string, error) { return renderer.ClusterFigure(xs, scores, fits) })
}

// render draws one figure. A figure with nothing to plot is skipped.
func (p *Pipeline) render(res *Result, draw func() (string, error)) error {
	if p.SkipFigures {
		return nil
	}
	path, err := draw()
	if errors.Is(err, report.ErrNoData) {
		p.Logger.Warn("nothing to plot", zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to render figure: %w", err)
	}
	res.Figures = append(res.Figures, path)
	return nil
}

func (p *Pipeline) writeOutputs(res *Result) error {
	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(p.Config.OutputDir, SummaryFile)
	if err := p.writePipelineSummary(res, path); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// writePipelineSummary creates a summary file with the run's scores
func (p *Pipeline) writePipelineSummary(res *Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "=== Cell-type Annotation Benchmark Summary ===\n\n")
	fmt.Fprintf(file, "Data directory: %s\n", p.Config.DataDir)
	fmt.Fprintf(file, "Runtime: %d ms\n", res.TotalRuntimeMS)
	if res.Run != nil {
		fmt.Fprintf(file, "Run ID: %s\n", res.Run.ID)
	}

	if res.Study != nil {
		fmt.Fprintf(file, "\nAgreement per study:\n")
		if err := WriteStudyTable(file, res.Study); err != nil {
			return err
		}
		fmt.Fprintf(file, "\nKappa summary (good agreement >= %.2f):\n", p.Config.GoodAgreement)
		if err := WriteSummary(file, res.Summary); err != nil {
			return err
		}
	}
	if res.Celltype != nil {
		fmt.Fprintf(file, "\nAgreement per cell-type group:\n")
		if err := WriteCelltypeTable(file, res.Celltype); err != nil {
			return err
		}
	}
	if res.Cluster != nil {
		fmt.Fprintf(file, "\nAgreement per cluster:\n")
		if err := WriteClusterTable(file, res.Cluster, models.ToolNames(p.Config.Tools)...); err != nil {
			return err
		}
		for _, f := range res.Fits {
			fmt.Fprintf(file, "  %s fit (%s): params %v, R² %.4f\n", f.Tool, f.Result.Model.Name, f.Result.Params, f.Result.R2)
		}
	}

	if len(res.Figures) > 0 {
		fmt.Fprintf(file, "\nFigures:\n")
		for _, fig := range res.Figures {
			fmt.Fprintf(file, "  %s\n", fig)
		}
	}
	return nil
}
