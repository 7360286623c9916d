package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/pipeline"
	"github.com/gilchrisn/annotation-benchmark/pkg/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every benchmark routine and render all figures",
		Long: `Score every study, every cell-type group and every cluster, fit the
dispersion curves, and write all four figures plus a text summary to the
output directory.

Examples:
  annobench run --data ../data --out figures
  annobench run --store runs.db     # also persist the scores`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd)
		},
	}
	cmd.Flags().String("store", "", "SQLite database to persist the run (or set BENCH_STORE)")
	cmd.Flags().Bool("no-figures", false, "Skip rendering figures")
	return cmd
}

func newStudyCmd() *cobra.Command {
	return newStageCmd(pipeline.StageStudy, "Score each study with Cohen's Kappa, micro F1 and NMI")
}

func newCelltypeCmd() *cobra.Command {
	return newStageCmd(pipeline.StageCelltype, "Score each cell-type group with micro F1 over pooled studies")
}

func newClusterCmd() *cobra.Command {
	return newStageCmd(pipeline.StageCluster, "Relate cluster dispersion to per-cluster agreement")
}

func newStageCmd(stage pipeline.Stage, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(stage),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, stage)
		},
	}
	cmd.Flags().Bool("no-figures", false, "Skip rendering figures")
	return cmd
}

// runStages runs the pipeline and prints the resulting tables.
func runStages(cmd *cobra.Command, stages ...pipeline.Stage) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, logger)
	p.SkipFigures, _ = cmd.Flags().GetBool("no-figures")

	if cfg.StorePath != "" && cmd.Flags().Lookup("store") != nil {
		db, err := store.Open(cfg.StorePath, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		p.Store = db
	}

	res, err := p.Run(cmd.Context(), stages...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Study != nil {
		fmt.Fprintln(out, "Agreement per study:")
		if err := pipeline.WriteStudyTable(out, res.Study); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if res.Celltype != nil {
		fmt.Fprintln(out, "Agreement per cell-type group:")
		if err := pipeline.WriteCelltypeTable(out, res.Celltype); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if res.Cluster != nil {
		fmt.Fprintln(out, "Agreement per cluster:")
		if err := pipeline.WriteClusterTable(out, res.Cluster); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	for _, fig := range res.Figures {
		fmt.Fprintf(out, "wrote %s\n", fig)
	}
	if res.Run != nil {
		fmt.Fprintf(out, "saved run %s\n", res.Run.ID)
	}

	logger.Debug("command finished", zap.String("command", cmd.Name()), zap.Int64("runtime_ms", res.TotalRuntimeMS))
	return nil
}
