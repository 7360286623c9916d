package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/pipeline"
	"github.com/gilchrisn/annotation-benchmark/pkg/store"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize Kappa per tool and dataset source",
		Long: `Print the distribution of Cohen's Kappa per tool, split into studies
drawn from Azimuth's reference and external studies, with the number of
studies reaching good agreement.

Scores are computed from the data directory, or loaded from a stored run
with --run.

Examples:
  annobench summary
  annobench summary --store runs.db --run 3f0c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runID, _ := cmd.Flags().GetString("run")

			var rows []benchmark.SummaryRow
			if runID != "" {
				if cfg.StorePath == "" {
					return fmt.Errorf("--run needs a store (--store or BENCH_STORE)")
				}
				db, err := store.Open(cfg.StorePath, logger)
				if err != nil {
					return err
				}
				defer db.Close()

				scores, err := db.LoadStudyScores(cmd.Context(), runID)
				if err != nil {
					return err
				}
				rows = benchmark.Summarize(scores, cfg.GoodAgreement)
			} else {
				p := pipeline.New(cfg, logger)
				p.SkipFigures = true
				res, err := p.Run(cmd.Context(), pipeline.StageStudy)
				if err != nil {
					return err
				}
				rows = res.Summary
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(rows)
			}
			return pipeline.WriteSummary(out, rows)
		},
	}
	cmd.Flags().String("store", "", "SQLite database holding stored runs")
	cmd.Flags().String("run", "", "Summarize a stored run instead of the data directory")
	return cmd
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored benchmark runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.StorePath == "" {
				return fmt.Errorf("no store configured (--store or BENCH_STORE)")
			}

			db, err := store.Open(cfg.StorePath, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSTUDIES\tGROUPS\tCLUSTERS\tDATA")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Studies, r.Groups, r.Clusters, r.DataDir)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("store", "", "SQLite database holding stored runs")
	return cmd
}
