package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
	"github.com/gilchrisn/annotation-benchmark/pkg/validation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the data directory layout without scoring",
		Long: `Check that the grouping table and every study's result table and
embedding are in place, and list which tools each study carries
predictions for. All problems are reported at once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			checks, verr := validation.ValidateDataDir(cfg)

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if err := json.NewEncoder(out).Encode(checks); err != nil {
					return err
				}
				return verr
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STUDY\tTISSUE\tSOURCE\tMISSING TOOLS\tEMBEDDING")
			for _, c := range checks {
				missing := "-"
				if !c.Eligible() {
					missing = strings.Join(c.MissingTools, ",")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
					c.Study.ID, c.Study.Tissue, benchmark.SourceOf(c.Study), missing, c.HasEmbedding)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d studies carry every tool column\n", validation.EligibleCount(checks), len(cfg.Studies))

			if ve, ok := verr.(models.ValidationErrors); ok {
				for _, e := range ve {
					fmt.Fprintf(out, "  %s\n", e.Error())
				}
				return fmt.Errorf("data directory has %d problem(s)", len(ve))
			}
			return verr
		},
	}
}
