package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gilchrisn/annotation-benchmark/pkg/benchmark"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func score(v float64) string {
	if !models.Available(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

// WriteStudyTable prints one line per study with Kappa, F1 and NMI for
// every tool.
func WriteStudyTable(w io.Writer, scores *models.StudyScores) error {
	tw := newTabWriter(w)

	header := []string{"STUDY", "TISSUE", "SOURCE"}
	for _, tool := range scores.Tools {
		header = append(header, tool+" KAPPA", tool+" F1", tool+" NMI")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for j, study := range scores.Studies {
		row := []string{study.ID, study.Tissue, benchmark.SourceOf(study)}
		for i := range scores.Tools {
			row = append(row, score(scores.Kappa[i][j]), score(scores.F1[i][j]), score(scores.NMI[i][j]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteCelltypeTable prints one line per cell-type group.
func WriteCelltypeTable(w io.Writer, scores *models.CelltypeScores) error {
	tw := newTabWriter(w)

	header := append([]string{"GROUP", "CELLS"}, scores.Tools...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for i, group := range scores.Groups {
		row := []string{group, fmt.Sprint(scores.Cells[i])}
		for j := range scores.Tools {
			row = append(row, score(scores.F1[i][j]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteClusterTable prints one line per retained cluster. Tool columns
// follow tools when given, or sorted tool names otherwise.
func WriteClusterTable(w io.Writer, scores *models.ClusterScores, tools ...string) error {
	if len(tools) == 0 {
		for tool := range scores.F1 {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
	}

	tw := newTabWriter(w)
	header := append([]string{"STUDY", "GROUP", "SILHOUETTE"}, tools...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for k := 0; k < scores.Len(); k++ {
		row := []string{scores.Studies[k], scores.Groups[k], fmt.Sprintf("%.4f", scores.Silhouette[k])}
		for _, tool := range tools {
			row = append(row, score(scores.F1[tool][k]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteSummary prints the per tool and source Kappa distribution.
func WriteSummary(w io.Writer, rows []benchmark.SummaryRow) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "TOOL\tSOURCE\tN\tMEAN\tMEDIAN\tQ1\tQ3\tMIN\tMAX\tGOOD")
	for _, r := range rows {
		if r.Count == 0 {
			fmt.Fprintf(tw, "%s\t%s\t0\t-\t-\t-\t-\t-\t-\t0\n", r.Tool, r.Source)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%d/%d\n",
			r.Tool, r.Source, r.Count, r.Mean, r.Median, r.Q1, r.Q3, r.Min, r.Max, r.Good, r.Count)
	}
	return tw.Flush()
}
