package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gilchrisn/annotation-benchmark/pkg/config"
)

var version = "0.1.0-dev"

// logger is replaced by PersistentPreRunE before any subcommand runs
var logger = zap.NewNop()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "annobench",
		Short: "Benchmark cell-type annotation tools against ground truth",
		Long: `annobench scores cell-type annotation tools against curated
ground-truth labels across a set of single-cell studies.

It computes Cohen's Kappa, micro F1 and NMI per study, micro F1 per
cell-type group, and relates cluster dispersion to agreement through
fitted curves. Every routine renders an SVG figure.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("data", "", "Data directory holding celltype_group.tsv and studies/")
	pf.String("out", "", "Output directory for figures and the summary")
	pf.Int("workers", 0, "Number of parallel workers (default: configured value)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newStudyCmd(),
		newCelltypeCmd(),
		newClusterCmd(),
		newSummaryCmd(),
		newRunsCmd(),
		newValidateCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "annobench version %s\n", version)
		},
	}
}

// loadConfig applies the command-line flags on top of the config file and
// the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir, _ = flags.GetString("data")
	}
	if flags.Changed("out") {
		cfg.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("store") != nil && flags.Changed("store") {
		cfg.StorePath, _ = flags.GetString("store")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
