// Package config loads benchmark settings from defaults, an optional YAML
// file and BENCH_* environment variables, in that order of precedence.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

//go:embed studies.yaml
var defaultManifest []byte

// Input file names below the data directory
const (
	GroupTableFile = "celltype_group.tsv"
	ResultFile     = "result.tsv"
	EmbeddingFile  = "tsne.tsv"
)

// Config contains all settings of a benchmark run
type Config struct {
	DataDir         string         `yaml:"data_dir"`
	OutputDir       string         `yaml:"output_dir"`
	StorePath       string         `yaml:"store_path,omitempty"` // empty disables persistence
	Workers         int            `yaml:"workers"`
	MinClusterCells int            `yaml:"min_cluster_cells"`
	GoodAgreement   float64        `yaml:"good_agreement"`
	Tools           []models.Tool  `yaml:"tools"`
	Studies         []models.Study `yaml:"studies"`
}

type manifest struct {
	Studies []models.Study `yaml:"studies"`
}

// Default returns the settings used by the published benchmark.
func Default() *Config {
	var m manifest
	if err := yaml.Unmarshal(defaultManifest, &m); err != nil {
		panic(fmt.Sprintf("config: embedded study manifest is invalid: %v", err))
	}

	return &Config{
		DataDir:         filepath.Join("..", "data"),
		OutputDir:       ".",
		Workers:         runtime.NumCPU(),
		MinClusterCells: 1000,
		GoodAgreement:   0.8,
		Tools:           models.DefaultTools(),
		Studies:         m.Studies,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("BENCH_DATA_DIR", c.DataDir)
	c.OutputDir = getEnv("BENCH_OUTPUT_DIR", c.OutputDir)
	c.StorePath = getEnv("BENCH_STORE", c.StorePath)
	c.Workers = getInt("BENCH_WORKERS", c.Workers)
	c.MinClusterCells = getInt("BENCH_MIN_CLUSTER_CELLS", c.MinClusterCells)
	c.GoodAgreement = getFloat("BENCH_GOOD_AGREEMENT", c.GoodAgreement)
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	var errs models.ValidationErrors

	if c.DataDir == "" {
		errs = append(errs, models.ValidationError{Field: "data_dir", Message: "data directory cannot be empty"})
	}
	if c.OutputDir == "" {
		errs = append(errs, models.ValidationError{Field: "output_dir", Message: "output directory cannot be empty"})
	}
	if c.Workers < 1 {
		errs = append(errs, models.ValidationError{Field: "workers", Message: "must be positive", Value: strconv.Itoa(c.Workers)})
	}
	if c.MinClusterCells < 2 {
		errs = append(errs, models.ValidationError{Field: "min_cluster_cells", Message: "must be at least 2", Value: strconv.Itoa(c.MinClusterCells)})
	}
	if c.GoodAgreement <= 0 || c.GoodAgreement > 1 {
		errs = append(errs, models.ValidationError{
			Field:   "good_agreement",
			Message: "must be in (0, 1]",
			Value:   strconv.FormatFloat(c.GoodAgreement, 'g', -1, 64),
		})
	}

	if len(c.Tools) == 0 {
		errs = append(errs, models.ValidationError{Field: "tools", Message: "at least one tool is required"})
	}
	for _, tool := range c.Tools {
		if tool.Name == "" || tool.Column == "" {
			errs = append(errs, models.ValidationError{Field: "tools", Message: "tool needs a name and a column", Value: tool.Name})
		}
	}

	if len(c.Studies) == 0 {
		errs = append(errs, models.ValidationError{Field: "studies", Message: "manifest is empty"})
	}
	seen := make(map[string]bool)
	for _, s := range c.Studies {
		if err := s.Validate(); err != nil {
			if ve, ok := err.(models.ValidationError); ok {
				errs = append(errs, ve)
			}
			continue
		}
		if seen[s.ID] {
			errs = append(errs, models.ValidationError{Field: "studies", Message: "duplicate study ID", Value: s.ID})
		}
		seen[s.ID] = true
	}

	return errs.ErrOrNil()
}

// GroupTablePath returns the location of the cell type grouping table.
func (c *Config) GroupTablePath() string {
	return filepath.Join(c.DataDir, GroupTableFile)
}

// ResultPath returns result.tsv of a study.
func (c *Config) ResultPath(s models.Study) string {
	return filepath.Join(s.Dir(c.DataDir), ResultFile)
}

// EmbeddingPath returns tsne.tsv of a study.
func (c *Config) EmbeddingPath(s models.Study) string {
	return filepath.Join(s.Dir(c.DataDir), EmbeddingFile)
}

// ToolColumns returns the prediction column of every tool.
func (c *Config) ToolColumns() []string {
	cols := make([]string, len(c.Tools))
	for i, t := range c.Tools {
		cols[i] = t.Column
	}
	return cols
}

// ===== ENVIRONMENT HELPERS =====

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
