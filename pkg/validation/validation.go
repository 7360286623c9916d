// Package validation checks the data and output directories before a
// benchmark run, collecting every layout problem it finds.
package validation

import (
	"fmt"
	"os"
	"slices"

	"github.com/gilchrisn/annotation-benchmark/pkg/config"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
	"github.com/gilchrisn/annotation-benchmark/pkg/parser"
)

// StudyCheck describes what was found for one study.
type StudyCheck struct {
	Study        models.Study `json:"study"`
	MissingTools []string     `json:"missing_tools,omitempty"`
	HasEmbedding bool         `json:"has_embedding"`
}

// Eligible reports whether every tool has a prediction column, which the
// pooled routines require.
func (c StudyCheck) Eligible() bool {
	return len(c.MissingTools) == 0
}

// ValidateDataDir checks the grouping table and every study's files. It
// returns one StudyCheck per study whose result table could be read, plus
// the collected problems as models.ValidationErrors.
func ValidateDataDir(cfg *config.Config) ([]StudyCheck, error) {
	var errors models.ValidationErrors

	// Check the data directory itself
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, models.ValidationErrors{{Field: "data_dir", Message: "cannot access data directory", Value: cfg.DataDir}}
	}
	if !info.IsDir() {
		return nil, models.ValidationErrors{{Field: "data_dir", Message: "not a directory", Value: cfg.DataDir}}
	}

	// Validate grouping table
	if _, err := parser.ReadGroupMap(cfg.GroupTablePath()); err != nil {
		errors = append(errors, models.ValidationError{
			Field:   "group_table",
			Message: err.Error(),
			Value:   config.GroupTableFile,
		})
	}

	// Validate studies
	var checks []StudyCheck
	for _, study := range cfg.Studies {
		check, err := validateStudy(cfg, study)
		if err != nil {
			if ve, ok := err.(models.ValidationErrors); ok {
				errors = append(errors, ve...)
			} else {
				errors = append(errors, models.ValidationError{
					Field:   "studies",
					Message: err.Error(),
					Value:   study.ID,
				})
			}
			continue
		}
		checks = append(checks, check)
	}

	return checks, errors.ErrOrNil()
}

// validateStudy checks the result table header and the embedding of one study
func validateStudy(cfg *config.Config, study models.Study) (StudyCheck, error) {
	var errors models.ValidationErrors
	check := StudyCheck{Study: study}
	field := fmt.Sprintf("studies[%s]", study.ID)

	header, err := parser.ReadHeader(cfg.ResultPath(study))
	if err != nil {
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: "result table is not readable",
			Value:   cfg.ResultPath(study),
		})
		return check, errors
	}

	if !slices.Contains(header, models.TruthColumn) {
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("result table has no %q column", models.TruthColumn),
			Value:   cfg.ResultPath(study),
		})
	}
	for _, tool := range cfg.Tools {
		if !slices.Contains(header, tool.Column) {
			check.MissingTools = append(check.MissingTools, tool.Name)
		}
	}

	// Embeddings are only needed by eligible studies
	if _, err := os.Stat(cfg.EmbeddingPath(study)); err == nil {
		check.HasEmbedding = true
	} else if check.Eligible() {
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: "embedding is missing",
			Value:   cfg.EmbeddingPath(study),
		})
	}

	if len(errors) > 0 {
		return check, errors
	}
	return check, nil
}

// ValidateOutputDirectory checks if output directory exists or can be created
func ValidateOutputDirectory(outputDir string) error {
	// Check if directory exists
	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) {
		// Try to create it
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("cannot access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path exists but is not a directory: %s", outputDir)
	}

	// Check if directory is writable
	probe, err := os.CreateTemp(outputDir, ".write_test")
	if err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// EligibleCount returns how many checked studies carry every tool column.
func EligibleCount(checks []StudyCheck) int {
	n := 0
	for _, c := range checks {
		if c.Eligible() {
			n++
		}
	}
	return n
}
