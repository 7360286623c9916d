// Package models holds the data types shared by the benchmark pipeline:
// the study manifest, annotation tools, per-study tables and score matrices.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Unassigned is both the fallback prediction for a missing tool column and
// the cell-type group that is excluded from per-group scoring.
const Unassigned = "Unassigned"

// TruthColumn is the ground-truth column of every result table.
const TruthColumn = "Truth"

// ReferenceSource marks studies whose dataset comes from Azimuth's reference.
const ReferenceSource = "*"

// ===== MANIFEST =====

// Study identifies one benchmarked dataset
type Study struct {
	ID     string `json:"id" yaml:"id"`
	Tissue string `json:"tissue" yaml:"tissue"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Dir returns the study directory below dataDir, e.g. data/studies/bone_marrow/GSE216005.
func (s Study) Dir(dataDir string) string {
	return filepath.Join(dataDir, "studies", strings.ReplaceAll(s.Tissue, " ", "_"), s.ID)
}

// IsReference reports whether the study is drawn from Azimuth's reference.
func (s Study) IsReference() bool {
	return s.Source == ReferenceSource
}

// Validate checks required fields
func (s Study) Validate() error {
	if s.ID == "" {
		return ValidationError{Field: "id", Message: "study ID cannot be empty"}
	}
	if s.Tissue == "" {
		return ValidationError{Field: "tissue", Message: "tissue cannot be empty", Value: s.ID}
	}
	if s.Source != "" && s.Source != ReferenceSource {
		return ValidationError{Field: "source", Message: "source must be empty or \"*\"", Value: s.Source}
	}
	return nil
}

// Tool is an annotation tool and the result-table column holding its
// standardized predictions.
type Tool struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
}

// DefaultTools returns the two benchmarked annotation tools.
func DefaultTools() []Tool {
	return []Tool{
		{Name: "Azimuth", Column: "Azimuth - standardized"},
		{Name: "OmnibusX", Column: "OmnibusX - standardized"},
	}
}

// ToolNames returns the tool names in order.
func ToolNames(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// ===== TABLES =====

// ResultTable holds the truth labels of one study and the predictions of
// each tool whose column was present in the file.
type ResultTable struct {
	Truth       []string
	Predictions map[string][]string // column name -> labels
}

// Len returns the number of cells
func (rt *ResultTable) Len() int {
	return len(rt.Truth)
}

// Prediction returns the labels of a column and whether the column exists.
func (rt *ResultTable) Prediction(column string) ([]string, bool) {
	labels, ok := rt.Predictions[column]
	return labels, ok
}

// HasAll reports whether every tool column is present.
func (rt *ResultTable) HasAll(tools []Tool) bool {
	for _, t := range tools {
		if _, ok := rt.Predictions[t.Column]; !ok {
			return false
		}
	}
	return true
}

// Embedding is the 2-D (or n-D) scatter of a study, one row per cell.
type Embedding struct {
	CellIDs []string
	Points  *mat.Dense
}

// Rows returns the number of embedded cells.
func (e *Embedding) Rows() int {
	if e.Points == nil {
		return 0
	}
	r, _ := e.Points.Dims()
	return r
}

// GroupMap maps a fine cell type to its coarse group.
type GroupMap map[string]string

// ===== SCORES =====

// StudyScores holds one value per tool (row) and study (column) for each
// agreement statistic.
type StudyScores struct {
	Studies []Study     `json:"studies"`
	Tools   []string    `json:"tools"`
	Kappa   [][]float64 `json:"kappa"`
	F1      [][]float64 `json:"f1"`
	NMI     [][]float64 `json:"nmi"`
}

// NewStudyScores allocates zeroed matrices.
func NewStudyScores(studies []Study, tools []string) *StudyScores {
	alloc := func() [][]float64 {
		m := make([][]float64, len(tools))
		for i := range m {
			m[i] = make([]float64, len(studies))
		}
		return m
	}
	return &StudyScores{
		Studies: studies,
		Tools:   tools,
		Kappa:   alloc(),
		F1:      alloc(),
		NMI:     alloc(),
	}
}

// MarshalJSON writes undefined scores as null, since JSON has no NaN.
func (s *StudyScores) MarshalJSON() ([]byte, error) {
	type plain StudyScores
	return json.Marshal(struct {
		*plain
		Kappa [][]*float64 `json:"kappa"`
		F1    [][]*float64 `json:"f1"`
		NMI   [][]*float64 `json:"nmi"`
	}{
		plain: (*plain)(s),
		Kappa: nullMatrix(s.Kappa),
		F1:    nullMatrix(s.F1),
		NMI:   nullMatrix(s.NMI),
	})
}

func nullMatrix(m [][]float64) [][]*float64 {
	out := make([][]*float64, len(m))
	for i, row := range m {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				out[i][j] = &row[j]
			}
		}
	}
	return out
}

// CelltypeScores holds micro F1 per cell-type group (row) and tool (column).
type CelltypeScores struct {
	Groups []string    `json:"groups"`
	Tools  []string    `json:"tools"`
	F1     [][]float64 `json:"f1"`
	Cells  []int       `json:"cells"`
}

// ClusterScores pairs the silhouette of each retained cluster with the
// agreement of every tool on that cluster.
type ClusterScores struct {
	Studies    []string             `json:"studies"`
	Groups     []string             `json:"groups"`
	Silhouette []float64            `json:"silhouette"`
	F1         map[string][]float64 `json:"f1"` // tool -> per-cluster F1
}

// Len returns the number of retained clusters.
func (cs *ClusterScores) Len() int {
	return len(cs.Silhouette)
}

// Report gathers the outcome of one benchmark run. Routines that were
// skipped leave their field nil.
type Report struct {
	Study    *StudyScores    `json:"study,omitempty"`
	Celltype *CelltypeScores `json:"celltype,omitempty"`
	Cluster  *ClusterScores  `json:"cluster,omitempty"`
}

// Available reports whether a score carries information. Zero and NaN
// both stand for "no prediction" in the rendered tables.
func Available(score float64) bool {
	return score != 0 && !math.IsNaN(score)
}

// ===== VALIDATION =====

// ValidationError represents structured validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}

// ErrOrNil returns nil when the collection is empty.
func (ve ValidationErrors) ErrOrNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}
