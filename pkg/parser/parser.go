// Package parser reads the tab-separated study files: result tables,
// embeddings and the cell-type grouping table.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// ErrMissingColumn is returned when a required column is absent from a header.
var ErrMissingColumn = errors.New("missing column")

// Grouping table column names
const (
	CelltypeColumn = "Cell type"
	GroupColumn    = "Group"
)

// ===== RESULT TABLES =====

// ReadResultTable loads result.tsv. The Truth column is required; each of
// the requested prediction columns is loaded when present and silently
// skipped otherwise.
func ReadResultTable(path string, columns []string) (*models.ResultTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result table: %w", err)
	}
	defer f.Close()

	table, err := ParseResultTable(f, columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseResultTable is ReadResultTable over an arbitrary reader.
func ParseResultTable(r io.Reader, columns []string) (*models.ResultTable, error) {
	reader := newTSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := indexHeader(header)

	truthIdx, ok := index[models.TruthColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, models.TruthColumn)
	}

	present := make(map[string]int)
	for _, col := range columns {
		if i, ok := index[col]; ok {
			present[col] = i
		}
	}

	table := &models.ResultTable{Predictions: make(map[string][]string, len(present))}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		table.Truth = append(table.Truth, field(record, truthIdx))
		for col, i := range present {
			table.Predictions[col] = append(table.Predictions[col], field(record, i))
		}
	}

	return table, nil
}

// ===== EMBEDDINGS =====

// ReadEmbedding loads tsne.tsv: the first column is the cell identifier and
// every remaining column is a coordinate.
func ReadEmbedding(path string) (*models.Embedding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding: %w", err)
	}
	defer f.Close()

	emb, err := ParseEmbedding(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return emb, nil
}

// ParseEmbedding is ReadEmbedding over an arbitrary reader.
func ParseEmbedding(r io.Reader) (*models.Embedding, error) {
	reader := newTSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	dims := len(header) - 1
	if dims < 1 {
		return nil, fmt.Errorf("embedding needs at least one coordinate column, got %d columns", len(header))
	}

	var ids []string
	var data []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) != dims+1 {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, dims+1, len(record))
		}

		ids = append(ids, record[0])
		for _, raw := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid coordinate %q: %w", line, raw, err)
			}
			data = append(data, v)
		}
	}

	if len(ids) == 0 {
		return &models.Embedding{}, nil
	}
	return &models.Embedding{
		CellIDs: ids,
		Points:  mat.NewDense(len(ids), dims, data),
	}, nil
}

// ===== GROUPING =====

// ReadGroupMap loads celltype_group.tsv into a cell type -> group map.
func ReadGroupMap(path string) (models.GroupMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open group table: %w", err)
	}
	defer f.Close()

	groups, err := ParseGroupMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return groups, nil
}

// ParseGroupMap is ReadGroupMap over an arbitrary reader. Later rows win
// when a cell type is listed twice.
func ParseGroupMap(r io.Reader) (models.GroupMap, error) {
	reader := newTSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := indexHeader(header)

	cellIdx, ok := index[CelltypeColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, CelltypeColumn)
	}
	groupIdx, ok := index[GroupColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, GroupColumn)
	}

	groups := make(models.GroupMap)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		groups[field(record, cellIdx)] = field(record, groupIdx)
	}
	return groups, nil
}

// ReadHeader returns the trimmed column names of a TSV file without
// reading its body.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	header, err := newTSVReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	names := make([]string, len(header))
	for i, name := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return names, nil
}

// ===== HELPERS =====

func newTSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

func indexHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return index
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
