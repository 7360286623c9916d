// Package metrics implements the agreement statistics used to compare
// annotation tools with ground truth: Cohen's Kappa, micro F1, normalized
// mutual information and the silhouette of an embedding.
package metrics

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrLengthMismatch is returned when two label vectors differ in length.
	ErrLengthMismatch = errors.New("label vectors must have the same length")

	// ErrLabelCount is returned when a clustering has too few or too many
	// distinct labels for the requested metric.
	ErrLabelCount = errors.New("invalid number of labels")
)

// Confusion is a contingency table between two labelings over the union
// of their labels. Rows follow the first labeling, columns the second.
type Confusion struct {
	Labels []string
	Counts [][]int
	RowSum []int
	ColSum []int
	N      int
}

// NewConfusion builds the contingency table. Labels are sorted so the
// table layout is deterministic.
func NewConfusion(a, b []string) (*Confusion, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	index := make(map[string]int)
	for _, v := range a {
		index[v] = 0
	}
	for _, v := range b {
		index[v] = 0
	}
	labels := make([]string, 0, len(index))
	for label := range index {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for i, label := range labels {
		index[label] = i
	}

	k := len(labels)
	c := &Confusion{
		Labels: labels,
		Counts: make([][]int, k),
		RowSum: make([]int, k),
		ColSum: make([]int, k),
		N:      len(a),
	}
	for i := range c.Counts {
		c.Counts[i] = make([]int, k)
	}

	for i := range a {
		r, col := index[a[i]], index[b[i]]
		c.Counts[r][col]++
		c.RowSum[r]++
		c.ColSum[col]++
	}
	return c, nil
}

// Trace returns the number of exact agreements.
func (c *Confusion) Trace() int {
	total := 0
	for i := range c.Counts {
		total += c.Counts[i][i]
	}
	return total
}

// Distinct returns the number of different labels.
func Distinct(labels []string) int {
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
