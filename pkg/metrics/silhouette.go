package metrics

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// silhouetteBlock is the number of rows scored by one worker task.
const silhouetteBlock = 256

// Silhouette returns the mean silhouette coefficient of points grouped by
// labels, using Euclidean distance. It needs between 2 and n-1 distinct
// labels. A point alone in its cluster scores 0.
func Silhouette(ctx context.Context, points *mat.Dense, labels []string, workers int) (float64, error) {
	if points == nil {
		return 0, fmt.Errorf("%w: no points", ErrLengthMismatch)
	}
	n, _ := points.Dims()
	if n != len(labels) {
		return 0, fmt.Errorf("%w: %d points, %d labels", ErrLengthMismatch, n, len(labels))
	}

	clusters := make(map[string]int)
	assign := make([]int, n)
	var sizes []int
	for i, l := range labels {
		id, ok := clusters[l]
		if !ok {
			id = len(clusters)
			clusters[l] = id
			sizes = append(sizes, 0)
		}
		assign[i] = id
		sizes[id]++
	}

	k := len(clusters)
	if k < 2 || k > n-1 {
		return 0, fmt.Errorf("%w: silhouette needs 2 <= labels <= n-1, got %d labels for %d samples", ErrLabelCount, k, n)
	}

	scores := make([]float64, n)
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for start := 0; start < n; start += silhouetteBlock {
		start, end := start, min(start+silhouetteBlock, n)
		g.Go(func() error {
			sums := make([]float64, k)
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				scores[i] = silhouetteSample(points, assign, sizes, sums, i)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return stat.Mean(scores, nil), nil
}

// silhouetteSample scores row i; sums is scratch space of one entry per cluster.
func silhouetteSample(points *mat.Dense, assign, sizes []int, sums []float64, i int) float64 {
	own := assign[i]
	if sizes[own] == 1 {
		return 0
	}

	for c := range sums {
		sums[c] = 0
	}
	row := points.RawRowView(i)
	n := len(assign)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		sums[assign[j]] += floats.Distance(row, points.RawRowView(j), 2)
	}

	a := sums[own] / float64(sizes[own]-1)
	b := math.Inf(1)
	for c, sum := range sums {
		if c == own {
			continue
		}
		b = math.Min(b, sum/float64(sizes[c]))
	}

	denom := math.Max(a, b)
	if denom == 0 {
		return 0
	}
	return (b - a) / denom
}
