package metrics

import (
	"math"
)

// NormalizedMutualInfo calculates Normalized Mutual Information (NMI) between two labelings
// Returns NMI score between 0 and 1, normalized by the average entropy
func NormalizedMutualInfo(a, b []string) (float64, error) {
	c, err := NewConfusion(a, b)
	if err != nil {
		return 0, err
	}
	if c.N == 0 {
		return 0, nil
	}

	mi := mutualInformation(c)
	h1 := entropy(c.RowSum, c.N)
	h2 := entropy(c.ColSum, c.N)

	// Both labelings have a single cluster
	avgEntropy := (h1 + h2) / 2
	if avgEntropy == 0 {
		return 1.0, nil
	}

	nmi := mi / avgEntropy
	// rounding can push identical labelings slightly above 1
	return math.Min(nmi, 1.0), nil
}

// mutualInformation calculates mutual information from the contingency table
func mutualInformation(c *Confusion) float64 {
	n := float64(c.N)
	mi := 0.0
	for i, row := range c.Counts {
		for j, nij := range row {
			if nij == 0 {
				continue
			}
			ni := float64(c.RowSum[i])
			nj := float64(c.ColSum[j])
			mi += float64(nij) / n * math.Log2(float64(nij)*n/(ni*nj))
		}
	}
	return math.Max(mi, 0)
}

// entropy calculates entropy of a labeling from its marginal counts
func entropy(counts []int, n int) float64 {
	h := 0.0
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}
