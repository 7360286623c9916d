package metrics

import "math"

// CohenKappa returns the chance-corrected agreement between truth and
// pred. An empty input scores 0. When both raters use one identical label
// the expected agreement is 1 and the statistic is undefined (NaN).
func CohenKappa(truth, pred []string) (float64, error) {
	c, err := NewConfusion(truth, pred)
	if err != nil {
		return 0, err
	}
	if c.N == 0 {
		return 0, nil
	}

	n := float64(c.N)
	observed := float64(c.Trace()) / n

	expected := 0.0
	for i := range c.Labels {
		expected += float64(c.RowSum[i]) * float64(c.ColSum[i])
	}
	expected /= n * n

	if expected == 1 {
		return math.NaN(), nil
	}
	return (observed - expected) / (1 - expected), nil
}

// MicroF1 pools true positives, false positives and false negatives over
// every label before computing F1. For single-label predictions this is
// the fraction of matching cells.
func MicroF1(truth, pred []string) (float64, error) {
	c, err := NewConfusion(truth, pred)
	if err != nil {
		return 0, err
	}

	tp := c.Trace()
	fp, fn := 0, 0
	for i := range c.Labels {
		fp += c.ColSum[i] - c.Counts[i][i]
		fn += c.RowSum[i] - c.Counts[i][i]
	}

	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0, nil
	}
	return float64(2*tp) / float64(denom), nil
}
