package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// oneSampleTTest tests whether the mean of xs differs from zero.
// Returns the t statistic and the two-sided p-value under a Student's t
// distribution with n-1 degrees of freedom.
func oneSampleTTest(xs []float64) (tStat, pValue float64) {
	n := len(xs)
	if n < 2 {
		return 0, 1
	}

	mean := stat.Mean(xs, nil)
	sd := stat.StdDev(xs, nil)

	if sd == 0 {
		// Degenerate series: every observation identical.
		if mean == 0 {
			return 0, 1
		}
		return math.Inf(int(math.Copysign(1, mean))), 0
	}

	tStat = mean / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	pValue = 2 * dist.CDF(-math.Abs(tStat))
	return tStat, pValue
}

// spearman computes the Spearman rank correlation between xs and ys:
// Pearson correlation of the rank-transformed series, with ties
// receiving their average rank. Returns 0 when undefined (constant
// input or mismatched lengths).
func spearman(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(ranks(xs), ranks(ys), nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// ranks maps xs to 1-based ranks, averaging tied values.
func ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// median of xs; 0 on empty input. Does not mutate xs.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
