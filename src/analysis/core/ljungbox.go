package core

import "math"

// -----------------------------------------------------------------------------

// LjungBoxResult carries the Q statistic and its chi-square p-value.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
}

// -----------------------------------------------------------------------------

// LjungBox tests a series for autocorrelation up to maxLag.
// Q = n(n+2) * sum_k rho_k^2/(n-k), chi-square with maxLag degrees of freedom.
// Degenerate series (too short, or zero variance) report p=1: there is no
// autocorrelation evidence to be had from them.
func LjungBox(series []float64, maxLag int) LjungBoxResult {
	n := len(series)
	if n < 3 || maxLag < 1 {
		return LjungBoxResult{Statistic: 0, PValue: 1}
	}
	if maxLag > n-2 {
		maxLag = n - 2
	}

	mean, _ := CalculateMeanStd(series)

	denom := 0.0
	for _, v := range series {
		d := v - mean
		denom += d * d
	}
	if denom == 0 || math.IsNaN(denom) {
		return LjungBoxResult{Statistic: 0, PValue: 1}
	}

	q := 0.0
	for lag := 1; lag <= maxLag; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (series[t] - mean) * (series[t-lag] - mean)
		}
		rho := num / denom
		q += rho * rho / float64(n-lag)
	}
	q *= float64(n) * float64(n+2)

	return LjungBoxResult{
		Statistic: q,
		PValue:    ChiSquareSurvival(q, maxLag),
	}
}
