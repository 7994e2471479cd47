package core

import "math"

// -----------------------------------------------------------------------------
// Range-based variance estimators. All of them return per-period variance,
// not annualized volatility; annualization is the caller's concern.
// -----------------------------------------------------------------------------

// parkinsonFactor is 4*ln(2), the Parkinson range-variance normalizer.
var parkinsonFactor = 4 * math.Log(2)

// -----------------------------------------------------------------------------

// ParkinsonSeries computes a per-candle realized-variance proxy from the
// high/low range: (ln(H/L))^2 / (4 ln 2). When a candle has no range
// (high == low) or an invalid one, the squared return takes its place so
// the series stays strictly usable as an innovation input.
// highs/lows are aligned with returns: entry t belongs to the candle that
// produced return t.
func ParkinsonSeries(highs, lows, returns []float64) []float64 {
	out := make([]float64, len(returns))
	for t := range returns {
		rv := returns[t] * returns[t]
		if t < len(highs) && highs[t] > lows[t] && lows[t] > 0 {
			hl := math.Log(highs[t] / lows[t])
			rv = hl * hl / parkinsonFactor
		}
		out[t] = rv
	}
	return out
}

// -----------------------------------------------------------------------------

// GarmanKlassVariance estimates per-period variance from OHLC:
// mean of 0.5*ln(H/L)^2 - (2 ln 2 - 1)*ln(C/O)^2.
func GarmanKlassVariance(opens, highs, lows, closes []float64) float64 {
	n := len(opens)
	if n == 0 || n != len(highs) || n != len(lows) || n != len(closes) {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		if lows[i] <= 0 || opens[i] <= 0 {
			continue
		}
		hl := math.Log(highs[i] / lows[i])
		co := math.Log(closes[i] / opens[i])
		sum += 0.5*hl*hl - (2*math.Log(2)-1)*co*co
	}

	return sum / float64(n)
}

// -----------------------------------------------------------------------------

// RogersSatchellVariance estimates per-period variance without assuming a
// zero drift: mean of ln(H/C)ln(H/O) + ln(L/C)ln(L/O).
func RogersSatchellVariance(opens, highs, lows, closes []float64) float64 {
	n := len(opens)
	if n == 0 || n != len(highs) || n != len(lows) || n != len(closes) {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		if lows[i] <= 0 || opens[i] <= 0 || closes[i] <= 0 {
			continue
		}
		sum += math.Log(highs[i]/closes[i])*math.Log(highs[i]/opens[i]) +
			math.Log(lows[i]/closes[i])*math.Log(lows[i]/opens[i])
	}

	return sum / float64(n)
}

// -----------------------------------------------------------------------------

// YangZhangVariance combines overnight, open-to-close and Rogers-Satchell
// components with the usual k weighting. It is the preferred initial
// variance seed when OHLC input is available.
func YangZhangVariance(opens, highs, lows, closes []float64) float64 {
	n := len(opens)
	if n < 2 || n != len(highs) || n != len(lows) || n != len(closes) {
		return 0
	}

	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))

	// Overnight: close-to-open log returns
	overnight := logReturnVariance(closes[:n-1], opens[1:], n-1)

	// Open-to-close
	openClose := logReturnVariance(opens, closes, n)

	rs := RogersSatchellVariance(opens, highs, lows, closes)

	v := overnight + k*openClose + (1-k)*rs
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// -----------------------------------------------------------------------------

func logReturnVariance(from, to []float64, n int) float64 {
	if n < 2 {
		return 0
	}

	sum := 0.0
	sumSq := 0.0
	for i := 0; i < n; i++ {
		if from[i] <= 0 || to[i] <= 0 {
			continue
		}
		r := math.Log(to[i] / from[i])
		sum += r
		sumSq += r * r
	}

	mean := sum / float64(n)
	return (sumSq/float64(n) - mean*mean) * float64(n) / float64(n-1)
}
