package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	// Calculate mean
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	// For single element, return std = 0
	if len(data) == 1 {
		return mean, 0
	}

	// Standard deviation with N denominator (population std)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// SampleVariance computes the unbiased (N-1 denominator) variance.
func SampleVariance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}

	mean, _ := CalculateMeanStd(data)
	sum := 0.0
	for _, v := range data {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(len(data)-1)
}

// -----------------------------------------------------------------------------

// SkewnessKurtosis computes sample skewness and kurtosis (not excess).
// Both are 0 and 3 respectively for a degenerate series so callers do not
// have to special-case constant data.
func SkewnessKurtosis(data []float64) (float64, float64) {
	n := len(data)
	if n < 3 {
		return 0, 3
	}

	mean, std := CalculateMeanStd(data)
	if std == 0 {
		return 0, 3
	}

	var m3, m4 float64
	for _, v := range data {
		z := (v - mean) / std
		z3 := z * z * z
		m3 += z3
		m4 += z3 * z
	}

	skew := m3 / float64(n)
	kurt := m4 / float64(n)
	return skew, kurt
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}
