package core

import "math"

// -----------------------------------------------------------------------------
// Student-t likelihood machinery shared by every model, so that AIC/BIC are
// comparable across the whole family.
// -----------------------------------------------------------------------------

// ExpectedAbsNormal is E[|Z|] for Z ~ N(0,1), i.e. sqrt(2/pi).
// Used by the EGARCH magnitude term.
const ExpectedAbsNormal = 0.7978845608028654

// dfGrid is the profiling grid for the Student-t degrees of freedom.
// Values below ~4 make the scaled-t variance correction explosive, values
// above 30 are indistinguishable from Gaussian in practice.
var dfGrid = []float64{4.5, 5, 6, 7, 8, 10, 12, 15, 20, 30}

// -----------------------------------------------------------------------------

// StudentTLogLikelihood returns the log-likelihood of the returns under a
// standardized Student-t with the given conditional variances and degrees
// of freedom. The t is scaled to unit variance, which requires df > 2.
// Returns -Inf for invalid inputs so maximizers steer away naturally.
func StudentTLogLikelihood(returns, variances []float64, df float64) float64 {
	n := len(returns)
	if n == 0 || len(variances) != n || df <= 2 {
		return math.Inf(-1)
	}

	lg1, _ := math.Lgamma((df + 1) / 2)
	lg2, _ := math.Lgamma(df / 2)
	constTerm := lg1 - lg2 - 0.5*math.Log(math.Pi*(df-2))

	ll := 0.0
	for t := 0; t < n; t++ {
		v := variances[t]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(-1)
		}
		z2 := returns[t] * returns[t] / v
		ll += constTerm - 0.5*math.Log(v) - (df+1)/2*math.Log(1+z2/(df-2))
	}

	return ll
}

// -----------------------------------------------------------------------------

// ProfileStudentTDF maximizes the Student-t likelihood over the df grid for
// a fixed variance series, returning the best df and its log-likelihood.
func ProfileStudentTDF(returns, variances []float64) (float64, float64) {
	bestDF := dfGrid[0]
	bestLL := math.Inf(-1)

	for _, df := range dfGrid {
		ll := StudentTLogLikelihood(returns, variances, df)
		if ll > bestLL {
			bestLL = ll
			bestDF = df
		}
	}

	return bestDF, bestLL
}

// -----------------------------------------------------------------------------

// AIC = -2*logL + 2*k
func AIC(logLikelihood float64, numParams int) float64 {
	return -2*logLikelihood + 2*float64(numParams)
}

// BIC = -2*logL + k*ln(n)
func BIC(logLikelihood float64, numParams, numObs int) float64 {
	if numObs < 1 {
		numObs = 1
	}
	return -2*logLikelihood + float64(numParams)*math.Log(float64(numObs))
}
