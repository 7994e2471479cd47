package core

import (
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// Standard-normal quantile (probit) via the Acklam rational approximation.
// Relative error below 1.15e-9 over the whole open interval.
// -----------------------------------------------------------------------------

var (
	probitA = [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	probitB = [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	probitC = [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	probitD = [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}
)

// NormalQuantile returns the inverse standard-normal CDF at p.
// Fails outside the open interval (0, 1).
func NormalQuantile(p float64) (float64, error) {
	if !(p > 0 && p < 1) || math.IsNaN(p) {
		return 0, fmt.Errorf("normal quantile requires p in (0,1), got %v", p)
	}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((probitC[0]*q+probitC[1])*q+probitC[2])*q+probitC[3])*q+probitC[4])*q + probitC[5]) /
			((((probitD[0]*q+probitD[1])*q+probitD[2])*q+probitD[3])*q + 1), nil

	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((probitC[0]*q+probitC[1])*q+probitC[2])*q+probitC[3])*q+probitC[4])*q + probitC[5]) /
			((((probitD[0]*q+probitD[1])*q+probitD[2])*q+probitD[3])*q + 1), nil

	default:
		q := p - 0.5
		r := q * q
		return (((((probitA[0]*r+probitA[1])*r+probitA[2])*r+probitA[3])*r+probitA[4])*r + probitA[5]) * q /
			(((((probitB[0]*r+probitB[1])*r+probitB[2])*r+probitB[3])*r+probitB[4])*r + 1), nil
	}
}

// -----------------------------------------------------------------------------
// Regularized incomplete gamma, used for the chi-square survival function
// behind the Ljung-Box p-value.
// -----------------------------------------------------------------------------

const (
	igammaMaxIter = 200
	igammaEps     = 1e-12
)

// ChiSquareSurvival returns P(X > x) for a chi-square with k degrees of freedom.
func ChiSquareSurvival(x float64, k int) float64 {
	if x <= 0 || k <= 0 {
		return 1
	}
	return upperIncompleteGammaRegularized(float64(k)/2, x/2)
}

// -----------------------------------------------------------------------------

func upperIncompleteGammaRegularized(a, x float64) float64 {
	if x < a+1 {
		return 1 - lowerGammaSeries(a, x)
	}
	return upperGammaContinuedFraction(a, x)
}

// lowerGammaSeries evaluates P(a,x) by its power series.
func lowerGammaSeries(a, x float64) float64 {
	lg, _ := math.Lgamma(a)

	ap := a
	sum := 1.0 / a
	del := sum

	for i := 0; i < igammaMaxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*igammaEps {
			break
		}
	}

	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

// upperGammaContinuedFraction evaluates Q(a,x) by the Lentz continued fraction.
func upperGammaContinuedFraction(a, x float64) float64 {
	lg, _ := math.Lgamma(a)

	const tiny = 1e-30
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d

	for i := 1; i <= igammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < igammaEps {
			break
		}
	}

	return math.Exp(-x+a*math.Log(x)-lg) * h
}
