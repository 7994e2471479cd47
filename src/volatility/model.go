package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
)

// -----------------------------------------------------------------------------
// Shared dataset and model contract for the conditional-variance family.
//
// Every model instance is constructed from one Dataset and owns its derived
// series exclusively: nothing here mutates the input candles or prices, and
// every getter returns a fresh copy.
// -----------------------------------------------------------------------------

// barrierPenalty is returned by likelihood objectives inside infeasible
// regions (stationarity breach, non-positive variance) instead of throwing,
// so the simplex backs away from the barrier without crashing.
const barrierPenalty = 1e10

// minVarianceRatio floors fitted variances relative to the dataset seed, so
// regression models can never emit a non-positive conditional variance.
const minVarianceRatio = 1e-6

// Model type tags, also used as the ModelType field of calibrations and
// predictions.
const (
	TypeGARCH  = "garch"
	TypeEGARCH = "egarch"
	TypeGJR    = "gjr-garch"
	TypeHARRV  = "har-rv"
	TypeNoVaS  = "novas"
)

// -----------------------------------------------------------------------------

// InnovationMode selects where the recursion's innovation comes from. It is
// resolved once at construction, never re-checked inside the recursions.
type InnovationMode int

const (
	// ModeSquaredReturn: price-only input, innovation = r^2.
	ModeSquaredReturn InnovationMode = iota
	// ModeRangeProxy: OHLC input, innovation = per-candle realized variance.
	ModeRangeProxy
)

// -----------------------------------------------------------------------------

// Dataset carries the series every model fit works on, derived once from the
// raw input. Returns, innovations and the sign mask are aligned: entry t
// belongs to return t.
type Dataset struct {
	Returns        []float64
	Innovations    []float64
	Negative       []bool
	SeedVariance   float64
	PeriodsPerYear float64
	Mode           InnovationMode
}

// -----------------------------------------------------------------------------

// NewDatasetFromCandles derives log returns from candle closes, per-candle
// realized variance from the high/low range, and a Yang-Zhang seed variance.
// Fails on non-positive or non-finite prices.
func NewDatasetFromCandles(candles []models.MCandle, periodsPerYear float64) (*Dataset, error) {
	n := len(candles)
	if n < 2 {
		return nil, helpers.NewValidationError("need at least 2 candles, got %d", n)
	}

	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, c := range candles {
		opens[i], highs[i], lows[i], closes[i] = c.Open, c.High, c.Low, c.Close
	}

	returns, err := logReturns(closes)
	if err != nil {
		return nil, err
	}

	seed := core.YangZhangVariance(opens, highs, lows, closes)
	if seed <= 0 || math.IsNaN(seed) {
		seed = core.SampleVariance(returns)
	}
	seed = sanitizeSeed(seed)

	return &Dataset{
		Returns:        returns,
		Innovations:    core.ParkinsonSeries(highs[1:], lows[1:], returns),
		Negative:       negativeMask(returns),
		SeedVariance:   seed,
		PeriodsPerYear: periodsPerYear,
		Mode:           ModeRangeProxy,
	}, nil
}

// -----------------------------------------------------------------------------

// NewDatasetFromPrices derives log returns from a bare price series; the
// innovation is the squared return and the seed is the sample variance.
func NewDatasetFromPrices(prices []float64, periodsPerYear float64) (*Dataset, error) {
	if len(prices) < 2 {
		return nil, helpers.NewValidationError("need at least 2 prices, got %d", len(prices))
	}

	returns, err := logReturns(prices)
	if err != nil {
		return nil, err
	}

	innovations := make([]float64, len(returns))
	for t, r := range returns {
		innovations[t] = r * r
	}

	return &Dataset{
		Returns:        returns,
		Innovations:    innovations,
		Negative:       negativeMask(returns),
		SeedVariance:   sanitizeSeed(core.SampleVariance(returns)),
		PeriodsPerYear: periodsPerYear,
		Mode:           ModeSquaredReturn,
	}, nil
}

// -----------------------------------------------------------------------------

func logReturns(prices []float64) ([]float64, error) {
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] <= 0 || math.IsNaN(prices[i]) || math.IsInf(prices[i], 0) {
			return nil, helpers.NewValidationError("invalid price at index %d: %v", i, prices[i])
		}
		if prices[i-1] <= 0 || math.IsNaN(prices[i-1]) || math.IsInf(prices[i-1], 0) {
			return nil, helpers.NewValidationError("invalid price at index %d: %v", i-1, prices[i-1])
		}
		returns[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return returns, nil
}

func negativeMask(returns []float64) []bool {
	mask := make([]bool, len(returns))
	for t, r := range returns {
		mask[t] = r < 0
	}
	return mask
}

// sanitizeSeed keeps the recursion seed strictly positive even for constant
// price series, where the sample variance collapses to zero.
func sanitizeSeed(seed float64) float64 {
	if seed <= 0 || math.IsNaN(seed) || math.IsInf(seed, 0) {
		return 1e-10
	}
	return seed
}

// -----------------------------------------------------------------------------

// NumReturns reports the length of the derived return series.
func (d *Dataset) NumReturns() int {
	return len(d.Returns)
}

// -----------------------------------------------------------------------------

// annualizedVol converts a per-period variance into the conventional
// annualized percentage figure.
func annualizedVol(variance, periodsPerYear float64) float64 {
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance*periodsPerYear) * 100
}

// -----------------------------------------------------------------------------

// forecastPoints converts a per-step variance path into forecast points,
// flooring each entry at a strictly positive minimum.
func forecastPoints(variances []float64, floor, periodsPerYear float64) []models.MVolatilityPoint {
	points := make([]models.MVolatilityPoint, len(variances))
	for i, v := range variances {
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		points[i] = models.MVolatilityPoint{
			Variance:   v,
			Volatility: math.Sqrt(v),
			Annualized: annualizedVol(v, periodsPerYear),
		}
	}
	return points
}

// -----------------------------------------------------------------------------

// validateSteps enforces the forecast-horizon contract: the step count must
// be strictly positive.
func validateSteps(steps int) error {
	if steps < 1 {
		return helpers.NewValidationError("forecast steps must be >= 1, got %d", steps)
	}
	return nil
}

// errNotFitted builds the error returned by accessors called before Fit.
func errNotFitted(modelType string) error {
	return helpers.NewValidationError("%s model is not fitted", modelType)
}

// -----------------------------------------------------------------------------

// copyFloats returns a defensive copy so a caller mutating a returned slice
// cannot corrupt the model's internal state.
func copyFloats(src []float64) []float64 {
	return append([]float64(nil), src...)
}
