package analysis

import (
	"math"
	"math/rand"
	"testing"

	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/volatility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fixtures: a deterministic GARCH(1,1) candle simulator mirroring the one the
// model tests use, so the orchestrator is exercised on data with known
// volatility dynamics.
// -----------------------------------------------------------------------------

func simulatedCandles(n int, seed int64) []models.MCandle {
	const (
		omega = 5e-6
		alpha = 0.08
		beta  = 0.85
	)

	rng := rand.New(rand.NewSource(seed))
	variance := omega / (1 - alpha - beta)
	price := 100.0
	ts := int64(1700000000)

	candles := make([]models.MCandle, n)
	for i := 0; i < n; i++ {
		r := rng.NormFloat64() * math.Sqrt(variance)
		open := price
		price = open * math.Exp(r)

		span := math.Sqrt(variance) * (0.3 + 0.2*math.Abs(rng.NormFloat64()))
		candles[i] = models.MCandle{
			Symbol:    "SIM",
			Open:      open,
			High:      math.Max(open, price) * math.Exp(span),
			Low:       math.Min(open, price) * math.Exp(-span),
			Close:     price,
			Volume:    1000,
			Timestamp: ts,
		}
		ts += 4 * 3600

		variance = omega + alpha*r*r + beta*variance
	}
	return candles
}

func flatCandles(n int) []models.MCandle {
	candles := make([]models.MCandle, n)
	ts := int64(1700000000)
	for i := range candles {
		candles[i] = models.MCandle{
			Symbol: "FLAT", Open: 50, High: 50, Low: 50, Close: 50,
			Volume: 10, Timestamp: ts,
		}
		ts += 86400
	}
	return candles
}

func newTestFacade(cfg *models.MConfig) *ForecastFacade {
	return NewForecastFacade(cfg, nil)
}

// -----------------------------------------------------------------------------

func TestPredictProducesOrderedCorridor(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	pred, err := facade.Predict(candles, "4h")
	require.NoError(t, err)

	lastClose := candles[len(candles)-1].Close
	assert.Equal(t, lastClose, pred.CurrentPrice)
	assert.Equal(t, "4h", pred.Interval)
	assert.Equal(t, 1, pred.Steps)
	assert.Equal(t, DefaultConfidence, pred.Confidence)

	assert.Greater(t, pred.Sigma, 0.0)
	assert.False(t, math.IsNaN(pred.Sigma))
	assert.Greater(t, pred.Move, 0.0)
	assert.Greater(t, pred.UpperPrice, pred.CurrentPrice)
	assert.Less(t, pred.LowerPrice, pred.CurrentPrice)
	assert.Greater(t, pred.LowerPrice, 0.0)
	assert.NotEmpty(t, pred.ModelType)
	assert.True(t, pred.Reliable)
	assert.False(t, pred.CreatedAt.IsZero())

	// Log-normal corridor: multiplicative symmetry, not additive.
	assert.InDelta(t, pred.UpperPrice/pred.CurrentPrice, pred.CurrentPrice/pred.LowerPrice, 1e-9)
}

// -----------------------------------------------------------------------------

func TestPredictConstantCandlesDoesNotFail(t *testing.T) {
	facade := newTestFacade(nil)

	pred, err := facade.Predict(flatCandles(300), "1d")
	require.NoError(t, err)

	assert.False(t, math.IsNaN(pred.Sigma))
	assert.False(t, math.IsInf(pred.Sigma, 0))
	assert.GreaterOrEqual(t, pred.Sigma, 0.0)
	assert.Greater(t, pred.UpperPrice, 0.0)
	assert.Greater(t, pred.LowerPrice, 0.0)
}

// -----------------------------------------------------------------------------

func TestPredictDoesNotMutateInputCandles(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)
	original := append([]models.MCandle(nil), candles...)

	_, err := facade.Predict(candles, "4h")
	require.NoError(t, err)
	_, err = facade.PredictRange(candles, "4h", 5)
	require.NoError(t, err)

	assert.Equal(t, original, candles)
}

// -----------------------------------------------------------------------------

func TestPredictRangeOneStepMatchesPredict(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	single, err := facade.Predict(candles, "4h")
	require.NoError(t, err)
	ranged, err := facade.PredictRange(candles, "4h", 1)
	require.NoError(t, err)

	assert.InDelta(t, single.Sigma, ranged.Sigma, 1e-10)
	assert.Equal(t, single.ModelType, ranged.ModelType)
}

// -----------------------------------------------------------------------------

func TestPredictRangeCumulativeSigmaGrowsSubLinearly(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	sigmas := make([]float64, 0, 5)
	for steps := 1; steps <= 5; steps++ {
		pred, err := facade.PredictRange(candles, "4h", steps)
		require.NoError(t, err)
		require.Equal(t, steps, pred.Steps)
		sigmas = append(sigmas, pred.Sigma)
	}

	// Variance adds across steps, so sigma must grow, but slower than
	// linearly in the horizon.
	for i := 1; i < len(sigmas); i++ {
		assert.Greater(t, sigmas[i], sigmas[i-1], "step %d", i+1)
	}
	assert.Less(t, sigmas[4], 5*sigmas[0])
}

// -----------------------------------------------------------------------------

func TestPredictConfidenceWidensCorridorOnly(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	narrow, err := facade.PredictWithOptions(candles, "4h", PredictOptions{Confidence: 0.5})
	require.NoError(t, err)
	wide, err := facade.PredictWithOptions(candles, "4h", PredictOptions{Confidence: 0.95})
	require.NoError(t, err)

	// Sigma is a property of the fit, not of the quantile.
	assert.InDelta(t, narrow.Sigma, wide.Sigma, 1e-12)
	assert.Greater(t, wide.Move, narrow.Move)
	assert.Greater(t, wide.UpperPrice, narrow.UpperPrice)
	assert.Less(t, wide.LowerPrice, narrow.LowerPrice)
}

// -----------------------------------------------------------------------------

func TestPredictValidation(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	t.Run("unsupported interval", func(t *testing.T) {
		_, err := facade.Predict(candles, "2h")
		require.Error(t, err)
		var validation *helpers.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("too few candles", func(t *testing.T) {
		_, err := facade.Predict(simulatedCandles(100, 1), "4h")
		require.Error(t, err)
		var validation *helpers.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("negative steps", func(t *testing.T) {
		_, err := facade.PredictWithOptions(candles, "4h", PredictOptions{Steps: -1})
		require.Error(t, err)
		var validation *helpers.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("confidence at or above one", func(t *testing.T) {
		_, err := facade.PredictWithOptions(candles, "4h", PredictOptions{Confidence: 1.0})
		assert.Error(t, err)
		_, err = facade.PredictWithOptions(candles, "4h", PredictOptions{Confidence: 1.5})
		assert.Error(t, err)
	})

	t.Run("invalid current price", func(t *testing.T) {
		_, err := facade.PredictWithOptions(candles, "4h", PredictOptions{CurrentPrice: -10})
		assert.Error(t, err)
		_, err = facade.PredictWithOptions(candles, "4h", PredictOptions{CurrentPrice: math.NaN()})
		assert.Error(t, err)
	})
}

// -----------------------------------------------------------------------------

func TestPredictFromPrices(t *testing.T) {
	facade := newTestFacade(nil)

	rng := rand.New(rand.NewSource(11))
	prices := make([]float64, 400)
	prices[0] = 250
	for i := 1; i < len(prices); i++ {
		prices[i] = prices[i-1] * math.Exp(0.008*rng.NormFloat64())
	}

	pred, err := facade.PredictFromPrices(prices, "4h", PredictOptions{Symbol: "BARE"})
	require.NoError(t, err)

	assert.Equal(t, "BARE", pred.Symbol)
	assert.Equal(t, prices[len(prices)-1], pred.CurrentPrice)
	assert.Greater(t, pred.Sigma, 0.0)
	assert.Greater(t, pred.UpperPrice, pred.CurrentPrice)
	assert.Less(t, pred.LowerPrice, pred.CurrentPrice)
}

// -----------------------------------------------------------------------------

func TestPredictHonorsConfiguredModelSet(t *testing.T) {
	cfg := &models.MConfig{}
	cfg.Forecast.Models = []string{volatility.TypeGARCH}
	facade := newTestFacade(cfg)

	pred, err := facade.Predict(simulatedCandles(500, 42), "4h")
	require.NoError(t, err)

	assert.Equal(t, volatility.TypeGARCH, pred.ModelType)
}

// -----------------------------------------------------------------------------

func TestPredictLeverageRestrictsToAsymmetricFamily(t *testing.T) {
	// Three small up moves then one large down move: losses carry far more
	// RMS than gains, which must route selection to the asymmetric family.
	price := 100.0
	ts := int64(1700000000)
	candles := make([]models.MCandle, 200)
	for i := range candles {
		r := 0.003
		if i%4 == 3 {
			r = -0.02
		}
		open := price
		price = open * math.Exp(r)
		candles[i] = models.MCandle{
			Symbol:    "LEV",
			Open:      open,
			High:      math.Max(open, price) * math.Exp(0.002),
			Low:       math.Min(open, price) * math.Exp(-0.002),
			Close:     price,
			Volume:    500,
			Timestamp: ts,
		}
		ts += 86400
	}

	facade := newTestFacade(nil)
	pred, err := facade.Predict(candles, "1d")
	require.NoError(t, err)

	assert.Contains(t, []string{volatility.TypeEGARCH, volatility.TypeGJR}, pred.ModelType)
}

// -----------------------------------------------------------------------------

func TestPredictPersistenceCeilingMarksUnreliable(t *testing.T) {
	// An absurdly low ceiling fails every real fit, so the corridor is still
	// produced but flagged.
	cfg := &models.MConfig{}
	cfg.Forecast.MaxPersistence = 0.01
	facade := newTestFacade(cfg)

	pred, err := facade.Predict(simulatedCandles(500, 42), "4h")
	require.NoError(t, err)

	assert.False(t, pred.Reliable)
	assert.Greater(t, pred.Sigma, 0.0)
}

// -----------------------------------------------------------------------------

func TestPredictUsesConfiguredConfidence(t *testing.T) {
	cfg := &models.MConfig{}
	cfg.Forecast.Confidence = 0.9
	facade := newTestFacade(cfg)

	pred, err := facade.Predict(simulatedCandles(500, 42), "4h")
	require.NoError(t, err)

	assert.Equal(t, 0.9, pred.Confidence)
}

// -----------------------------------------------------------------------------

func TestCalibrateReturnsWinningFit(t *testing.T) {
	facade := newTestFacade(nil)

	calib, err := facade.Calibrate("SIM", simulatedCandles(500, 42), "4h")
	require.NoError(t, err)
	require.NotNil(t, calib)

	assert.NotEmpty(t, calib.ModelType)
	assert.False(t, math.IsNaN(calib.Diagnostics.AIC))
	assert.False(t, math.IsInf(calib.Diagnostics.AIC, 0))
}

func TestCalibrateUsesTradingCalendarForDailyData(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(300, 42)

	// An exchange-listed symbol annualizes on 252 trading days, no symbol on
	// 365 calendar days. The fit itself is identical either way.
	listed, err := facade.Calibrate("AAPL", candles, "1d")
	require.NoError(t, err)
	bare, err := facade.Calibrate("", candles, "1d")
	require.NoError(t, err)

	require.Equal(t, bare.ModelType, listed.ModelType)
	assert.Equal(t, bare.Diagnostics.AIC, listed.Diagnostics.AIC)

	ratio := math.Sqrt(252.0 / 365.0)
	assert.InDelta(t, calibAnnualizedVol(bare)*ratio, calibAnnualizedVol(listed),
		1e-9*calibAnnualizedVol(bare))
}

func calibAnnualizedVol(c *models.MCalibration) float64 {
	switch {
	case c.GARCH != nil:
		return c.GARCH.AnnualizedVol
	case c.HAR != nil:
		return c.HAR.AnnualizedVol
	default:
		return c.NoVaS.AnnualizedVol
	}
}

// -----------------------------------------------------------------------------

func TestCalibrateValidatesSampleSize(t *testing.T) {
	facade := newTestFacade(nil)

	_, err := facade.Calibrate("SIM", simulatedCandles(100, 1), "4h")
	require.Error(t, err)
	var validation *helpers.ValidationError
	assert.ErrorAs(t, err, &validation)
}

// -----------------------------------------------------------------------------

func TestBacktestSplitsAndScores(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	report, err := facade.Backtest(candles, "4h", 0)
	require.NoError(t, err)

	assert.Equal(t, 375, report.TrainSize)
	assert.Equal(t, 125, report.TestSize)
	assert.GreaterOrEqual(t, report.Hits, 0)
	assert.LessOrEqual(t, report.Hits, report.TestSize)
	assert.GreaterOrEqual(t, report.HitRate, 0.0)
	assert.LessOrEqual(t, report.HitRate, 100.0)
	assert.NotEmpty(t, report.ModelType)

	// Zero bar always passes.
	assert.True(t, report.Passed)

	impossible, err := facade.Backtest(candles, "4h", 100)
	require.NoError(t, err)
	assert.Equal(t, report.HitRate, impossible.HitRate)
	assert.False(t, impossible.Passed)
}

func TestBacktestConstantCandlesDoesNotFail(t *testing.T) {
	facade := newTestFacade(nil)

	report, err := facade.Backtest(flatCandles(300), "1d", 50)
	require.NoError(t, err)

	// Zero moves always land inside the corridor.
	assert.Equal(t, 100.0, report.HitRate)
	assert.True(t, report.Passed)
	assert.Equal(t, 225, report.TrainSize)
}

// -----------------------------------------------------------------------------

func TestBacktestValidation(t *testing.T) {
	facade := newTestFacade(nil)
	candles := simulatedCandles(500, 42)

	_, err := facade.Backtest(candles, "4h", -5)
	assert.Error(t, err)
	_, err = facade.Backtest(candles, "4h", 101)
	assert.Error(t, err)
	_, err = facade.Backtest(candles, "4h", math.NaN())
	assert.Error(t, err)

	// The training fraction, not the whole sample, must clear the floor.
	_, err = facade.Backtest(simulatedCandles(300, 1), "4h", 50)
	require.Error(t, err)
	var validation *helpers.ValidationError
	assert.ErrorAs(t, err, &validation)
}

// -----------------------------------------------------------------------------

func TestLeverageRatio(t *testing.T) {
	assert.Equal(t, 1.0, leverageRatio(nil))
	assert.Equal(t, 1.0, leverageRatio([]float64{0.01, 0.02}))
	assert.Equal(t, 1.0, leverageRatio([]float64{-0.01, -0.02}))

	// |down| twice |up| in RMS.
	ratio := leverageRatio([]float64{0.01, -0.02, 0.01, -0.02})
	assert.InDelta(t, 2.0, ratio, 1e-12)
}
