package volatility

import (
	"math"
	"testing"

	"vol-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestNewGARCHRequiresMinimumSample(t *testing.T) {
	_, err := NewGARCH(simulatedDataset(t, 15, 1))
	assert.Error(t, err)

	_, err = NewGARCH(simulatedDataset(t, 60, 1))
	assert.NoError(t, err)
}

// -----------------------------------------------------------------------------

func TestGARCHFit(t *testing.T) {
	data := simulatedDataset(t, 500, 42)
	model, err := NewGARCH(data)
	require.NoError(t, err)

	calib, err := model.Fit()
	require.NoError(t, err)
	require.NotNil(t, calib.GARCH)

	params := calib.GARCH
	assert.Greater(t, params.Omega, 0.0)
	assert.GreaterOrEqual(t, params.Alpha, 0.0)
	assert.GreaterOrEqual(t, params.Beta, 0.0)
	assert.Less(t, params.Persistence, 1.0)
	assert.Greater(t, params.UnconditionalVariance, 0.0)
	assert.Greater(t, params.DF, 2.0)

	assert.Equal(t, TypeGARCH, calib.ModelType)
	assert.False(t, math.IsNaN(calib.Diagnostics.LogLikelihood))
	assert.False(t, math.IsInf(calib.Diagnostics.AIC, 0))
	assert.Greater(t, calib.Diagnostics.BIC, calib.Diagnostics.AIC)

	variances, err := model.VarianceSeries()
	require.NoError(t, err)
	require.Len(t, variances, data.NumReturns())
	for i, v := range variances {
		assert.Greater(t, v, 0.0, "variance %d", i)
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

// -----------------------------------------------------------------------------

func TestGARCHFitDeterministic(t *testing.T) {
	data := simulatedDataset(t, 400, 7)

	first, err := NewGARCH(data)
	require.NoError(t, err)
	second, err := NewGARCH(data)
	require.NoError(t, err)

	c1, err := first.Fit()
	require.NoError(t, err)
	c2, err := second.Fit()
	require.NoError(t, err)

	// Same data, no randomness anywhere: bit-identical results.
	assert.Equal(t, c1.GARCH.Omega, c2.GARCH.Omega)
	assert.Equal(t, c1.GARCH.Alpha, c2.GARCH.Alpha)
	assert.Equal(t, c1.GARCH.Beta, c2.GARCH.Beta)
	assert.Equal(t, c1.Diagnostics.LogLikelihood, c2.Diagnostics.LogLikelihood)
	assert.Equal(t, c1.Diagnostics.Iterations, c2.Diagnostics.Iterations)
}

// -----------------------------------------------------------------------------

func TestGARCHForecastConvergesToUnconditional(t *testing.T) {
	model, err := NewGARCH(simulatedDataset(t, 500, 42))
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	points, err := model.Forecast(500)
	require.NoError(t, err)
	require.Len(t, points, 500)

	for _, p := range points {
		assert.Greater(t, p.Variance, 0.0)
		assert.InDelta(t, math.Sqrt(p.Variance), p.Volatility, 1e-15)
	}

	uncond := calib.GARCH.UnconditionalVariance
	last := points[len(points)-1].Variance
	assert.InDelta(t, uncond, last, 0.01*uncond)
}

// -----------------------------------------------------------------------------

func TestGARCHForecastStepContract(t *testing.T) {
	model, err := NewGARCH(simulatedDataset(t, 300, 3))
	require.NoError(t, err)
	_, err = model.Fit()
	require.NoError(t, err)

	_, err = model.Forecast(0)
	assert.Error(t, err)
	_, err = model.Forecast(-2)
	assert.Error(t, err)

	one, err := model.Forecast(1)
	require.NoError(t, err)
	many, err := model.Forecast(10)
	require.NoError(t, err)

	// The first step never depends on the horizon.
	assert.Equal(t, one[0].Variance, many[0].Variance)
}

// -----------------------------------------------------------------------------

func TestGARCHNotFittedAccessors(t *testing.T) {
	model, err := NewGARCH(simulatedDataset(t, 300, 3))
	require.NoError(t, err)

	_, err = model.VarianceSeries()
	assert.Error(t, err)
	_, err = model.Forecast(1)
	assert.Error(t, err)
	_, err = model.StandardizedResiduals()
	assert.Error(t, err)
	_, err = model.ConditionalVariances([]float64{0.01}, []float64{0.0001})
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestGARCHDefensiveCopies(t *testing.T) {
	model, err := NewGARCH(simulatedDataset(t, 300, 9))
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	variances, err := model.VarianceSeries()
	require.NoError(t, err)

	variances[0] = -1e9
	calib.GARCH.Omega = -1e9

	fresh, err := model.VarianceSeries()
	require.NoError(t, err)
	assert.Greater(t, fresh[0], 0.0)

	again, err := model.Fit()
	require.NoError(t, err)
	assert.Greater(t, again.GARCH.Omega, 0.0)
}

// -----------------------------------------------------------------------------

func TestGARCHConditionalVariancesOnFreshSeries(t *testing.T) {
	model, err := NewGARCH(simulatedDataset(t, 400, 11))
	require.NoError(t, err)
	_, err = model.Fit()
	require.NoError(t, err)

	other := simulatedDataset(t, 200, 99)
	variances, err := model.ConditionalVariances(other.Returns, other.Innovations)
	require.NoError(t, err)
	require.Len(t, variances, len(other.Returns))
	for _, v := range variances {
		assert.Greater(t, v, 0.0)
	}

	_, err = model.ConditionalVariances(other.Returns, other.Innovations[:10])
	assert.Error(t, err)
	_, err = model.ConditionalVariances(nil, nil)
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestGARCHScaleInvariance(t *testing.T) {
	candles := simulateCandles(400, 21)

	scaled := make([]models.MCandle, len(candles))
	for i, c := range candles {
		s := c
		s.Open *= 1000
		s.High *= 1000
		s.Low *= 1000
		s.Close *= 1000
		scaled[i] = s
	}

	base, err := NewDatasetFromCandles(candles, 2190)
	require.NoError(t, err)
	big, err := NewDatasetFromCandles(scaled, 2190)
	require.NoError(t, err)

	m1, err := NewGARCH(base)
	require.NoError(t, err)
	c1, err := m1.Fit()
	require.NoError(t, err)

	m2, err := NewGARCH(big)
	require.NoError(t, err)
	c2, err := m2.Fit()
	require.NoError(t, err)

	// Log returns depend on price ratios only, so the dimensionless
	// parameters must not move with the price level.
	assert.InDelta(t, c1.GARCH.Alpha, c2.GARCH.Alpha, 1e-3)
	assert.InDelta(t, c1.GARCH.Beta, c2.GARCH.Beta, 1e-3)
	assert.InDelta(t, c1.GARCH.Persistence, c2.GARCH.Persistence, 1e-3)
	assert.InDelta(t, c1.Diagnostics.LogLikelihood, c2.Diagnostics.LogLikelihood,
		1e-6*math.Abs(c1.Diagnostics.LogLikelihood))
}

// -----------------------------------------------------------------------------

func TestGARCHConstantPricesDoNotPanic(t *testing.T) {
	prices := make([]float64, 300)
	for i := range prices {
		prices[i] = 75
	}
	data, err := NewDatasetFromPrices(prices, 365)
	require.NoError(t, err)

	model, err := NewGARCH(data)
	require.NoError(t, err)

	calib, err := model.Fit()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(calib.Diagnostics.LogLikelihood))

	points, err := model.Forecast(5)
	require.NoError(t, err)
	for _, p := range points {
		assert.Greater(t, p.Variance, 0.0)
		assert.False(t, math.IsNaN(p.Volatility))
	}
}

// -----------------------------------------------------------------------------

func TestGARCHStandardizedResiduals(t *testing.T) {
	data := simulatedDataset(t, 400, 5)
	model, err := NewGARCH(data)
	require.NoError(t, err)
	_, err = model.Fit()
	require.NoError(t, err)

	residuals, err := model.StandardizedResiduals()
	require.NoError(t, err)
	require.Len(t, residuals, data.NumReturns())

	for _, z := range residuals {
		assert.False(t, math.IsNaN(z))
		assert.False(t, math.IsInf(z, 0))
	}
}
