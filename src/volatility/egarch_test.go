package volatility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestEGARCHFit(t *testing.T) {
	data := simulatedDataset(t, 500, 42)
	model, err := NewEGARCH(data)
	require.NoError(t, err)

	calib, err := model.Fit()
	require.NoError(t, err)
	require.NotNil(t, calib.GARCH)

	// Log-variance form: positivity must hold with no sign constraint on the
	// raw parameters.
	assert.Less(t, calib.GARCH.Persistence, 1.0)
	assert.Equal(t, math.Abs(calib.GARCH.Beta), calib.GARCH.Persistence)
	assert.Greater(t, calib.GARCH.UnconditionalVariance, 0.0)
	assert.Equal(t, TypeEGARCH, calib.ModelType)

	variances, err := model.VarianceSeries()
	require.NoError(t, err)
	for _, v := range variances {
		assert.Greater(t, v, 0.0)
		assert.False(t, math.IsNaN(v))
	}
}

// -----------------------------------------------------------------------------

func TestEGARCHForecastContractsToUnconditional(t *testing.T) {
	model, err := NewEGARCH(simulatedDataset(t, 500, 42))
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	points, err := model.Forecast(800)
	require.NoError(t, err)

	uncond := calib.GARCH.UnconditionalVariance
	last := points[len(points)-1].Variance
	assert.InDelta(t, uncond, last, 0.01*uncond)

	for _, p := range points {
		assert.Greater(t, p.Variance, 0.0)
	}
}

// -----------------------------------------------------------------------------

func TestEGARCHDeterministic(t *testing.T) {
	data := simulatedDataset(t, 350, 13)

	m1, err := NewEGARCH(data)
	require.NoError(t, err)
	m2, err := NewEGARCH(data)
	require.NoError(t, err)

	c1, err := m1.Fit()
	require.NoError(t, err)
	c2, err := m2.Fit()
	require.NoError(t, err)

	assert.Equal(t, c1.GARCH.Omega, c2.GARCH.Omega)
	assert.Equal(t, c1.GARCH.Gamma, c2.GARCH.Gamma)
	assert.Equal(t, c1.Diagnostics.LogLikelihood, c2.Diagnostics.LogLikelihood)
}

// -----------------------------------------------------------------------------

func TestEGARCHNotFitted(t *testing.T) {
	model, err := NewEGARCH(simulatedDataset(t, 300, 3))
	require.NoError(t, err)

	_, err = model.Forecast(1)
	assert.Error(t, err)
	_, err = model.VarianceSeries()
	assert.Error(t, err)
	_, err = model.StandardizedResiduals()
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestEGARCHPriceOnlyInput(t *testing.T) {
	// Squared-return innovations: the magnitude term falls back to |z|.
	data := simulatedDataset(t, 400, 17)
	prices := make([]float64, 0, len(data.Returns)+1)
	price := 100.0
	prices = append(prices, price)
	for _, r := range data.Returns {
		price *= math.Exp(r)
		prices = append(prices, price)
	}

	priceData, err := NewDatasetFromPrices(prices, 2190)
	require.NoError(t, err)
	require.Equal(t, ModeSquaredReturn, priceData.Mode)

	model, err := NewEGARCH(priceData)
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	assert.Less(t, calib.GARCH.Persistence, 1.0)
	points, err := model.Forecast(10)
	require.NoError(t, err)
	for _, p := range points {
		assert.Greater(t, p.Variance, 0.0)
	}
}

// -----------------------------------------------------------------------------

func TestEGARCHConditionalVariances(t *testing.T) {
	model, err := NewEGARCH(simulatedDataset(t, 400, 19))
	require.NoError(t, err)
	_, err = model.Fit()
	require.NoError(t, err)

	other := simulatedDataset(t, 150, 77)
	variances, err := model.ConditionalVariances(other.Returns, other.Innovations)
	require.NoError(t, err)
	require.Len(t, variances, len(other.Returns))
	for _, v := range variances {
		assert.Greater(t, v, 0.0)
	}
}
