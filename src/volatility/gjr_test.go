package volatility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestGJRGARCHFit(t *testing.T) {
	data := simulatedDataset(t, 500, 42)
	model, err := NewGJRGARCH(data)
	require.NoError(t, err)

	calib, err := model.Fit()
	require.NoError(t, err)
	require.NotNil(t, calib.GARCH)

	params := calib.GARCH
	assert.Greater(t, params.Omega, 0.0)
	assert.GreaterOrEqual(t, params.Alpha, 0.0)
	assert.GreaterOrEqual(t, params.Alpha+params.Gamma, 0.0)
	assert.InDelta(t, params.Alpha+params.Gamma/2+params.Beta, params.Persistence, 1e-12)
	assert.Less(t, params.Persistence, 1.0)
	assert.Equal(t, TypeGJR, calib.ModelType)

	variances, err := model.VarianceSeries()
	require.NoError(t, err)
	for _, v := range variances {
		assert.Greater(t, v, 0.0)
	}
}

// -----------------------------------------------------------------------------

func TestGJRGARCHAsymmetryRaisesVarianceAfterLosses(t *testing.T) {
	model, err := NewGJRGARCH(simulatedDataset(t, 500, 42))
	require.NoError(t, err)
	_, err = model.Fit()
	require.NoError(t, err)

	// Same innovation magnitude, opposite signs: with gamma > 0 the negative
	// branch must produce at least the positive branch's variance.
	innovations := make([]float64, 50)
	for i := range innovations {
		innovations[i] = 1e-4
	}
	posReturns := make([]float64, 50)
	negReturns := make([]float64, 50)
	for i := range posReturns {
		posReturns[i] = 0.01
		negReturns[i] = -0.01
	}

	afterPos, err := model.ConditionalVariances(posReturns, innovations)
	require.NoError(t, err)
	afterNeg, err := model.ConditionalVariances(negReturns, innovations)
	require.NoError(t, err)

	calib, err := model.Fit()
	require.NoError(t, err)
	if calib.GARCH.Gamma > 0 {
		for i := 1; i < len(afterPos); i++ {
			assert.GreaterOrEqual(t, afterNeg[i], afterPos[i])
		}
	}
}

// -----------------------------------------------------------------------------

func TestGJRGARCHForecastConvergesToUnconditional(t *testing.T) {
	model, err := NewGJRGARCH(simulatedDataset(t, 500, 42))
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	points, err := model.Forecast(500)
	require.NoError(t, err)

	uncond := calib.GARCH.UnconditionalVariance
	last := points[len(points)-1].Variance
	assert.InDelta(t, uncond, last, 0.01*uncond)
}

// -----------------------------------------------------------------------------

func TestGJRGARCHDeterministic(t *testing.T) {
	data := simulatedDataset(t, 350, 23)

	m1, err := NewGJRGARCH(data)
	require.NoError(t, err)
	m2, err := NewGJRGARCH(data)
	require.NoError(t, err)

	c1, err := m1.Fit()
	require.NoError(t, err)
	c2, err := m2.Fit()
	require.NoError(t, err)

	assert.Equal(t, c1.GARCH.Omega, c2.GARCH.Omega)
	assert.Equal(t, c1.GARCH.Alpha, c2.GARCH.Alpha)
	assert.Equal(t, c1.GARCH.Gamma, c2.GARCH.Gamma)
	assert.Equal(t, c1.GARCH.Beta, c2.GARCH.Beta)
}

// -----------------------------------------------------------------------------

func TestGJRGARCHNotFitted(t *testing.T) {
	model, err := NewGJRGARCH(simulatedDataset(t, 300, 3))
	require.NoError(t, err)

	_, err = model.Forecast(1)
	assert.Error(t, err)
	_, err = model.ConditionalVariances([]float64{0.01}, []float64{1e-4})
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestGJRGARCHConstantPrices(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 42
	}
	data, err := NewDatasetFromPrices(prices, 365)
	require.NoError(t, err)

	model, err := NewGJRGARCH(data)
	require.NoError(t, err)
	calib, err := model.Fit()
	require.NoError(t, err)

	assert.False(t, math.IsNaN(calib.Diagnostics.AIC))
	points, err := model.Forecast(3)
	require.NoError(t, err)
	for _, p := range points {
		assert.Greater(t, p.Variance, 0.0)
	}
}
