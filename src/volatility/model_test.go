package volatility

import (
	"math"
	"math/rand"
	"testing"

	"vol-observer/src/helpers"
	"vol-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Shared fixtures: a deterministic GARCH(1,1) candle simulator so every model
// test works against data with known volatility dynamics.
// -----------------------------------------------------------------------------

const (
	simOmega = 5e-6
	simAlpha = 0.08
	simBeta  = 0.85
)

// simulateCandles generates n OHLC candles whose close-to-close returns
// follow a GARCH(1,1) with the sim constants above. Deterministic per seed.
func simulateCandles(n int, seed int64) []models.MCandle {
	rng := rand.New(rand.NewSource(seed))

	variance := simOmega / (1 - simAlpha - simBeta)
	price := 100.0
	ts := int64(1700000000)

	candles := make([]models.MCandle, n)
	for i := 0; i < n; i++ {
		r := rng.NormFloat64() * math.Sqrt(variance)
		open := price
		price = open * math.Exp(r)

		// Intrabar range proportional to the step volatility.
		span := math.Sqrt(variance) * (0.3 + 0.2*math.Abs(rng.NormFloat64()))
		high := math.Max(open, price) * math.Exp(span)
		low := math.Min(open, price) * math.Exp(-span)

		candles[i] = models.MCandle{
			Symbol:    "SIM",
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1000,
			Timestamp: ts,
		}
		ts += 4 * 3600

		variance = simOmega + simAlpha*r*r + simBeta*variance
	}
	return candles
}

// constantCandles is the fully degenerate input: no movement at all.
func constantCandles(n int) []models.MCandle {
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

func simulatedDataset(t *testing.T, n int, seed int64) *Dataset {
	t.Helper()
	data, err := NewDatasetFromCandles(simulateCandles(n, seed), 2190)
	require.NoError(t, err)
	return data
}

// -----------------------------------------------------------------------------

func TestNewDatasetFromCandles(t *testing.T) {
	candles := simulateCandles(100, 1)

	data, err := NewDatasetFromCandles(candles, 2190)
	require.NoError(t, err)

	assert.Len(t, data.Returns, 99)
	assert.Len(t, data.Innovations, 99)
	assert.Len(t, data.Negative, 99)
	assert.Equal(t, ModeRangeProxy, data.Mode)
	assert.Equal(t, 2190.0, data.PeriodsPerYear)
	assert.Greater(t, data.SeedVariance, 0.0)

	for t2, r := range data.Returns {
		assert.Equal(t, r < 0, data.Negative[t2])
		assert.Greater(t, data.Innovations[t2], 0.0)
	}
}

func TestNewDatasetFromCandlesRejectsBadInput(t *testing.T) {
	_, err := NewDatasetFromCandles(simulateCandles(1, 1), 2190)
	assert.Error(t, err)

	bad := simulateCandles(30, 1)
	bad[10].Close = -5
	_, err = NewDatasetFromCandles(bad, 2190)
	require.Error(t, err)

	var validation *helpers.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestNewDatasetFromCandlesConstantSeries(t *testing.T) {
	data, err := NewDatasetFromCandles(constantCandles(50), 365)
	require.NoError(t, err)

	// Zero sample variance is floored, never zero.
	assert.Greater(t, data.SeedVariance, 0.0)
	for _, r := range data.Returns {
		assert.Equal(t, 0.0, r)
	}
}

// -----------------------------------------------------------------------------

func TestNewDatasetFromPrices(t *testing.T) {
	prices := []float64{100, 101, 99.5, 102, 101.2, 103, 102.5}

	data, err := NewDatasetFromPrices(prices, 365)
	require.NoError(t, err)

	assert.Len(t, data.Returns, 6)
	assert.Equal(t, ModeSquaredReturn, data.Mode)
	for i, r := range data.Returns {
		assert.InDelta(t, r*r, data.Innovations[i], 1e-18)
	}
}

func TestNewDatasetFromPricesRejectsBadInput(t *testing.T) {
	_, err := NewDatasetFromPrices([]float64{100}, 365)
	assert.Error(t, err)

	_, err = NewDatasetFromPrices([]float64{100, 0, 101}, 365)
	assert.Error(t, err)

	_, err = NewDatasetFromPrices([]float64{100, math.NaN(), 101}, 365)
	assert.Error(t, err)

	_, err = NewDatasetFromPrices([]float64{100, math.Inf(1), 101}, 365)
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestDatasetScaleInvariance(t *testing.T) {
	prices := make([]float64, 120)
	rng := rand.New(rand.NewSource(7))
	prices[0] = 50
	for i := 1; i < len(prices); i++ {
		prices[i] = prices[i-1] * math.Exp(0.01*rng.NormFloat64())
	}

	scaled := make([]float64, len(prices))
	for i, p := range prices {
		scaled[i] = p * 1000
	}

	base, err := NewDatasetFromPrices(prices, 365)
	require.NoError(t, err)
	big, err := NewDatasetFromPrices(scaled, 365)
	require.NoError(t, err)

	// Log returns depend on ratios only.
	for i := range base.Returns {
		assert.InDelta(t, base.Returns[i], big.Returns[i], 1e-12)
	}
	assert.InDelta(t, base.SeedVariance, big.SeedVariance, base.SeedVariance*1e-9)
}
