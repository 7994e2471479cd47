package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestLjungBoxDegenerateSeries(t *testing.T) {
	// No autocorrelation evidence can be extracted from these.
	assert.Equal(t, 1.0, LjungBox(nil, 10).PValue)
	assert.Equal(t, 1.0, LjungBox([]float64{1, 2}, 10).PValue)
	assert.Equal(t, 1.0, LjungBox([]float64{5, 5, 5, 5, 5, 5}, 3).PValue)
	assert.Equal(t, 1.0, LjungBox([]float64{1, 2, 3}, 0).PValue)
}

// -----------------------------------------------------------------------------

func TestLjungBoxPerfectAutocorrelation(t *testing.T) {
	// Strict alternation has rho_1 ~ -1: overwhelming evidence.
	series := make([]float64, 100)
	for i := range series {
		if i%2 == 0 {
			series[i] = 1
		} else {
			series[i] = -1
		}
	}

	res := LjungBox(series, 5)
	assert.Greater(t, res.Statistic, 50.0)
	assert.Less(t, res.PValue, 0.001)
}

// -----------------------------------------------------------------------------

func TestLjungBoxLowFrequencyNoise(t *testing.T) {
	// A deterministic low-discrepancy sequence: weak serial structure, the
	// test should not reject at conventional levels.
	series := make([]float64, 200)
	for i := range series {
		v := float64(i) * 0.6180339887498949
		series[i] = v - math.Floor(v) - 0.5
	}

	res := LjungBox(series, 10)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
	assert.False(t, math.IsNaN(res.Statistic))
}

// -----------------------------------------------------------------------------

func TestLjungBoxCapsLag(t *testing.T) {
	series := []float64{0.1, -0.2, 0.15, 0.05, -0.1}

	// maxLag beyond n-2 is capped rather than crashing.
	capped := LjungBox(series, 50)
	explicit := LjungBox(series, len(series)-2)
	assert.Equal(t, explicit.Statistic, capped.Statistic)
	assert.Equal(t, explicit.PValue, capped.PValue)
}
