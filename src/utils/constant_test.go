package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestLookupInterval(t *testing.T) {
	spec, ok := LookupInterval("4h")
	require.True(t, ok)
	assert.Equal(t, 250, spec.MinSamples)
	assert.Equal(t, 2190.0, spec.PeriodsPerYear)

	_, ok = LookupInterval("2h")
	assert.False(t, ok)
	_, ok = LookupInterval("")
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------

func TestIntervalSpecsMonotonicSampleFloor(t *testing.T) {
	// Shorter intervals demand more history.
	order := []string{"1d", "4h", "1h", "30m", "15m", "5m"}
	prev := 0
	for _, interval := range order {
		spec, ok := LookupInterval(interval)
		require.True(t, ok, interval)
		assert.Greater(t, spec.MinSamples, prev, interval)
		prev = spec.MinSamples
	}
}

// -----------------------------------------------------------------------------

func TestAnnualPeriods(t *testing.T) {
	assert.Equal(t, 2190.0, AnnualPeriods("4h", nil))
	assert.Equal(t, 365.0, AnnualPeriods("1d", nil))
	assert.Equal(t, 0.0, AnnualPeriods("2h", nil))

	// Daily data annualizes on trading days when a real calendar is attached,
	// and falls back to calendar days otherwise.
	assert.Equal(t, float64(TradingDaysPerYear), AnnualPeriods("1d", &TradingCalendar{}))
	assert.Equal(t, 365.0, AnnualPeriods("1d", &TradingCalendar{Fallback: true}))

	// Intraday intervals ignore the calendar.
	assert.Equal(t, 8760.0, AnnualPeriods("1h", &TradingCalendar{}))
}

// -----------------------------------------------------------------------------

func TestCalculateMaxDataPoints(t *testing.T) {
	assert.Equal(t, 2800, CalculateMaxDataPoints(7))
	assert.Equal(t, 400, CalculateMaxDataPoints(1))
	assert.Equal(t, 0, CalculateMaxDataPoints(0))
}
