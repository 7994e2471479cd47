package utils

import "math"

// -----------------------------------------------------------------------------

// Constants for data retention and memory management.
// Assuming standard trading day of 6.5 hours * 60 minutes = 390 points.
// Rounded up to 400 for safety.
const (
	DefaultRetentionDays = 7
)

// -----------------------------------------------------------------------------

// IntervalSpec gates an interval: the minimum candle count required before
// any fitting starts, and the periods-per-year factor used for
// annualization.
type IntervalSpec struct {
	MinSamples     int
	PeriodsPerYear float64
}

// TradingDaysPerYear is the equity convention used when a daily interval is
// annualized against a trading calendar instead of the calendar year.
const TradingDaysPerYear = 252

// IntervalSpecs is the closed interval enumeration. Shorter intervals need
// more candles: high-frequency noise requires a longer history before a
// variance recursion is worth fitting.
var IntervalSpecs = map[string]IntervalSpec{
	"5m":  {MinSamples: 500, PeriodsPerYear: 105120},
	"15m": {MinSamples: 400, PeriodsPerYear: 35040},
	"30m": {MinSamples: 350, PeriodsPerYear: 17520},
	"1h":  {MinSamples: 300, PeriodsPerYear: 8760},
	"4h":  {MinSamples: 250, PeriodsPerYear: 2190},
	"1d":  {MinSamples: 150, PeriodsPerYear: 365},
}

// -----------------------------------------------------------------------------

// LookupInterval returns the spec for a supported interval tag.
func LookupInterval(interval string) (IntervalSpec, bool) {
	spec, ok := IntervalSpecs[interval]
	return spec, ok
}

// -----------------------------------------------------------------------------

// AnnualPeriods returns the periods-per-year factor for the interval. Daily
// data annualizes on trading days when a real exchange calendar is attached,
// on calendar days otherwise.
func AnnualPeriods(interval string, cal *TradingCalendar) float64 {
	spec, ok := IntervalSpecs[interval]
	if !ok {
		return 0
	}
	if interval == "1d" && cal != nil && !cal.Fallback {
		return TradingDaysPerYear
	}
	return spec.PeriodsPerYear
}

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints calculates max data points based on retention days.
// approx 400 points per day (covering 6.5h market hours)
func CalculateMaxDataPoints(days int) int {
	return int(math.Ceil(float64(days) * 400))
}
