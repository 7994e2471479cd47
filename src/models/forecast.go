package models

// MVolatilityPoint is one step of a variance forecast. Annualized is the
// conventional percentage figure: sqrt(variance * periodsPerYear) * 100.
type MVolatilityPoint struct {
	Variance   float64 `json:"variance"`
	Volatility float64 `json:"volatility"`
	Annualized float64 `json:"annualized"`
}
