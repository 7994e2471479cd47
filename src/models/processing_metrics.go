package models

// MProcessingMetrics represents the performance metrics for the forecast pipeline.
type MProcessingMetrics struct {
	ForecastTimeSeconds float64 `json:"forecast_time_seconds"`
	ValidSymbols        int     `json:"valid_symbols"`
	ModelsFitted        int     `json:"models_fitted"`
}
