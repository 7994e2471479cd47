package models

import "time"

// -----------------------------------------------------------------------------

// MPrediction is the orchestrator's output: a log-normal price corridor
// around the current price implied by the fitted conditional sigma.
// Sigma is a single-step or cumulative multi-step standard deviation of
// log returns, so the corridor is asymmetric in price space on purpose.
type MPrediction struct {
	Symbol        string    `json:"symbol,omitempty"`
	Interval      string    `json:"interval"`
	CurrentPrice  float64   `json:"current_price"`
	Sigma         float64   `json:"sigma"`
	Move          float64   `json:"move"`
	UpperPrice    float64   `json:"upper_price"`
	LowerPrice    float64   `json:"lower_price"`
	ModelType     string    `json:"model_type"`
	Reliable      bool      `json:"reliable"`
	Confidence    float64   `json:"confidence"`
	Steps         int       `json:"steps"`
	SkippedModels []string  `json:"skipped_models,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// -----------------------------------------------------------------------------

// MBacktestReport is the walk-forward validation result: the fraction of
// out-of-sample moves that landed inside the one-step corridor.
type MBacktestReport struct {
	Symbol          string  `json:"symbol,omitempty"`
	Interval        string  `json:"interval"`
	ModelType       string  `json:"model_type"`
	TrainSize       int     `json:"train_size"`
	TestSize        int     `json:"test_size"`
	Hits            int     `json:"hits"`
	HitRate         float64 `json:"hit_rate"`
	RequiredPercent float64 `json:"required_percent"`
	Passed          bool    `json:"passed"`
}
