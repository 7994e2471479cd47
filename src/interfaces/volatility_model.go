package interfaces

import "vol-observer/src/models"

// -----------------------------------------------------------------------------
// IVolatilityModel is the uniform fit/forecast contract shared by the whole
// conditional-variance family (GARCH, EGARCH, GJR-GARCH, HAR-RV, NoVaS).
// A model must be fitted before any accessor below Fit is called.
// -----------------------------------------------------------------------------

type IVolatilityModel interface {

	// -----------------------------------------------------------------------------

	// Type returns the model tag ("garch", "egarch", ...).
	Type() string

	// -----------------------------------------------------------------------------

	// Fit estimates the model and returns a fresh, immutable calibration.
	// Non-convergence is reported via Diagnostics.Converged, never as an error.
	Fit() (*models.MCalibration, error)

	// -----------------------------------------------------------------------------

	// VarianceSeries returns the fitted per-period conditional variances,
	// aligned one-to-one with the return series. Every entry is strictly
	// positive and finite.
	VarianceSeries() ([]float64, error)

	// -----------------------------------------------------------------------------

	// Forecast projects the conditional variance `steps` periods ahead.
	// Rejects non-positive step counts.
	Forecast(steps int) ([]models.MVolatilityPoint, error)

	// -----------------------------------------------------------------------------

	// Persistence reports how slowly the fitted variance decays back to its
	// long-run level.
	Persistence() float64

	// -----------------------------------------------------------------------------

	// StandardizedResiduals returns r_t / sigma_t for the fitted series.
	StandardizedResiduals() ([]float64, error)

	// -----------------------------------------------------------------------------

	// ConditionalVariances rolls the fitted parameters over an arbitrary
	// aligned return/innovation pair, for walk-forward validation.
	ConditionalVariances(returns, innovations []float64) ([]float64, error)
}
