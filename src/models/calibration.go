package models

import "time"

// -----------------------------------------------------------------------------
// Fitted parameter records, one variant per model family.
// -----------------------------------------------------------------------------

// MGARCHParams holds the fitted parameters of the recursion models
// (GARCH, EGARCH, GJR-GARCH). Gamma is zero for plain GARCH, the leverage
// coefficient for EGARCH and the asymmetry coefficient for GJR-GARCH.
type MGARCHParams struct {
	Omega                 float64 `json:"omega"`
	Alpha                 float64 `json:"alpha"`
	Beta                  float64 `json:"beta"`
	Gamma                 float64 `json:"gamma"`
	Persistence           float64 `json:"persistence"`
	UnconditionalVariance float64 `json:"unconditional_variance"`
	AnnualizedVol         float64 `json:"annualized_vol"`
	DF                    float64 `json:"df"`
}

// MHARParams holds the HAR-RV regression coefficients (short/medium/long
// rolling means of realized variance) plus the refined Student-t df.
type MHARParams struct {
	Intercept     float64 `json:"intercept"`
	BetaShort     float64 `json:"beta_short"`
	BetaMedium    float64 `json:"beta_medium"`
	BetaLong      float64 `json:"beta_long"`
	AnnualizedVol float64 `json:"annualized_vol"`
	DF            float64 `json:"df"`
}

// MNoVaSParams holds the distribution-free lag weights found by the D²
// search plus the 2-parameter OLS rescaling applied on top of them.
type MNoVaSParams struct {
	Weights       []float64  `json:"weights"`
	Rescale       [2]float64 `json:"rescale"`
	AnnualizedVol float64    `json:"annualized_vol"`
	DF            float64    `json:"df"`
}

// -----------------------------------------------------------------------------

// MDiagnostics carries the fit quality metrics shared by every model.
// Converged=false is a soft failure: the parameters are still a best-effort
// point estimate, and it is the caller's job to decide whether to trust them.
type MDiagnostics struct {
	LogLikelihood float64 `json:"log_likelihood"`
	AIC           float64 `json:"aic"`
	BIC           float64 `json:"bic"`
	RSquared      float64 `json:"r_squared,omitempty"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
}

// -----------------------------------------------------------------------------

// MCalibration is the immutable result of one fit call. Exactly one of the
// parameter variants is set, matching ModelType.
type MCalibration struct {
	ModelType   string        `json:"model_type"`
	GARCH       *MGARCHParams `json:"garch,omitempty"`
	HAR         *MHARParams   `json:"har,omitempty"`
	NoVaS       *MNoVaSParams `json:"novas,omitempty"`
	Diagnostics MDiagnostics  `json:"diagnostics"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}
