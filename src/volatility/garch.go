package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/optimize"
)

// -----------------------------------------------------------------------------
// GARCH(1,1): sigma2_t = omega + alpha*innovation_{t-1} + beta*sigma2_{t-1}.
// Stationarity requires alpha+beta < 1; the unconditional variance is
// omega / (1 - alpha - beta).
// -----------------------------------------------------------------------------

const garchMinReturns = 20

// maxPersistenceBound keeps candidate parameter sets strictly inside the
// stationary region during estimation.
const maxPersistenceBound = 0.9999

// -----------------------------------------------------------------------------

type GARCH struct {
	data   *Dataset
	fitted bool

	omega, alpha, beta float64
	df                 float64

	variances []float64
	calib     models.MCalibration
}

// NewGARCH builds an unfitted GARCH(1,1) model over the dataset.
func NewGARCH(data *Dataset) (*GARCH, error) {
	if data.NumReturns() < garchMinReturns {
		return nil, helpers.NewValidationError("garch needs at least %d returns, got %d", garchMinReturns, data.NumReturns())
	}
	return &GARCH{data: data}, nil
}

// -----------------------------------------------------------------------------

func (m *GARCH) Type() string { return TypeGARCH }

// -----------------------------------------------------------------------------

// Fit estimates (omega, alpha, beta) by Student-t maximum likelihood, with
// the degrees of freedom profiled over a fixed grid at every evaluation so
// the optimizer only ever walks the 3-dimensional recursion space.
func (m *GARCH) Fit() (*models.MCalibration, error) {
	seed := m.data.SeedVariance

	objective := func(x []float64) float64 {
		omega, alpha, beta := x[0], x[1], x[2]
		if omega <= 0 || alpha < 0 || beta < 0 || alpha+beta >= maxPersistenceBound {
			return barrierPenalty
		}

		variances := garchRecursion(omega, alpha, beta, seed, m.data.Innovations)
		if variances == nil {
			return barrierPenalty
		}

		_, ll := core.ProfileStudentTDF(m.data.Returns, variances)
		if math.IsInf(ll, -1) || math.IsNaN(ll) {
			return barrierPenalty
		}
		return -ll
	}

	x0 := []float64{0.1 * seed, 0.1, 0.8}
	res := optimize.Minimize(objective, x0, optimize.DefaultOptions())

	m.omega, m.alpha, m.beta = res.X[0], res.X[1], res.X[2]
	m.variances = garchRecursion(m.omega, m.alpha, m.beta, seed, m.data.Innovations)
	if m.variances == nil {
		// Barrier never let a feasible vertex go, fall back to the start.
		m.omega, m.alpha, m.beta = x0[0], x0[1], x0[2]
		m.variances = garchRecursion(m.omega, m.alpha, m.beta, seed, m.data.Innovations)
		res.Converged = false
	}

	df, ll := core.ProfileStudentTDF(m.data.Returns, m.variances)
	m.df = df

	persistence := m.alpha + m.beta
	m.calib = models.MCalibration{
		ModelType: TypeGARCH,
		GARCH: &models.MGARCHParams{
			Omega:                 m.omega,
			Alpha:                 m.alpha,
			Beta:                  m.beta,
			Persistence:           persistence,
			UnconditionalVariance: m.omega / (1 - persistence),
			AnnualizedVol:         annualizedVol(m.variances[len(m.variances)-1], m.data.PeriodsPerYear),
			DF:                    df,
		},
		Diagnostics: models.MDiagnostics{
			LogLikelihood: ll,
			AIC:           core.AIC(ll, 4),
			BIC:           core.BIC(ll, 4, m.data.NumReturns()),
			Iterations:    res.Iterations,
			Converged:     res.Converged,
		},
	}
	m.fitted = true

	return m.calibrationCopy(), nil
}

// -----------------------------------------------------------------------------

func (m *GARCH) calibrationCopy() *models.MCalibration {
	out := m.calib
	params := *m.calib.GARCH
	out.GARCH = &params
	return &out
}

// -----------------------------------------------------------------------------

func (m *GARCH) VarianceSeries() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGARCH)
	}
	return copyFloats(m.variances), nil
}

// -----------------------------------------------------------------------------

// Forecast reuses the last observed innovation for the first step, then
// substitutes its expectation, collapsing the recursion into a geometric
// contraction toward the unconditional variance at rate alpha+beta.
func (m *GARCH) Forecast(steps int) ([]models.MVolatilityPoint, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGARCH)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	n := len(m.variances)
	persistence := m.alpha + m.beta
	uncond := m.omega / (1 - persistence)

	path := make([]float64, steps)
	path[0] = m.omega + m.alpha*m.data.Innovations[n-1] + m.beta*m.variances[n-1]
	for k := 1; k < steps; k++ {
		path[k] = uncond + math.Pow(persistence, float64(k))*(path[0]-uncond)
	}

	return forecastPoints(path, minVarianceRatio*m.data.SeedVariance, m.data.PeriodsPerYear), nil
}

// -----------------------------------------------------------------------------

func (m *GARCH) Persistence() float64 {
	return m.alpha + m.beta
}

// -----------------------------------------------------------------------------

func (m *GARCH) StandardizedResiduals() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGARCH)
	}
	return standardize(m.data.Returns, m.variances), nil
}

// -----------------------------------------------------------------------------

// ConditionalVariances rolls the fitted parameters over a fresh
// return/innovation pair without refitting.
func (m *GARCH) ConditionalVariances(returns, innovations []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGARCH)
	}
	if len(returns) == 0 || len(returns) != len(innovations) {
		return nil, helpers.NewValidationError("returns/innovations length mismatch: %d vs %d", len(returns), len(innovations))
	}

	seed := sanitizeSeed(core.SampleVariance(returns))
	out := garchRecursion(m.omega, m.alpha, m.beta, seed, innovations)
	if out == nil {
		return nil, helpers.NewValidationError("garch recursion degenerated on supplied series")
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// garchRecursion runs the variance recursion from the seed. Returns nil if
// any step produces a non-positive or non-finite variance.
func garchRecursion(omega, alpha, beta, seed float64, innovations []float64) []float64 {
	n := len(innovations)
	variances := make([]float64, n)
	variances[0] = seed

	for t := 1; t < n; t++ {
		v := omega + alpha*innovations[t-1] + beta*variances[t-1]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		variances[t] = v
	}
	return variances
}

// -----------------------------------------------------------------------------

// standardize returns r_t / sigma_t as a fresh slice.
func standardize(returns, variances []float64) []float64 {
	out := make([]float64, len(returns))
	for t := range returns {
		out[t] = returns[t] / math.Sqrt(variances[t])
	}
	return out
}
