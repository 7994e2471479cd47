package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/optimize"
)

// -----------------------------------------------------------------------------
// GJR-GARCH(1,1): plain GARCH plus an asymmetry term that fires only after
// negative returns:
//
//   sigma2_t = omega + alpha*innov_{t-1} + gamma*innov_{t-1}*I(r_{t-1}<0)
//              + beta*sigma2_{t-1}
//
// Persistence is alpha + gamma/2 + beta: the indicator is true half the time
// in expectation.
// -----------------------------------------------------------------------------

type GJRGARCH struct {
	data   *Dataset
	fitted bool

	omega, alpha, gamma, beta float64
	df                        float64

	variances []float64
	calib     models.MCalibration
}

// NewGJRGARCH builds an unfitted GJR-GARCH(1,1) model over the dataset.
func NewGJRGARCH(data *Dataset) (*GJRGARCH, error) {
	if data.NumReturns() < garchMinReturns {
		return nil, helpers.NewValidationError("gjr-garch needs at least %d returns, got %d", garchMinReturns, data.NumReturns())
	}
	return &GJRGARCH{data: data}, nil
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) Type() string { return TypeGJR }

// -----------------------------------------------------------------------------

func (m *GJRGARCH) Fit() (*models.MCalibration, error) {
	seed := m.data.SeedVariance

	objective := func(x []float64) float64 {
		omega, alpha, gamma, beta := x[0], x[1], x[2], x[3]
		// alpha+gamma >= 0 keeps the recursion non-negative even when the
		// asymmetry term is negative.
		if omega <= 0 || alpha < 0 || beta < 0 || alpha+gamma < 0 {
			return barrierPenalty
		}
		if alpha+gamma/2+beta >= maxPersistenceBound {
			return barrierPenalty
		}

		variances := gjrRecursion(omega, alpha, gamma, beta, seed, m.data.Innovations, m.data.Negative)
		if variances == nil {
			return barrierPenalty
		}

		_, ll := core.ProfileStudentTDF(m.data.Returns, variances)
		if math.IsInf(ll, -1) || math.IsNaN(ll) {
			return barrierPenalty
		}
		return -ll
	}

	x0 := []float64{0.1 * seed, 0.05, 0.08, 0.8}
	res := optimize.Minimize(objective, x0, optimize.DefaultOptions())

	m.omega, m.alpha, m.gamma, m.beta = res.X[0], res.X[1], res.X[2], res.X[3]
	m.variances = gjrRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, m.data.Innovations, m.data.Negative)
	if m.variances == nil {
		m.omega, m.alpha, m.gamma, m.beta = x0[0], x0[1], x0[2], x0[3]
		m.variances = gjrRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, m.data.Innovations, m.data.Negative)
		res.Converged = false
	}

	df, ll := core.ProfileStudentTDF(m.data.Returns, m.variances)
	m.df = df

	persistence := m.alpha + m.gamma/2 + m.beta
	m.calib = models.MCalibration{
		ModelType: TypeGJR,
		GARCH: &models.MGARCHParams{
			Omega:                 m.omega,
			Alpha:                 m.alpha,
			Beta:                  m.beta,
			Gamma:                 m.gamma,
			Persistence:           persistence,
			UnconditionalVariance: m.omega / (1 - persistence),
			AnnualizedVol:         annualizedVol(m.variances[len(m.variances)-1], m.data.PeriodsPerYear),
			DF:                    df,
		},
		Diagnostics: models.MDiagnostics{
			LogLikelihood: ll,
			AIC:           core.AIC(ll, 5),
			BIC:           core.BIC(ll, 5, m.data.NumReturns()),
			Iterations:    res.Iterations,
			Converged:     res.Converged,
		},
	}
	m.fitted = true

	return m.calibrationCopy(), nil
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) calibrationCopy() *models.MCalibration {
	out := m.calib
	params := *m.calib.GARCH
	out.GARCH = &params
	return &out
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) VarianceSeries() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGJR)
	}
	return copyFloats(m.variances), nil
}

// -----------------------------------------------------------------------------

// Forecast uses the actual last innovation and sign for the first step; past
// that the indicator takes its 1/2 expectation and the path contracts toward
// the unconditional variance at rate alpha + gamma/2 + beta.
func (m *GJRGARCH) Forecast(steps int) ([]models.MVolatilityPoint, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGJR)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	n := len(m.variances)
	persistence := m.alpha + m.gamma/2 + m.beta
	uncond := m.omega / (1 - persistence)

	lastInnov := m.data.Innovations[n-1]
	asym := 0.0
	if m.data.Negative[n-1] {
		asym = m.gamma * lastInnov
	}

	path := make([]float64, steps)
	path[0] = m.omega + m.alpha*lastInnov + asym + m.beta*m.variances[n-1]
	for k := 1; k < steps; k++ {
		path[k] = uncond + math.Pow(persistence, float64(k))*(path[0]-uncond)
	}

	return forecastPoints(path, minVarianceRatio*m.data.SeedVariance, m.data.PeriodsPerYear), nil
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) Persistence() float64 {
	return m.alpha + m.gamma/2 + m.beta
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) StandardizedResiduals() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGJR)
	}
	return standardize(m.data.Returns, m.variances), nil
}

// -----------------------------------------------------------------------------

func (m *GJRGARCH) ConditionalVariances(returns, innovations []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeGJR)
	}
	if len(returns) == 0 || len(returns) != len(innovations) {
		return nil, helpers.NewValidationError("returns/innovations length mismatch: %d vs %d", len(returns), len(innovations))
	}

	seed := sanitizeSeed(core.SampleVariance(returns))
	out := gjrRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, innovations, negativeMask(returns))
	if out == nil {
		return nil, helpers.NewValidationError("gjr-garch recursion degenerated on supplied series")
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func gjrRecursion(omega, alpha, gamma, beta, seed float64, innovations []float64, negative []bool) []float64 {
	n := len(innovations)
	variances := make([]float64, n)
	variances[0] = seed

	for t := 1; t < n; t++ {
		v := omega + alpha*innovations[t-1] + beta*variances[t-1]
		if negative[t-1] {
			v += gamma * innovations[t-1]
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		variances[t] = v
	}
	return variances
}
