package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/optimize"
)

// -----------------------------------------------------------------------------
// EGARCH(1,1) in log-variance, so positivity holds without sign constraints:
//
//   ln sigma2_t = omega + alpha*(magnitude_{t-1} - E|Z|) + gamma*z_{t-1}
//                 + beta*ln sigma2_{t-1}
//
// gamma < 0 is the classic leverage effect. The magnitude term is |z| with
// price-only input, or sqrt(RV/sigma2) with candle input; the directional
// z term always comes from the actual standardized residual.
// -----------------------------------------------------------------------------

// Log-variance is clamped every step so pathological candidates cannot
// overflow exp().
const (
	logVarMin = -50.0
	logVarMax = 50.0
)

// -----------------------------------------------------------------------------

type EGARCH struct {
	data   *Dataset
	fitted bool

	omega, alpha, gamma, beta float64
	df                        float64

	variances []float64
	calib     models.MCalibration
}

// NewEGARCH builds an unfitted EGARCH(1,1) model over the dataset.
func NewEGARCH(data *Dataset) (*EGARCH, error) {
	if data.NumReturns() < garchMinReturns {
		return nil, helpers.NewValidationError("egarch needs at least %d returns, got %d", garchMinReturns, data.NumReturns())
	}
	return &EGARCH{data: data}, nil
}

// -----------------------------------------------------------------------------

func (m *EGARCH) Type() string { return TypeEGARCH }

// -----------------------------------------------------------------------------

func (m *EGARCH) Fit() (*models.MCalibration, error) {
	seed := m.data.SeedVariance

	objective := func(x []float64) float64 {
		omega, alpha, gamma, beta := x[0], x[1], x[2], x[3]
		if math.Abs(beta) >= maxPersistenceBound {
			return barrierPenalty
		}

		variances := egarchRecursion(omega, alpha, gamma, beta, seed, m.data.Returns, m.data.Innovations, m.data.Mode)
		if variances == nil {
			return barrierPenalty
		}

		_, ll := core.ProfileStudentTDF(m.data.Returns, variances)
		if math.IsInf(ll, -1) || math.IsNaN(ll) {
			return barrierPenalty
		}
		return -ll
	}

	beta0 := 0.9
	x0 := []float64{math.Log(seed) * (1 - beta0), 0.1, -0.05, beta0}
	res := optimize.Minimize(objective, x0, optimize.DefaultOptions())

	m.omega, m.alpha, m.gamma, m.beta = res.X[0], res.X[1], res.X[2], res.X[3]
	m.variances = egarchRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, m.data.Returns, m.data.Innovations, m.data.Mode)
	if m.variances == nil {
		m.omega, m.alpha, m.gamma, m.beta = x0[0], x0[1], x0[2], x0[3]
		m.variances = egarchRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, m.data.Returns, m.data.Innovations, m.data.Mode)
		res.Converged = false
	}

	df, ll := core.ProfileStudentTDF(m.data.Returns, m.variances)
	m.df = df

	m.calib = models.MCalibration{
		ModelType: TypeEGARCH,
		GARCH: &models.MGARCHParams{
			Omega:                 m.omega,
			Alpha:                 m.alpha,
			Beta:                  m.beta,
			Gamma:                 m.gamma,
			Persistence:           math.Abs(m.beta),
			UnconditionalVariance: math.Exp(clampLogVar(m.omega / (1 - m.beta))),
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

func (m *EGARCH) calibrationCopy() *models.MCalibration {
	out := m.calib
	params := *m.calib.GARCH
	out.GARCH = &params
	return &out
}

// -----------------------------------------------------------------------------

func (m *EGARCH) VarianceSeries() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeEGARCH)
	}
	return copyFloats(m.variances), nil
}

// -----------------------------------------------------------------------------

// Forecast folds the actual last residual into the first step; beyond that
// the shock terms take their zero expectation and the log-variance contracts
// toward omega/(1-beta) at rate |beta|.
func (m *EGARCH) Forecast(steps int) ([]models.MVolatilityPoint, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeEGARCH)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	n := len(m.variances)
	lastVar := m.variances[n-1]
	z := m.data.Returns[n-1] / math.Sqrt(lastVar)
	mag := egarchMagnitude(z, m.data.Innovations[n-1], lastVar, m.data.Mode)

	path := make([]float64, steps)
	logVar := clampLogVar(m.omega + m.alpha*(mag-core.ExpectedAbsNormal) + m.gamma*z + m.beta*math.Log(lastVar))
	path[0] = math.Exp(logVar)

	for k := 1; k < steps; k++ {
		logVar = clampLogVar(m.omega + m.beta*logVar)
		path[k] = math.Exp(logVar)
	}

	return forecastPoints(path, minVarianceRatio*m.data.SeedVariance, m.data.PeriodsPerYear), nil
}

// -----------------------------------------------------------------------------

func (m *EGARCH) Persistence() float64 {
	return math.Abs(m.beta)
}

// -----------------------------------------------------------------------------

func (m *EGARCH) StandardizedResiduals() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeEGARCH)
	}
	return standardize(m.data.Returns, m.variances), nil
}

// -----------------------------------------------------------------------------

func (m *EGARCH) ConditionalVariances(returns, innovations []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeEGARCH)
	}
	if len(returns) == 0 || len(returns) != len(innovations) {
		return nil, helpers.NewValidationError("returns/innovations length mismatch: %d vs %d", len(returns), len(innovations))
	}

	seed := sanitizeSeed(core.SampleVariance(returns))
	out := egarchRecursion(m.omega, m.alpha, m.gamma, m.beta, seed, returns, innovations, m.data.Mode)
	if out == nil {
		return nil, helpers.NewValidationError("egarch recursion degenerated on supplied series")
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func egarchRecursion(omega, alpha, gamma, beta, seed float64, returns, innovations []float64, mode InnovationMode) []float64 {
	n := len(returns)
	variances := make([]float64, n)
	variances[0] = seed
	logVar := math.Log(seed)

	for t := 1; t < n; t++ {
		vPrev := variances[t-1]
		z := returns[t-1] / math.Sqrt(vPrev)
		mag := egarchMagnitude(z, innovations[t-1], vPrev, mode)

		logVar = clampLogVar(omega + alpha*(mag-core.ExpectedAbsNormal) + gamma*z + beta*logVar)
		v := math.Exp(logVar)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		variances[t] = v
	}
	return variances
}

// -----------------------------------------------------------------------------

// egarchMagnitude is |z| with squared-return input, or the range-proxy
// analogue sqrt(RV/sigma2) with candle input.
func egarchMagnitude(z, innovation, variance float64, mode InnovationMode) float64 {
	if mode == ModeRangeProxy && innovation > 0 {
		return math.Sqrt(innovation / variance)
	}
	return math.Abs(z)
}

func clampLogVar(logVar float64) float64 {
	if logVar < logVarMin {
		return logVarMin
	}
	if logVar > logVarMax {
		return logVarMax
	}
	return logVar
}
