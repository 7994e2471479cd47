package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/optimize"
)

// -----------------------------------------------------------------------------
// NoVaS (normalizing and variance stabilizing): a model-free alternative to
// the parametric recursions.
//
// Stage 1 searches for ARCH-style lag weights that make the standardized
// series r_t/sigma_t look most Gaussian-shaped, minimizing
// D^2 = skewness^2 + (kurtosis-3)^2. Weights are non-negative with lag mass
// below 1, enforced by an absolute-value reparameterization plus a penalty;
// the remaining mass sits on the unconditional variance.
//
// Stage 2 rescales the resulting proxy against realized variance with a
// 2-parameter OLS, because D^2-optimal weights are tuned for normality, not
// forecast accuracy. Both stages' parameters are kept in the result.
// -----------------------------------------------------------------------------

const (
	novasLags      = 10
	novasMinExtra  = 20
	novasRestarts  = 5
	novasMassBound = 0.999
)

// -----------------------------------------------------------------------------

type NoVaS struct {
	data   *Dataset
	fitted bool

	weights []float64  // non-negative lag weights, len = novasLags
	rescale [2]float64 // stage-2 OLS: v = rescale[0] + rescale[1]*proxy
	uncond  float64
	df      float64

	variances []float64
	calib     models.MCalibration
}

// NewNoVaS builds an unfitted NoVaS model over the dataset.
func NewNoVaS(data *Dataset) (*NoVaS, error) {
	min := novasLags + novasMinExtra
	if data.NumReturns() < min {
		return nil, helpers.NewValidationError("novas needs at least %d returns, got %d", min, data.NumReturns())
	}
	return &NoVaS{data: data}, nil
}

// -----------------------------------------------------------------------------

func (m *NoVaS) Type() string { return TypeNoVaS }

// -----------------------------------------------------------------------------

func (m *NoVaS) Fit() (*models.MCalibration, error) {
	rv := m.data.Innovations
	returns := m.data.Returns
	m.uncond = sanitizeSeed(core.SampleVariance(returns))

	objective := func(u []float64) float64 {
		weights, mass := absWeights(u)
		if mass >= novasMassBound {
			return barrierPenalty * (1 + mass)
		}

		proxy := novasProxy(weights, mass, m.uncond, rv)
		standardized := make([]float64, len(returns))
		for t := range returns {
			standardized[t] = returns[t] / math.Sqrt(proxy[t])
		}

		skew, kurt := core.SkewnessKurtosis(standardized)
		excess := kurt - 3
		return skew*skew + excess*excess
	}

	// Flat starting weights with total mass 0.8.
	x0 := make([]float64, novasLags)
	for i := range x0 {
		x0[i] = 0.8 / novasLags
	}
	res := optimize.MinimizeMultiStart(objective, x0, optimize.DefaultOptions(), novasRestarts)

	weights, mass := absWeights(res.X)
	m.weights = weights

	proxy := novasProxy(weights, mass, m.uncond, rv)
	m.rescale = rescaleAgainstRealized(proxy, rv)

	floor := minVarianceRatio * m.data.SeedVariance
	m.variances = applyRescale(proxy, m.rescale, floor)

	df, ll := core.ProfileStudentTDF(returns, m.variances)
	m.df = df

	numParams := novasLags + 3 // weights + 2 rescale + df
	m.calib = models.MCalibration{
		ModelType: TypeNoVaS,
		NoVaS: &models.MNoVaSParams{
			Weights:       copyFloats(weights),
			Rescale:       m.rescale,
			AnnualizedVol: annualizedVol(m.variances[len(m.variances)-1], m.data.PeriodsPerYear),
			DF:            df,
		},
		Diagnostics: models.MDiagnostics{
			LogLikelihood: ll,
			AIC:           core.AIC(ll, numParams),
			BIC:           core.BIC(ll, numParams, m.data.NumReturns()),
			Iterations:    res.Iterations,
			Converged:     res.Converged,
		},
	}
	m.fitted = true

	return m.calibrationCopy(), nil
}

// -----------------------------------------------------------------------------

func (m *NoVaS) calibrationCopy() *models.MCalibration {
	out := m.calib
	params := *m.calib.NoVaS
	params.Weights = copyFloats(m.calib.NoVaS.Weights)
	out.NoVaS = &params
	return &out
}

// -----------------------------------------------------------------------------

func (m *NoVaS) VarianceSeries() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeNoVaS)
	}
	return copyFloats(m.variances), nil
}

// -----------------------------------------------------------------------------

// Forecast feeds each predicted variance back into the lag window as if it
// had been realized, recursively extending the history.
func (m *NoVaS) Forecast(steps int) ([]models.MVolatilityPoint, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeNoVaS)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	mass := weightMass(m.weights)
	floor := minVarianceRatio * m.data.SeedVariance
	history := copyFloats(m.data.Innovations)
	path := make([]float64, steps)

	for k := 0; k < steps; k++ {
		proxy := (1 - mass) * m.uncond
		t := len(history)
		for i, w := range m.weights {
			proxy += w * history[t-1-i]
		}

		v := m.rescale[0] + m.rescale[1]*proxy
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		path[k] = v
		history = append(history, v)
	}

	return forecastPoints(path, floor, m.data.PeriodsPerYear), nil
}

// -----------------------------------------------------------------------------

// Persistence is the total lag-weight mass.
func (m *NoVaS) Persistence() float64 {
	return weightMass(m.weights)
}

// -----------------------------------------------------------------------------

func (m *NoVaS) StandardizedResiduals() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeNoVaS)
	}
	return standardize(m.data.Returns, m.variances), nil
}

// -----------------------------------------------------------------------------

func (m *NoVaS) ConditionalVariances(returns, innovations []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeNoVaS)
	}
	if len(returns) == 0 || len(returns) != len(innovations) {
		return nil, helpers.NewValidationError("returns/innovations length mismatch: %d vs %d", len(returns), len(innovations))
	}

	uncond := sanitizeSeed(core.SampleVariance(returns))
	proxy := novasProxy(m.weights, weightMass(m.weights), uncond, innovations)
	return applyRescale(proxy, m.rescale, minVarianceRatio*uncond), nil
}

// -----------------------------------------------------------------------------

// absWeights maps the unconstrained optimizer vector to non-negative
// weights and their total mass.
func absWeights(u []float64) ([]float64, float64) {
	weights := make([]float64, len(u))
	mass := 0.0
	for i, v := range u {
		weights[i] = math.Abs(v)
		mass += weights[i]
	}
	return weights, mass
}

func weightMass(weights []float64) float64 {
	mass := 0.0
	for _, w := range weights {
		mass += w
	}
	return mass
}

// -----------------------------------------------------------------------------

// novasProxy builds the weighted variance proxy; the warmup region inside
// the first lag window sits on the unconditional variance.
func novasProxy(weights []float64, mass, uncond float64, rv []float64) []float64 {
	n := len(rv)
	p := len(weights)
	out := make([]float64, n)

	base := (1 - mass) * uncond
	for t := 0; t < n; t++ {
		if t < p {
			out[t] = uncond
			continue
		}
		v := base
		for i, w := range weights {
			v += w * rv[t-1-i]
		}
		if v <= 0 || math.IsNaN(v) {
			v = uncond
		}
		out[t] = v
	}
	return out
}

// -----------------------------------------------------------------------------

// rescaleAgainstRealized fits v = c0 + c1*proxy against realized variance.
// A singular design (e.g. a constant proxy from constant prices) falls back
// to the identity rescale instead of failing: the proxy is already the best
// available estimate in that degenerate case.
func rescaleAgainstRealized(proxy, rv []float64) [2]float64 {
	p := novasLags
	rows := len(rv) - p
	if rows < 3 {
		return [2]float64{0, 1}
	}

	X := make([][]float64, rows)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		X[i] = []float64{1, proxy[p+i]}
		y[i] = rv[p+i]
	}

	coeffs, err := core.SolveNormalEquations(X, y)
	if err != nil || coeffs[1] <= 0 {
		return [2]float64{0, 1}
	}
	return [2]float64{coeffs[0], coeffs[1]}
}

func applyRescale(proxy []float64, rescale [2]float64, floor float64) []float64 {
	out := make([]float64, len(proxy))
	for t, p := range proxy {
		v := rescale[0] + rescale[1]*p
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		out[t] = v
	}
	return out
}
