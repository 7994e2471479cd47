package volatility

import (
	"math"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/models"
	"vol-observer/src/optimize"
)

// -----------------------------------------------------------------------------
// HAR-RV: heterogeneous autoregression of realized variance. Next-period RV
// is regressed on three rolling means of past RV (1/5/22 lags) by OLS on the
// normal equations; a singular design is a hard error. A second stage
// re-optimizes the coefficients jointly with a Student-t df for AIC parity
// with the likelihood-based models, keeping the OLS R-squared as the
// structural goodness-of-fit figure.
// -----------------------------------------------------------------------------

const (
	harShortLag  = 1
	harMediumLag = 5
	harLongLag   = 22

	// The regression needs some rows beyond the longest lag window.
	harMinExtraRows = 10
)

// -----------------------------------------------------------------------------

type HARRV struct {
	data   *Dataset
	fitted bool

	coeffs [4]float64 // intercept, short, medium, long
	df     float64

	variances []float64
	calib     models.MCalibration
}

// NewHARRV builds an unfitted HAR-RV model over the dataset.
func NewHARRV(data *Dataset) (*HARRV, error) {
	min := harLongLag + harMinExtraRows
	if data.NumReturns() < min {
		return nil, helpers.NewValidationError("har-rv needs at least %d returns, got %d", min, data.NumReturns())
	}
	return &HARRV{data: data}, nil
}

// -----------------------------------------------------------------------------

func (m *HARRV) Type() string { return TypeHARRV }

// -----------------------------------------------------------------------------

func (m *HARRV) Fit() (*models.MCalibration, error) {
	rv := m.data.Innovations
	n := len(rv)
	rows := n - harLongLag

	X := make([][]float64, rows)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := harLongLag + i
		X[i] = []float64{
			1,
			rv[t-harShortLag],
			meanWindow(rv, t, harMediumLag),
			meanWindow(rv, t, harLongLag),
		}
		y[i] = rv[t]
	}

	ols, err := core.SolveNormalEquations(X, y)
	if err != nil {
		return nil, helpers.NewDegeneracyError("har-rv design matrix is singular", err)
	}

	rSquared := olsRSquared(X, y, ols)

	// Stage 2: maximize the Student-t likelihood over the coefficients and
	// the df together. The joint surface has poor local optima, hence the
	// multi-start.
	floor := minVarianceRatio * m.data.SeedVariance
	objective := func(x []float64) float64 {
		coeffs := [4]float64{x[0], x[1], x[2], x[3]}
		df := x[4]
		if df <= 2.5 || df > 200 {
			return barrierPenalty
		}

		variances := harSeries(coeffs, rv, m.data.SeedVariance, floor)
		ll := core.StudentTLogLikelihood(m.data.Returns, variances, df)
		if math.IsInf(ll, -1) || math.IsNaN(ll) {
			return barrierPenalty
		}
		return -ll
	}

	x0 := []float64{ols[0], ols[1], ols[2], ols[3], 8}
	res := optimize.MinimizeMultiStart(objective, x0, optimize.DefaultOptions(), 3)

	m.coeffs = [4]float64{res.X[0], res.X[1], res.X[2], res.X[3]}
	m.df = res.X[4]
	m.variances = harSeries(m.coeffs, rv, m.data.SeedVariance, floor)

	ll := core.StudentTLogLikelihood(m.data.Returns, m.variances, m.df)
	if math.IsInf(ll, -1) {
		// Refinement went infeasible, keep the OLS point.
		m.coeffs = [4]float64{ols[0], ols[1], ols[2], ols[3]}
		m.variances = harSeries(m.coeffs, rv, m.data.SeedVariance, floor)
		m.df, ll = core.ProfileStudentTDF(m.data.Returns, m.variances)
		res.Converged = false
	}

	m.calib = models.MCalibration{
		ModelType: TypeHARRV,
		HAR: &models.MHARParams{
			Intercept:     m.coeffs[0],
			BetaShort:     m.coeffs[1],
			BetaMedium:    m.coeffs[2],
			BetaLong:      m.coeffs[3],
			AnnualizedVol: annualizedVol(m.variances[len(m.variances)-1], m.data.PeriodsPerYear),
			DF:            m.df,
		},
		Diagnostics: models.MDiagnostics{
			LogLikelihood: ll,
			AIC:           core.AIC(ll, 5),
			BIC:           core.BIC(ll, 5, m.data.NumReturns()),
			RSquared:      rSquared,
			Iterations:    res.Iterations + 1,
			Converged:     res.Converged,
		},
	}
	m.fitted = true

	return m.calibrationCopy(), nil
}

// -----------------------------------------------------------------------------

func (m *HARRV) calibrationCopy() *models.MCalibration {
	out := m.calib
	params := *m.calib.HAR
	out.HAR = &params
	return &out
}

// -----------------------------------------------------------------------------

func (m *HARRV) VarianceSeries() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeHARRV)
	}
	return copyFloats(m.variances), nil
}

// -----------------------------------------------------------------------------

// Forecast extends the lag window recursively: each step's predicted
// variance is appended to the realized-variance history as if observed.
func (m *HARRV) Forecast(steps int) ([]models.MVolatilityPoint, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeHARRV)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	floor := minVarianceRatio * m.data.SeedVariance
	history := copyFloats(m.data.Innovations)
	path := make([]float64, steps)

	for k := 0; k < steps; k++ {
		t := len(history)
		v := m.coeffs[0] +
			m.coeffs[1]*history[t-harShortLag] +
			m.coeffs[2]*meanWindow(history, t, harMediumLag) +
			m.coeffs[3]*meanWindow(history, t, harLongLag)
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		path[k] = v
		history = append(history, v)
	}

	return forecastPoints(path, floor, m.data.PeriodsPerYear), nil
}

// -----------------------------------------------------------------------------

// Persistence is the sum of the three lag coefficients, the HAR analogue of
// the recursion models' decay rate.
func (m *HARRV) Persistence() float64 {
	return m.coeffs[1] + m.coeffs[2] + m.coeffs[3]
}

// -----------------------------------------------------------------------------

func (m *HARRV) StandardizedResiduals() ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeHARRV)
	}
	return standardize(m.data.Returns, m.variances), nil
}

// -----------------------------------------------------------------------------

func (m *HARRV) ConditionalVariances(returns, innovations []float64) ([]float64, error) {
	if !m.fitted {
		return nil, errNotFitted(TypeHARRV)
	}
	if len(returns) == 0 || len(returns) != len(innovations) {
		return nil, helpers.NewValidationError("returns/innovations length mismatch: %d vs %d", len(returns), len(innovations))
	}

	seed := sanitizeSeed(core.SampleVariance(returns))
	return harSeries(m.coeffs, innovations, seed, minVarianceRatio*seed), nil
}

// -----------------------------------------------------------------------------

// harSeries evaluates the regression over the whole RV history, using the
// warmup variance inside the first long-lag window and flooring every entry
// so the output stays strictly positive.
func harSeries(coeffs [4]float64, rv []float64, warmup, floor float64) []float64 {
	n := len(rv)
	out := make([]float64, n)

	for t := 0; t < n; t++ {
		if t < harLongLag {
			out[t] = warmup
			continue
		}
		v := coeffs[0] +
			coeffs[1]*rv[t-harShortLag] +
			coeffs[2]*meanWindow(rv, t, harMediumLag) +
			coeffs[3]*meanWindow(rv, t, harLongLag)
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		out[t] = v
	}
	return out
}

// meanWindow averages rv[t-window : t].
func meanWindow(rv []float64, t, window int) float64 {
	sum := 0.0
	for i := t - window; i < t; i++ {
		sum += rv[i]
	}
	return sum / float64(window)
}

// -----------------------------------------------------------------------------

func olsRSquared(X [][]float64, y, coeffs []float64) float64 {
	meanY, _ := core.CalculateMeanStd(y)

	ssRes := 0.0
	ssTot := 0.0
	for i := range y {
		fitted := 0.0
		for j := range coeffs {
			fitted += X[i][j] * coeffs[j]
		}
		ssRes += (y[i] - fitted) * (y[i] - fitted)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}

	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
