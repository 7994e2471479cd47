package analysis

import (
	"fmt"
	"math"
	"time"

	"vol-observer/src/analysis/core"
	"vol-observer/src/helpers"
	"vol-observer/src/interfaces"
	"vol-observer/src/logger"
	"vol-observer/src/models"
	"vol-observer/src/utils"
	"vol-observer/src/volatility"
)

// -----------------------------------------------------------------------------
// ForecastFacade orchestrates the volatility pipeline per call:
// Validate -> Select Model -> Fit -> Forecast -> Assess Reliability -> Emit.
// No state persists across calls; every prediction is a fresh batch fit.
// -----------------------------------------------------------------------------

const (
	// DefaultConfidence is the one-sigma corridor (~68.27%).
	DefaultConfidence = 0.6827

	// DefaultMaxPersistence rejects near-unit-root fits as untrustworthy
	// extrapolations.
	DefaultMaxPersistence = 0.999

	// DefaultLjungBoxLags is the autocorrelation depth checked on squared
	// standardized residuals.
	DefaultLjungBoxLags = 10

	// leverageThreshold on RMS(negative returns)/RMS(positive returns):
	// above it only the asymmetric family is considered.
	leverageThreshold = 1.2

	// ljungBoxAlpha is the residual-autocorrelation significance level.
	ljungBoxAlpha = 0.05

	// backtestTrainFraction of the sample is fitted once; the rest is
	// rolled one step at a time with frozen parameters.
	backtestTrainFraction = 0.75
)

// -----------------------------------------------------------------------------

type ForecastFacade struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewForecastFacade(cfg *models.MConfig, log *logger.Logger) *ForecastFacade {
	if log == nil {
		log = logger.NewLogger(nil, "Forecast")
	}
	return &ForecastFacade{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// PredictOptions tunes one prediction call. Zero values mean defaults:
// one step, ~68% confidence, current price = last close.
type PredictOptions struct {
	Symbol       string
	Steps        int
	Confidence   float64
	CurrentPrice float64
}

// -----------------------------------------------------------------------------

// Predict builds a one-step price corridor from candles.
func (f *ForecastFacade) Predict(candles []models.MCandle, interval string) (*models.MPrediction, error) {
	return f.PredictWithOptions(candles, interval, PredictOptions{})
}

// -----------------------------------------------------------------------------

// PredictRange builds an N-step cumulative corridor: sigma is the square
// root of the summed per-step variances, a term-structure aggregation that
// decelerates under mean reversion instead of scaling by sqrt(N).
func (f *ForecastFacade) PredictRange(candles []models.MCandle, interval string, steps int) (*models.MPrediction, error) {
	return f.PredictWithOptions(candles, interval, PredictOptions{Steps: steps})
}

// -----------------------------------------------------------------------------

// PredictWithOptions is the full-control entry point over candle input.
func (f *ForecastFacade) PredictWithOptions(candles []models.MCandle, interval string, opts PredictOptions) (*models.MPrediction, error) {
	if err := f.validateSampleSize(interval, len(candles)); err != nil {
		return nil, err
	}

	symbol := opts.Symbol
	if symbol == "" {
		symbol = candles[0].Symbol
	}

	data, err := volatility.NewDatasetFromCandles(candles, annualPeriodsFor(interval, symbol))
	if err != nil {
		return nil, err
	}

	return f.predict(data, candles[len(candles)-1].Close, interval, opts)
}

// -----------------------------------------------------------------------------

// PredictFromPrices runs the same pipeline over a bare price series, where
// innovations fall back to squared returns.
func (f *ForecastFacade) PredictFromPrices(prices []float64, interval string, opts PredictOptions) (*models.MPrediction, error) {
	if err := f.validateSampleSize(interval, len(prices)); err != nil {
		return nil, err
	}

	data, err := volatility.NewDatasetFromPrices(prices, annualPeriodsFor(interval, opts.Symbol))
	if err != nil {
		return nil, err
	}

	return f.predict(data, prices[len(prices)-1], interval, opts)
}

// -----------------------------------------------------------------------------

func (f *ForecastFacade) predict(data *volatility.Dataset, lastPrice float64, interval string, opts PredictOptions) (*models.MPrediction, error) {
	steps := opts.Steps
	if steps == 0 {
		steps = 1
	}
	if steps < 1 {
		return nil, helpers.NewValidationError("forecast steps must be >= 1, got %d", steps)
	}

	confidence := opts.Confidence
	if confidence == 0 {
		confidence = f.configConfidence()
	}
	if !(confidence > 0 && confidence < 1) {
		return nil, helpers.NewValidationError("confidence must be in (0,1), got %v", confidence)
	}

	currentPrice := opts.CurrentPrice
	if currentPrice == 0 {
		currentPrice = lastPrice
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return nil, helpers.NewValidationError("invalid current price: %v", currentPrice)
	}

	model, calib, skipped, err := f.selectModel(data)
	if err != nil {
		return nil, err
	}

	points, err := model.Forecast(steps)
	if err != nil {
		return nil, err
	}

	// Term-structure aggregation: variance adds across steps.
	totalVariance := 0.0
	for _, p := range points {
		totalVariance += p.Variance
	}
	sigma := math.Sqrt(totalVariance)

	z, err := core.NormalQuantile((1 + confidence) / 2)
	if err != nil {
		return nil, helpers.NewValidationError("confidence out of range: %v", err)
	}

	move := z * sigma
	reliable := f.assessReliability(model, calib)

	f.Logger.Debug("Selected %s (AIC %.2f, converged=%v, reliable=%v, skipped=%d)",
		model.Type(), calib.Diagnostics.AIC, calib.Diagnostics.Converged, reliable, len(skipped))

	return &models.MPrediction{
		Symbol:        opts.Symbol,
		Interval:      interval,
		CurrentPrice:  currentPrice,
		Sigma:         sigma,
		Move:          move,
		UpperPrice:    currentPrice * math.Exp(move),
		LowerPrice:    currentPrice * math.Exp(-move),
		ModelType:     model.Type(),
		Reliable:      reliable,
		Confidence:    confidence,
		Steps:         steps,
		SkippedModels: skipped,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

// selectModel fits the candidate set and keeps the lowest-AIC fit. When the
// return series shows marked leverage asymmetry, only the asymmetric family
// competes. Candidates that refuse to construct or fit are not silently
// dropped: they are reported back as skipped.
func (f *ForecastFacade) selectModel(data *volatility.Dataset) (interfaces.IVolatilityModel, *models.MCalibration, []string, error) {
	candidates := f.candidateTypes(data)

	var (
		best      interfaces.IVolatilityModel
		bestCalib *models.MCalibration
		skipped   []string
	)

	for _, modelType := range candidates {
		model, err := newModel(modelType, data)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", modelType, err))
			continue
		}

		calib, err := model.Fit()
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", modelType, err))
			continue
		}

		if bestCalib == nil || calib.Diagnostics.AIC < bestCalib.Diagnostics.AIC {
			best = model
			bestCalib = calib
		}
	}

	if best == nil {
		return nil, nil, nil, helpers.NewValidationError("no volatility model could be fitted: %v", skipped)
	}
	return best, bestCalib, skipped, nil
}

// -----------------------------------------------------------------------------

func (f *ForecastFacade) candidateTypes(data *volatility.Dataset) []string {
	all := []string{volatility.TypeGARCH, volatility.TypeEGARCH, volatility.TypeGJR, volatility.TypeHARRV, volatility.TypeNoVaS}
	if f.Config != nil && len(f.Config.Forecast.Models) > 0 {
		all = f.Config.Forecast.Models
	}

	if leverageRatio(data.Returns) > leverageThreshold {
		asymmetric := make([]string, 0, 2)
		for _, t := range all {
			if t == volatility.TypeEGARCH || t == volatility.TypeGJR {
				asymmetric = append(asymmetric, t)
			}
		}
		if len(asymmetric) > 0 {
			return asymmetric
		}
	}
	return all
}

// -----------------------------------------------------------------------------

func newModel(modelType string, data *volatility.Dataset) (interfaces.IVolatilityModel, error) {
	switch modelType {
	case volatility.TypeGARCH:
		return volatility.NewGARCH(data)
	case volatility.TypeEGARCH:
		return volatility.NewEGARCH(data)
	case volatility.TypeGJR:
		return volatility.NewGJRGARCH(data)
	case volatility.TypeHARRV:
		return volatility.NewHARRV(data)
	case volatility.TypeNoVaS:
		return volatility.NewNoVaS(data)
	default:
		return nil, helpers.NewValidationError("unknown model type %q", modelType)
	}
}

// -----------------------------------------------------------------------------

// assessReliability ANDs three independent checks: the fit converged, the
// persistence sits safely below unit root, and the squared standardized
// residuals show no autocorrelation the model failed to capture.
func (f *ForecastFacade) assessReliability(model interfaces.IVolatilityModel, calib *models.MCalibration) bool {
	if !calib.Diagnostics.Converged {
		return false
	}

	maxPersistence := DefaultMaxPersistence
	lags := DefaultLjungBoxLags
	if f.Config != nil {
		if f.Config.Forecast.MaxPersistence > 0 {
			maxPersistence = f.Config.Forecast.MaxPersistence
		}
		if f.Config.Forecast.LjungBoxLags > 0 {
			lags = f.Config.Forecast.LjungBoxLags
		}
	}

	if model.Persistence() >= maxPersistence {
		return false
	}

	residuals, err := model.StandardizedResiduals()
	if err != nil {
		return false
	}
	squared := make([]float64, len(residuals))
	for i, z := range residuals {
		squared[i] = z * z
	}

	return core.LjungBox(squared, lags).PValue >= ljungBoxAlpha
}

// -----------------------------------------------------------------------------

// Calibrate fits the candidate set and returns the winning calibration
// without producing a corridor. Used by the service loop to persist fit
// diagnostics alongside predictions.
func (f *ForecastFacade) Calibrate(symbol string, candles []models.MCandle, interval string) (*models.MCalibration, error) {
	if err := f.validateSampleSize(interval, len(candles)); err != nil {
		return nil, err
	}

	data, err := volatility.NewDatasetFromCandles(candles, annualPeriodsFor(interval, symbol))
	if err != nil {
		return nil, err
	}

	_, calib, _, err := f.selectModel(data)
	if err != nil {
		return nil, err
	}
	return calib, nil
}

// -----------------------------------------------------------------------------

// Backtest runs walk-forward validation: fit once on the first 75% of the
// candles, then roll a one-step corridor over the holdout with frozen
// parameters and measure the hit rate against the required percentage.
func (f *ForecastFacade) Backtest(candles []models.MCandle, interval string, requiredPercent float64) (*models.MBacktestReport, error) {
	if requiredPercent < 0 || requiredPercent > 100 || math.IsNaN(requiredPercent) {
		return nil, helpers.NewValidationError("required percent must be in [0,100], got %v", requiredPercent)
	}

	split := int(backtestTrainFraction * float64(len(candles)))
	if err := f.validateSampleSize(interval, split); err != nil {
		return nil, err
	}

	periodsPerYear := annualPeriodsFor(interval, candles[0].Symbol)

	trainData, err := volatility.NewDatasetFromCandles(candles[:split], periodsPerYear)
	if err != nil {
		return nil, err
	}
	fullData, err := volatility.NewDatasetFromCandles(candles, periodsPerYear)
	if err != nil {
		return nil, err
	}

	model, _, _, err := f.selectModel(trainData)
	if err != nil {
		return nil, err
	}

	variances, err := model.ConditionalVariances(fullData.Returns, fullData.Innovations)
	if err != nil {
		return nil, err
	}

	z, err := core.NormalQuantile((1 + f.configConfidence()) / 2)
	if err != nil {
		return nil, err
	}

	// Return index t belongs to candle t+1; the holdout starts at candle
	// index `split`, so its returns start at split-1.
	hits := 0
	testSize := 0
	for t := split - 1; t < len(fullData.Returns); t++ {
		testSize++
		if math.Abs(fullData.Returns[t]) <= z*math.Sqrt(variances[t]) {
			hits++
		}
	}

	hitRate := 0.0
	if testSize > 0 {
		hitRate = 100 * float64(hits) / float64(testSize)
	}

	return &models.MBacktestReport{
		Interval:        interval,
		ModelType:       model.Type(),
		TrainSize:       split,
		TestSize:        testSize,
		Hits:            hits,
		HitRate:         hitRate,
		RequiredPercent: requiredPercent,
		Passed:          hitRate >= requiredPercent,
	}, nil
}

// -----------------------------------------------------------------------------

// annualPeriodsFor resolves the annualization factor, attaching the symbol's
// exchange calendar so daily fits annualize on trading days. Intraday
// intervals and empty symbols annualize on calendar time.
func annualPeriodsFor(interval, symbol string) float64 {
	var cal *utils.TradingCalendar
	if interval == "1d" && symbol != "" {
		cal = utils.GetCalendar(symbol)
	}
	return utils.AnnualPeriods(interval, cal)
}

// -----------------------------------------------------------------------------

func (f *ForecastFacade) validateSampleSize(interval string, samples int) error {
	spec, ok := utils.LookupInterval(interval)
	if !ok {
		return helpers.NewValidationError("unsupported interval %q", interval)
	}
	if samples < spec.MinSamples {
		return helpers.NewValidationError("interval %s needs at least %d candles, got %d", interval, spec.MinSamples, samples)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (f *ForecastFacade) configConfidence() float64 {
	if f.Config != nil && f.Config.Forecast.Confidence > 0 && f.Config.Forecast.Confidence < 1 {
		return f.Config.Forecast.Confidence
	}
	return DefaultConfidence
}

// -----------------------------------------------------------------------------

// leverageRatio is RMS of negative returns over RMS of positive returns;
// 1 when either side is empty.
func leverageRatio(returns []float64) float64 {
	var sumNeg, sumPos float64
	var nNeg, nPos int

	for _, r := range returns {
		switch {
		case r < 0:
			sumNeg += r * r
			nNeg++
		case r > 0:
			sumPos += r * r
			nPos++
		}
	}

	if nNeg == 0 || nPos == 0 {
		return 1
	}

	rmsNeg := math.Sqrt(sumNeg / float64(nNeg))
	rmsPos := math.Sqrt(sumPos / float64(nPos))
	if rmsPos == 0 {
		return 1
	}
	return rmsNeg / rmsPos
}
