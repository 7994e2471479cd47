package interfaces

import "vol-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveCandlesBulk upserts a batch of OHLCV candles.
	SaveCandlesBulk(candles []models.MCandle) error

	// -----------------------------------------------------------------------------

	// LoadCandles returns the most recent candles for a symbol in ascending
	// timestamp order. limit <= 0 loads everything.
	LoadCandles(symbol string, limit int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// SaveCalibration persists one fit result for audit/replay.
	SaveCalibration(symbol, interval string, calib models.MCalibration) error

	// -----------------------------------------------------------------------------

	// SavePredictions persists a batch of corridor predictions.
	SavePredictions(preds []models.MPrediction) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
