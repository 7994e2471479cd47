package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vol-observer/src/logger"
	"vol-observer/src/models"

	_ "modernc.org/sqlite"
)

// SQLite batch constants
const (
	sqliteMaxVars   = 32000
	paramsPerRow    = 7
	sqliteBatchSize = sqliteMaxVars / paramsPerRow
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	queries := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timestamp INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			PRIMARY KEY (symbol, timestamp)
		);`,
		`CREATE TABLE IF NOT EXISTS calibrations (
			symbol TEXT,
			interval TEXT,
			model_type TEXT,
			params TEXT,
			log_likelihood REAL,
			aic REAL,
			bic REAL,
			converged INTEGER,
			created_at TIMESTAMP,
			PRIMARY KEY (symbol, interval, model_type, created_at)
		);`,
		`CREATE TABLE IF NOT EXISTS predictions (
			symbol TEXT,
			interval TEXT,
			model_type TEXT,
			current_price REAL,
			sigma REAL,
			move REAL,
			upper_price REAL,
			lower_price REAL,
			confidence REAL,
			steps INTEGER,
			reliable INTEGER,
			created_at TIMESTAMP,
			PRIMARY KEY (symbol, interval, created_at)
		);`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// SaveCandlesBulk upserts a batch of OHLCV candles inside one transaction.
func (d *AsyncSQLiteDB) SaveCandlesBulk(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// LoadCandles returns the most recent candles for a symbol in ascending
// timestamp order. limit <= 0 loads everything.
func (d *AsyncSQLiteDB) LoadCandles(symbol string, limit int) ([]models.MCandle, error) {
	query := `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM (
			SELECT symbol, timestamp, open, high, low, close, volume
			FROM candles WHERE symbol = ?
			ORDER BY timestamp DESC LIMIT ?
		) ORDER BY timestamp ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}

	rows, err := d.DB.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.MCandle
	for rows.Next() {
		var c models.MCandle
		if err := rows.Scan(&c.Symbol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// -----------------------------------------------------------------------------

// SaveCalibration persists one fit result; the model-specific parameter
// variant is stored as a JSON blob.
func (d *AsyncSQLiteDB) SaveCalibration(symbol, interval string, calib models.MCalibration) error {
	params, err := json.Marshal(calib)
	if err != nil {
		return err
	}

	createdAt := calib.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = d.DB.Exec(`
		INSERT INTO calibrations (symbol, interval, model_type, params, log_likelihood, aic, bic, converged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, symbol, interval, calib.ModelType, string(params),
		calib.Diagnostics.LogLikelihood, calib.Diagnostics.AIC, calib.Diagnostics.BIC,
		boolToInt(calib.Diagnostics.Converged), createdAt)
	return err
}

// -----------------------------------------------------------------------------

// SavePredictions persists a batch of corridor predictions.
func (d *AsyncSQLiteDB) SavePredictions(preds []models.MPrediction) error {
	if len(preds) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO predictions (symbol, interval, model_type, current_price, sigma, move, upper_price, lower_price, confidence, steps, reliable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range preds {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(p.Symbol, p.Interval, p.ModelType, p.CurrentPrice, p.Sigma, p.Move,
			p.UpperPrice, p.LowerPrice, p.Confidence, p.Steps, boolToInt(p.Reliable), createdAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	log.Printf("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec("DELETE FROM candles WHERE timestamp < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup candles error: %v", err)
	}

	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if _, err := d.DB.Exec("DELETE FROM calibrations WHERE created_at < ?", cutoffTime); err != nil {
		d.Logger.Error("Cleanup calibrations error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM predictions WHERE created_at < ?", cutoffTime); err != nil {
		d.Logger.Error("Cleanup predictions error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
