package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vol-observer/src/logger"
	"vol-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Use reflection/os to get executable name for schema
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	// Ensure name is safe or simple (optional but good practice)
	// For now, we rely on quoting in SQL.

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	// Filter and Register Symbols for each source
	// This modifies the shared Config object so that subsequent logic only sees classic symbols
	for i := range d.Config.DataSource.Sources {
		srcCfg := &d.Config.DataSource.Sources[i]
		classicSymbols, err := d.FilterAndRegisterSymbols(srcCfg.Name, srcCfg.Symbols)
		if err != nil {
			d.Logger.Error("PostgresDB: Failed to filter/register symbols for source %s: %v", srcCfg.Name, err)
		} else {
			srcCfg.Symbols = classicSymbols
		}
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."candles" (
				symbol TEXT,
				timestamp BIGINT,
				open DOUBLE PRECISION,
				high DOUBLE PRECISION,
				low DOUBLE PRECISION,
				close DOUBLE PRECISION,
				volume DOUBLE PRECISION,
				PRIMARY KEY (symbol, timestamp)
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."calibrations" (
				symbol TEXT,
				interval TEXT,
				model_type TEXT,
				params JSONB,
				log_likelihood DOUBLE PRECISION,
				aic DOUBLE PRECISION,
				bic DOUBLE PRECISION,
				converged BOOLEAN,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (symbol, interval, model_type, created_at)
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."predictions" (
				symbol TEXT,
				interval TEXT,
				model_type TEXT,
				current_price DOUBLE PRECISION,
				sigma DOUBLE PRECISION,
				move DOUBLE PRECISION,
				upper_price DOUBLE PRECISION,
				lower_price DOUBLE PRECISION,
				confidence DOUBLE PRECISION,
				steps INTEGER,
				reliable BOOLEAN,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (symbol, interval, created_at)
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."symbols" (
				symbol TEXT PRIMARY KEY,
				type TEXT,
				ref_schema TEXT,
				ref_table TEXT,
				ref_field TEXT,
				source_name TEXT,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`, d.Schema),
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveCandlesBulk(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."candles" (symbol, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`, d.Schema)
	stmt, err := tx.Prepare(query)
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

func (d *PostgresDB) LoadCandles(symbol string, limit int) ([]models.MCandle, error) {
	query := fmt.Sprintf(`
		SELECT symbol, timestamp, open, high, low, close, volume FROM (
			SELECT symbol, timestamp, open, high, low, close, volume
			FROM "%s"."candles" WHERE symbol = $1
			ORDER BY timestamp DESC LIMIT $2
		) recent ORDER BY timestamp ASC
	`, d.Schema)

	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	} else {
		limitArg = nil // NULL limit means no limit in Postgres
	}

	rows, err := d.DB.Query(query, symbol, limitArg)
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

func (d *PostgresDB) SaveCalibration(symbol, interval string, calib models.MCalibration) error {
	params, err := json.Marshal(calib)
	if err != nil {
		return err
	}

	createdAt := calib.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."calibrations" (symbol, interval, model_type, params, log_likelihood, aic, bic, converged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.Schema)
	_, err = d.DB.Exec(query, symbol, interval, calib.ModelType, string(params),
		calib.Diagnostics.LogLikelihood, calib.Diagnostics.AIC, calib.Diagnostics.BIC,
		calib.Diagnostics.Converged, createdAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePredictions(preds []models.MPrediction) error {
	if len(preds) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."predictions" (symbol, interval, model_type, current_price, sigma, move, upper_price, lower_price, confidence, steps, reliable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, d.Schema)
	stmt, err := tx.Prepare(query)
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
			p.UpperPrice, p.LowerPrice, p.Confidence, p.Steps, p.Reliable, createdAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	log.Printf("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."candles" WHERE timestamp < $1`, d.Schema), cutoff); err != nil {
		log.Printf("Cleanup candles error: %v", err)
	}

	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."calibrations" WHERE created_at < $1`, d.Schema), cutoffTime); err != nil {
		log.Printf("Cleanup calibrations error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."predictions" WHERE created_at < $1`, d.Schema), cutoffTime); err != nil {
		log.Printf("Cleanup predictions error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
