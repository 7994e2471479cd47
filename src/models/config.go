package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Forecast   MForecastConfig   `yaml:"forecast"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	DataRetentionDays     int             `yaml:"data_retention_days"`
	UpdateIntervalSeconds int             `yaml:"update_interval_seconds"`
	Interval              string          `yaml:"interval"` // candle interval, e.g. "1h"
	Sources               []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
	APIKey  string   `yaml:"api_key"` // Optional
}

// MForecastConfig controls the orchestrator defaults. Zero values fall back
// to the built-in defaults (68% confidence, 1-step horizon, 0.999 persistence
// ceiling, 10 Ljung-Box lags).
type MForecastConfig struct {
	Confidence     float64  `yaml:"confidence"`
	Horizon        int      `yaml:"horizon"`
	MaxPersistence float64  `yaml:"max_persistence"`
	LjungBoxLags   int      `yaml:"ljung_box_lags"`
	Models         []string `yaml:"models"` // empty = all candidates
}
