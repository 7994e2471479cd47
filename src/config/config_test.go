package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: vol-observer
host: 127.0.0.1
port: 8080
log_level: INFO
storage:
  db_type: sqlite
  db_path: ./observer.db
network:
  timeout: 10
  retries: 3
  concurrent_requests: 4
data_source:
  data_retention_days: 7
  update_interval_seconds: 60
  interval: 4h
  sources:
    - name: yahoo
      symbols: [AAPL, MSFT]
forecast:
  confidence: 0.6827
  horizon: 1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigLoadsAndValidates(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "vol-observer", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	assert.Equal(t, "4h", cfg.DataSource.Interval)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.DataSource.Sources[0].Symbols)
	assert.Equal(t, 0.6827, cfg.Forecast.Confidence)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestNewConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		edit func(string) string
	}{
		{"unsupported interval", func(s string) string {
			return replace(s, "interval: 4h", "interval: 2h")
		}},
		{"privileged port", func(s string) string {
			return replace(s, "port: 8080", "port: 80")
		}},
		{"no sources", func(s string) string {
			return replace(s, "symbols: [AAPL, MSFT]", "symbols: []")
		}},
		{"confidence out of range", func(s string) string {
			return replace(s, "confidence: 0.6827", "confidence: 1.5")
		}},
		{"negative horizon", func(s string) string {
			return replace(s, "horizon: 1", "horizon: -3")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tc.edit(validYAML)))
			assert.Error(t, err)
		})
	}
}

func replace(s, old, with string) string {
	return strings.Replace(s, old, with, 1)
}

// -----------------------------------------------------------------------------

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, reloaded.Name)
	assert.Equal(t, cfg.DataSource.Interval, reloaded.DataSource.Interval)
}
