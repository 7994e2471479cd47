package models

import "time"

// MCandle represents one OHLCV bar. Candles are treated as immutable inputs:
// no model or storage layer ever mutates a candle after it is constructed.
type MCandle struct {
	Symbol    string    `json:"symbol,omitempty"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp int64     `json:"timestamp,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
