package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type              string                 `json:"type"` // "INITIAL" or "UPDATE"
	Candles           map[string]MCandle     `json:"candles"`
	Predictions       map[string]MPrediction `json:"predictions"`
	Timestamp         int64                  `json:"timestamp"`
	ProcessingMetrics MProcessingMetrics     `json:"processing_metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	ClientType string   `json:"clientType"`
	Symbols    []string `json:"symbols"`
}
