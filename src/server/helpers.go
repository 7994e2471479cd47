package server

import (
	"encoding/json"

	"vol-observer/src/models"
)

// -----------------------------------------------------------------------------

func safeProcessingMetrics(data map[string]interface{}, key string) models.MProcessingMetrics {
	if val, ok := data[key]; ok {
		if m, ok := val.(models.MProcessingMetrics); ok {
			return m
		}
		// Try map conversion if it comes as generic map (e.g. from JSON)
		if m, ok := val.(map[string]interface{}); ok {
			return models.MProcessingMetrics{
				ForecastTimeSeconds: safeFloat64(m, "forecast_time_seconds"),
				ValidSymbols:        int(safeInt64(m, "valid_symbols")),
				ModelsFitted:        int(safeInt64(m, "models_fitted")),
			}
		}
	}
	return models.MProcessingMetrics{}
}

// -----------------------------------------------------------------------------

func safeCandleMap(data map[string]interface{}, key string) map[string]models.MCandle {
	result := make(map[string]models.MCandle)
	if val, ok := data[key]; ok {
		// If it's already the right type
		if m, ok := val.(map[string]models.MCandle); ok {
			return m
		}

		// If it needs conversion (e.g. from JSON interface{})
		if m, ok := val.(map[string]interface{}); ok {
			for k, v := range m {
				if c, ok := v.(models.MCandle); ok {
					result[k] = c
				} else if cMap, ok := v.(map[string]interface{}); ok {
					// Bruteforce manual mapping or json roundtrip
					jsonBytes, _ := json.Marshal(cMap)
					var c models.MCandle
					if err := json.Unmarshal(jsonBytes, &c); err == nil {
						result[k] = c
					}
				}
			}
		}
	}
	return result
}

// -----------------------------------------------------------------------------

func safePredictionMap(data map[string]interface{}, key string) map[string]models.MPrediction {
	result := make(map[string]models.MPrediction)
	if val, ok := data[key]; ok {
		if m, ok := val.(map[string]models.MPrediction); ok {
			return m
		}

		// Fallback for generic structure
		if m, ok := val.(map[string]interface{}); ok {
			for k, v := range m {
				if p, ok := v.(models.MPrediction); ok {
					result[k] = p
				} else if pMap, ok := v.(map[string]interface{}); ok {
					jsonBytes, _ := json.Marshal(pMap)
					var p models.MPrediction
					if err := json.Unmarshal(jsonBytes, &p); err == nil {
						result[k] = p
					}
				}
			}
		}
	}
	return result
}

// -----------------------------------------------------------------------------

func safeFloat64(data map[string]interface{}, key string) float64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0.0
}

// -----------------------------------------------------------------------------

func safeInt64(data map[string]interface{}, key string) int64 {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
