package server

import (
	"encoding/json"
	"net/http"

	"vol-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				// Send full initial state
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					// This ensures reliable 24/7 operation by pruning dead/slow consumers
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllDatas - updates internal state by merging new data (Deep Merge)
func (s *FastAPIServer) UpdateAllDatas(data interface{}) {
	// Parse input
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		s.Logger.Info("AllDatas expected map[string]interface{}, got %T", data)
		return
	}

	newCandles := safeCandleMap(dataMap, "candles")
	newPredictions := safePredictionMap(dataMap, "predictions")
	newTs := safeInt64(dataMap, "timestamp")
	newMetrics := safeProcessingMetrics(dataMap, "processing_metrics")

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	// 1. Merge latest candles (one per symbol)
	if s.latestState.Candles == nil {
		s.latestState.Candles = make(map[string]models.MCandle)
	}
	for k, v := range newCandles {
		s.latestState.Candles[k] = v
	}

	// 2. Merge predictions: the server holds only the most recent corridor
	// per symbol.
	if s.latestState.Predictions == nil {
		s.latestState.Predictions = make(map[string]models.MPrediction)
	}
	for k, v := range newPredictions {
		s.latestState.Predictions[k] = v
	}

	// 3. Update Metadata
	s.latestState.Timestamp = newTs
	s.latestState.ProcessingMetrics = newMetrics
	s.latestState.Type = "UPDATE"
}

// -----------------------------------------------------------------------------

// Broadcast - parses data and sends to broadcast channel (Queue)
func (s *FastAPIServer) Broadcast(message interface{}) {
	// Parse input
	dataMap, ok := message.(map[string]interface{})
	if !ok {
		// Log error but don't crash
		s.Logger.Info("Broadcast expected map[string]interface{}, got %T", message)
		return
	}

	// Convert to strongly typed structure BEFORE entering the channel
	// This optimization prevents the Hub from doing data processing
	state := &models.MLatestData{
		Type:              "UPDATE",
		Candles:           safeCandleMap(dataMap, "candles"),
		Predictions:       safePredictionMap(dataMap, "predictions"),
		Timestamp:         safeInt64(dataMap, "timestamp"),
		ProcessingMetrics: safeProcessingMetrics(dataMap, "processing_metrics"),
	}

	// Non-blocking send if buffer is full (optional, but safer for "prevent lock")
	// With a large buffer, blocking is rare.
	s.broadcast <- state
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

// SetLatestState - Thread-safe state update
func (s *FastAPIServer) SetLatestState(state *models.MLatestData) {
	s.stateMutex.Lock()
	state.Type = "UPDATE"
	s.latestState = state
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filteredResponse(cmd.Symbols)
	s.stateMutex.RUnlock()

	// Send response to client
	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
		// Client buffer full; the Hub loop prunes slow consumers on
		// broadcast, here we simply drop the direct response.
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

func (s *FastAPIServer) filteredResponse(symbols []string) *models.MLatestData {
	if len(symbols) == 0 {
		return &models.MLatestData{
			Type:              "INITIAL",
			Candles:           s.latestState.Candles,
			Predictions:       s.latestState.Predictions,
			Timestamp:         s.latestState.Timestamp,
			ProcessingMetrics: s.latestState.ProcessingMetrics,
		}
	}

	filteredCandles := make(map[string]models.MCandle)
	filteredPredictions := make(map[string]models.MPrediction)

	for _, sym := range symbols {
		if c, exists := s.latestState.Candles[sym]; exists {
			filteredCandles[sym] = c
		}
		if p, exists := s.latestState.Predictions[sym]; exists {
			filteredPredictions[sym] = p
		}
	}

	return &models.MLatestData{
		Type:              "INITIAL",
		Candles:           filteredCandles,
		Predictions:       filteredPredictions,
		Timestamp:         s.latestState.Timestamp,
		ProcessingMetrics: s.latestState.ProcessingMetrics,
	}
}
