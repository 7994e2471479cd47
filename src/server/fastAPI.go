package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"vol-observer/src/analysis"
	"vol-observer/src/helpers"
	"vol-observer/src/interfaces"
	"vol-observer/src/logger"
	"vol-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Forecast *analysis.ForecastFacade
	DB       interfaces.IDatabase
	engine   *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, logger *logger.Logger, forecast *analysis.ForecastFacade, db interfaces.IDatabase) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:   cfg,
		Logger:   logger,
		Forecast: forecast,
		DB:       db,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestData{
			Type:              "INITIAL",
			Candles:           make(map[string]models.MCandle),
			Predictions:       make(map[string]models.MPrediction),
			Timestamp:         0,
			ProcessingMetrics: models.MProcessingMetrics{},
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	s.engine.POST("/api/predict", s.postPredict)
	s.engine.POST("/api/predict_range", s.postPredictRange)
	s.engine.POST("/api/backtest", s.postBacktest)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	// Return processing_metrics
	c.JSON(http.StatusOK, s.latestState.ProcessingMetrics)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"interval": s.Config.DataSource.Interval,
		"forecast": s.Config.Forecast,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

// PredictRequest is the body of /api/predict and /api/predict_range. Candles
// may be supplied inline; otherwise they are loaded from storage by symbol.
type PredictRequest struct {
	Symbol          string           `json:"symbol"`
	Interval        string           `json:"interval"`
	Steps           int              `json:"steps"`
	Confidence      float64          `json:"confidence"`
	CurrentPrice    float64          `json:"current_price"`
	RequiredPercent float64          `json:"required_percent"`
	Candles         []models.MCandle `json:"candles"`
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postPredict(c *gin.Context) {
	s.handlePredict(c, false)
}

func (s *FastAPIServer) postPredictRange(c *gin.Context) {
	s.handlePredict(c, true)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handlePredict(c *gin.Context, multiStep bool) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candles, err := s.resolveCandles(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := analysis.PredictOptions{
		Symbol:       req.Symbol,
		Confidence:   req.Confidence,
		CurrentPrice: req.CurrentPrice,
	}
	if multiStep {
		opts.Steps = req.Steps
	}

	prediction, err := s.Forecast.PredictWithOptions(candles, req.Interval, opts)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postBacktest(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candles, err := s.resolveCandles(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.Forecast.Backtest(candles, req.Interval, req.RequiredPercent)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	report.Symbol = req.Symbol
	c.JSON(http.StatusOK, report)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) resolveCandles(req *PredictRequest) ([]models.MCandle, error) {
	if len(req.Candles) > 0 {
		return req.Candles, nil
	}
	if req.Symbol == "" {
		return nil, fmt.Errorf("either candles or a symbol must be provided")
	}
	if s.DB == nil {
		return nil, fmt.Errorf("no storage configured, candles must be inlined")
	}

	candles, err := s.DB.LoadCandles(req.Symbol, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles for %s: %w", req.Symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no stored candles for %s", req.Symbol)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

// statusFor maps the error taxonomy to HTTP: validation problems are the
// caller's fault, everything else is ours.
func statusFor(err error) int {
	var validation *helpers.ValidationError
	var degeneracy *helpers.DegeneracyError
	if errors.As(err, &validation) || errors.As(err, &degeneracy) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
