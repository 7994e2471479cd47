package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vol-observer/src/analysis"
	"vol-observer/src/config"
	datasource "vol-observer/src/data_source"
	"vol-observer/src/data_source/yahoo"
	"vol-observer/src/helpers"
	"vol-observer/src/interfaces"
	"vol-observer/src/logger"
	"vol-observer/src/models"
	"vol-observer/src/network"
	"vol-observer/src/server"
	"vol-observer/src/storage"
	"vol-observer/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config, config.Name)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 3. Setup Data Sources
	var networkManage interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)

	if len(config.DataSource.Sources) == 0 {
		appLogger.Critical("No data sources configured")
		os.Exit(1)
	}

	var sources []interfaces.IDataSource
	for _, srcCfg := range config.DataSource.Sources {
		sources = append(sources, yahoo.NewYahooFinanceSource(config.MConfig, srcCfg, networkManage))
	}
	manager := datasource.NewMultiSourceManager(sources, appLogger)

	// 4. Forecast Pipeline and Server
	forecaster := analysis.NewForecastFacade(config.MConfig, appLogger)
	srv := server.NewFastAPIServer(config.MConfig, appLogger, forecaster, db)

	interval := config.DataSource.Interval
	if interval == "" {
		interval = "5m"
	}

	// 5. Memory Manager (limit derived from physical RAM, 512MB floor)
	maxMemoryMB := helpers.GetRecommendedMemoryLimit()
	maxPoints := utils.CalculateMaxDataPoints(config.DataSource.DataRetentionDays)
	memManager := utils.NewMemoryManager(maxMemoryMB, maxPoints)

	// 6. Initial Data Load
	appLogger.Info("Fetching initial data...")
	initialData, err := manager.FetchInitialData()
	if err != nil {
		appLogger.Warning("Initial fetch failed: %v", err)
	}

	var allRaw []models.MCandle
	for sym, candles := range initialData {
		memManager.AddCandles(sym, candles)
		allRaw = append(allRaw, candles...)
	}
	if err := db.SaveCandlesBulk(allRaw); err != nil {
		appLogger.Error("Failed to persist initial candles: %v", err)
	}

	// 7. Initial Calibration + Forecast
	// Persist one calibration per symbol at startup for audit; the live loop
	// only refreshes predictions.
	for sym := range initialData {
		buffer := memManager.GetBuffer(sym)
		if buffer == nil {
			continue
		}
		calib, err := forecaster.Calibrate(sym, buffer.GetAll(), interval)
		if err != nil {
			appLogger.Debug("Skipping initial calibration for %s: %v", sym, err)
			continue
		}
		if err := db.SaveCalibration(sym, interval, *calib); err != nil {
			appLogger.Error("Failed to save calibration for %s: %v", sym, err)
		}
	}

	startInitial := time.Now()
	initialPredictions := runForecasts(forecaster, memManager, initialData, interval, config.MConfig, appLogger)
	persistPredictions(db, initialPredictions, appLogger)

	appLogger.Info("Initialization complete: %d symbols, %d forecasts", len(initialData), len(initialPredictions))

	// -------------------------------------------------------------------------
	// Send Initial Data to Server State
	// -------------------------------------------------------------------------
	initialPayload := map[string]interface{}{
		"type":        "INITIAL",
		"candles":     latestCandles(initialData),
		"predictions": initialPredictions,
		"timestamp":   time.Now().Unix(),
		"processing_metrics": models.MProcessingMetrics{
			ForecastTimeSeconds: time.Since(startInitial).Seconds(),
			ValidSymbols:        len(initialData),
			ModelsFitted:        len(initialPredictions),
		},
	}
	srv.UpdateAllDatas(initialPayload)
	// -------------------------------------------------------------------------

	// 8. Start Server (REST + WebSocket Hub)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 9. Main Loop (Push Model)
	// Create context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapWg := &sync.WaitGroup{}
	updatesChan := make(chan map[string][]models.MCandle, 100)

	// Start Sources
	if err := manager.Start(ctx, updatesChan, wrapWg); err != nil {
		appLogger.Critical("Failed to start sources: %v", err)
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting data loop (Push Model)...")

	for {
		select {
		case updates, ok := <-updatesChan:
			if !ok {
				appLogger.Info("Data source closed channel.")
				return
			}

			startProcess := time.Now()
			appLogger.Info("Received update for %d symbols", len(updates))

			// Persist + buffer new candles
			var newRaw []models.MCandle
			for sym, candles := range updates {
				newRaw = append(newRaw, candles...)
				memManager.AddCandles(sym, candles)
			}
			if err := db.SaveCandlesBulk(newRaw); err != nil {
				appLogger.Error("Failed to persist candles: %v", err)
			}

			// Refresh corridors for the symbols that moved
			predictions := runForecasts(forecaster, memManager, updates, interval, config.MConfig, appLogger)
			persistPredictions(db, predictions, appLogger)

			elapsed := time.Since(startProcess).Seconds()

			// Broadcast
			payload := map[string]interface{}{
				"type":        "UPDATE",
				"candles":     latestCandles(updates),
				"predictions": predictions,
				"timestamp":   time.Now().Unix(),
				"processing_metrics": models.MProcessingMetrics{
					ForecastTimeSeconds: elapsed,
					ValidSymbols:        len(updates),
					ModelsFitted:        len(predictions),
				},
			}

			srv.UpdateAllDatas(payload)
			srv.Broadcast(payload)

			// Cleanup
			db.CleanupOldData()

		case <-quit:
			appLogger.Info("Shutting down...")
			cancel()      // Signal sources to stop
			wrapWg.Wait() // Wait for sources to close
			return
		}
	}
}

// -----------------------------------------------------------------------------

// runForecasts fits and predicts for every updated symbol from its full
// buffered history. Symbols without enough history are skipped quietly;
// the sample-size gate is interval dependent.
func runForecasts(forecaster *analysis.ForecastFacade, memManager *utils.MemoryManager,
	updates map[string][]models.MCandle, interval string, cfg *models.MConfig, log *logger.Logger) map[string]models.MPrediction {

	steps := cfg.Forecast.Horizon
	if steps <= 0 {
		steps = 1
	}

	predictions := make(map[string]models.MPrediction)
	for sym := range updates {
		buffer := memManager.GetBuffer(sym)
		if buffer == nil {
			continue
		}

		candles := buffer.GetAll()
		prediction, err := forecaster.PredictWithOptions(candles, interval, analysis.PredictOptions{
			Symbol: sym,
			Steps:  steps,
		})
		if err != nil {
			log.Debug("Forecast skipped for %s: %v", sym, err)
			continue
		}
		predictions[sym] = *prediction
	}
	return predictions
}

// -----------------------------------------------------------------------------

func persistPredictions(db interfaces.IDatabase, predictions map[string]models.MPrediction, log *logger.Logger) {
	if len(predictions) == 0 {
		return
	}

	batch := make([]models.MPrediction, 0, len(predictions))
	for _, p := range predictions {
		batch = append(batch, p)
	}
	if err := db.SavePredictions(batch); err != nil {
		log.Error("Failed to persist predictions: %v", err)
	}
}

// -----------------------------------------------------------------------------

// latestCandles keeps only the newest candle per symbol for the server state.
func latestCandles(data map[string][]models.MCandle) map[string]models.MCandle {
	result := make(map[string]models.MCandle)
	for sym, candles := range data {
		if len(candles) > 0 {
			result[sym] = candles[len(candles)-1]
		}
	}
	return result
}
