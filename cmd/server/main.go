// Package main provides the entry point for the signal engine server: the
// polling loop that evaluates the symbol universe through the routing
// pipeline, plus the operations API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shareseek/signal-engine/internal/allocation"
	"github.com/shareseek/signal-engine/internal/api"
	"github.com/shareseek/signal-engine/internal/data"
	"github.com/shareseek/signal-engine/internal/engine"
	"github.com/shareseek/signal-engine/internal/events"
	"github.com/shareseek/signal-engine/internal/health"
	"github.com/shareseek/signal-engine/internal/metrics"
	"github.com/shareseek/signal-engine/internal/promotion"
	"github.com/shareseek/signal-engine/internal/regime"
	"github.com/shareseek/signal-engine/internal/risk"
	"github.com/shareseek/signal-engine/internal/router"
	"github.com/shareseek/signal-engine/internal/scoring"
	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/internal/workers"
	"github.com/shareseek/signal-engine/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "Config file path (yaml)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	sampleData := flag.Bool("sample-data", false, "Seed the bar store with synthetic data")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := types.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting signal engine",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("symbols", cfg.Engine.Symbols),
		zap.String("strategy", cfg.Engine.Strategy),
	)

	m := metrics.New()
	bus := events.NewEventBus(logger, events.DefaultConfig())

	// State stores.
	promotions, err := promotion.NewStore(logger, cfg.Data.DataDir, promotion.Criteria{
		MinTrades:  cfg.Promotion.MinTrades,
		MinWinRate: cfg.Promotion.MinWinRate,
	}, bus)
	if err != nil {
		logger.Fatal("failed to load promotion state", zap.Error(err))
	}
	alloc, err := allocation.NewStore(logger, cfg.Data.DataDir)
	if err != nil {
		logger.Fatal("failed to load allocation state", zap.Error(err))
	}
	strategies := health.NewStrategyHealthStore(logger)

	// Decision trail.
	signalLog, err := signallog.NewCSVLog(logger, filepath.Join(cfg.Data.DataDir, cfg.Data.SignalLogFile))
	if err != nil {
		logger.Fatal("failed to open signal log", zap.Error(err))
	}
	if _, err := signallog.NewOutcomeLog(logger, filepath.Join(cfg.Data.DataDir, cfg.Data.OutcomeLogFile)); err != nil {
		logger.Fatal("failed to open outcome log", zap.Error(err))
	}

	// Scoring collaborators, wrapped so a dead model server degrades
	// instead of stalling the universe.
	breakerCfg := scoring.BreakerConfig{
		CallTimeout: cfg.Scoring.CallTimeout,
		OpenAfter:   cfg.Scoring.BreakerOpenAfter,
		Cooldown:    cfg.Scoring.BreakerCooldown,
	}
	liveModel, err := scoring.LoadLiveModel(logger, cfg.Scoring.LiveModelPath)
	if err != nil {
		logger.Fatal("failed to load live model", zap.Error(err))
	}
	contextModel, err := scoring.LoadContextModel(logger, cfg.Scoring.ContextModelPath)
	if err != nil {
		logger.Fatal("failed to load context model", zap.Error(err))
	}
	live := scoring.NewBreakerLiveScorer(logger, liveModel, breakerCfg)
	contextScorer := scoring.NewBreakerContextScorer(logger, contextModel, breakerCfg)

	// Routing pipeline.
	regimes := regime.NewTracker(logger)
	sizer := risk.NewSizer(logger, nil)
	signalRouter := router.New(logger, cfg.Router, sizer, live, contextScorer, signalLog, bus, m, regimes)

	// Data preparation.
	store, err := data.NewStore(logger, cfg.Data.DataDir)
	if err != nil {
		logger.Fatal("failed to open bar store", zap.Error(err))
	}
	if *sampleData {
		timeframes := []types.Timeframe{types.Timeframe5m, types.Timeframe1d}
		if err := store.GenerateSampleData(cfg.Engine.Symbols, timeframes, 200); err != nil {
			logger.Fatal("failed to generate sample data", zap.Error(err))
		}
	}
	provider := data.NewSnapshotProvider(logger, store, promotions)

	// Polling engine.
	poolCfg := workers.DefaultPoolConfig("evaluations")
	poolCfg.NumWorkers = cfg.Engine.Workers
	poolCfg.QueueSize = cfg.Engine.QueueSize
	pool := workers.NewPool(logger, poolCfg)
	pool.Start()

	eng := engine.New(logger, engine.Config{
		Symbols:      cfg.Engine.Symbols,
		Strategy:     cfg.Engine.Strategy,
		PollInterval: cfg.Engine.PollInterval,
	}, provider, signalRouter, pool, strategies)
	if err := eng.Start(); err != nil {
		logger.Fatal("failed to start engine", zap.Error(err))
	}

	// System monitor.
	monitor := health.NewMonitor(logger, health.MonitorConfig{
		ModelPath:       cfg.Scoring.LiveModelPath,
		ReportPath:      filepath.Join(cfg.Data.DataDir, "system_health_report.json"),
		AlertWebhookURL: os.Getenv("SIGNALENGINE_ALERT_WEBHOOK"),
	}, signalLog, bus)
	monitorStop := make(chan struct{})
	go monitor.Run(monitorStop, 15*time.Minute)

	// Operations API.
	server := api.NewServer(logger, &cfg.Server, signalLog, promotions, alloc, strategies, monitor, regimes, bus, m)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", zap.Error(err))
		}
	}()

	logger.Info("signal engine started",
		zap.String("http", fmt.Sprintf("http://%s:%d/api/v1", cfg.Server.Host, cfg.Server.Port)),
		zap.String("ws", fmt.Sprintf("ws://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Server.WebSocketPath)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	close(monitorStop)
	eng.Stop()
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("api server shutdown error", zap.Error(err))
	}
	bus.Stop()
	logger.Info("signal engine stopped")
}

// setupLogger configures the zap logger.
func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
