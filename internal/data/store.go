// Package data provides historical bar storage and per-evaluation indicator
// snapshot preparation.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store provides access to historical bar data, one JSON file per
// (symbol, timeframe) under dataDir.
type Store struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	dataDir string
	cache   map[string][]*types.OHLCV
}

// NewStore creates a bar store rooted at dataDir.
func NewStore(logger *zap.Logger, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		logger:  logger.Named("data"),
		dataDir: dataDir,
		cache:   make(map[string][]*types.OHLCV),
	}, nil
}

func cacheKey(symbol string, timeframe types.Timeframe) string {
	return fmt.Sprintf("%s_%s", symbol, timeframe)
}

// LoadBars loads all bars for a symbol and timeframe, sorted by timestamp.
func (s *Store) LoadBars(_ context.Context, symbol string, timeframe types.Timeframe) ([]*types.OHLCV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(symbol, timeframe)
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}

	filename := filepath.Join(s.dataDir, key+".json")
	raw, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no bar data for %s/%s", symbol, timeframe)
	}
	if err != nil {
		return nil, fmt.Errorf("read bar data: %w", err)
	}

	var bars []*types.OHLCV
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("parse bar data %s: %w", filename, err)
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	s.cache[key] = bars
	return bars, nil
}

// SaveBars persists bars for a symbol and timeframe and refreshes the cache.
func (s *Store) SaveBars(symbol string, timeframe types.Timeframe, bars []*types.OHLCV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(symbol, timeframe)
	raw, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("marshal bar data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, key+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("write bar data: %w", err)
	}
	s.cache[key] = bars
	return nil
}

// GenerateSampleData seeds the store with a synthetic random walk for each
// symbol and timeframe, for local development and integration tests.
func (s *Store) GenerateSampleData(symbols []string, timeframes []types.Timeframe, bars int) error {
	rng := rand.New(rand.NewSource(42))

	for _, symbol := range symbols {
		for _, tf := range timeframes {
			price := 100.0 + rng.Float64()*400
			step := barInterval(tf)
			start := time.Now().Add(-time.Duration(bars) * step)

			series := make([]*types.OHLCV, 0, bars)
			for i := 0; i < bars; i++ {
				open := price
				price *= 1 + (rng.Float64()-0.495)*0.01
				high := max(open, price) * (1 + rng.Float64()*0.002)
				low := min(open, price) * (1 - rng.Float64()*0.002)
				series = append(series, &types.OHLCV{
					Timestamp: start.Add(time.Duration(i) * step),
					Open:      decimal.NewFromFloat(open),
					High:      decimal.NewFromFloat(high),
					Low:       decimal.NewFromFloat(low),
					Close:     decimal.NewFromFloat(price),
					Volume:    decimal.NewFromFloat(500_000 + rng.Float64()*2_000_000),
				})
			}
			if err := s.SaveBars(symbol, tf, series); err != nil {
				return err
			}
		}
	}
	s.logger.Info("sample data generated",
		zap.Int("symbols", len(symbols)),
		zap.Int("bars", bars),
	)
	return nil
}

func barInterval(tf types.Timeframe) time.Duration {
	switch tf {
	case types.Timeframe1m:
		return time.Minute
	case types.Timeframe5m:
		return 5 * time.Minute
	case types.Timeframe15m:
		return 15 * time.Minute
	case types.Timeframe1h:
		return time.Hour
	case types.Timeframe1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
