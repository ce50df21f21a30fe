// Package risk provides per-trade risk sizing from volatility and win rate.
package risk

import (
	"sync"

	"github.com/shareseek/signal-engine/pkg/utils"
	"go.uber.org/zap"
)

// SizerConfig configures the risk sizer.
type SizerConfig struct {
	BaseRisk   float64 // starting risk per trade (default 1%)
	MaxRisk    float64 // hard cap (default 2%)
	HighVol    float64 // volatility above which risk is reduced
	LowVol     float64 // volatility below which risk is increased
	LowWinRate float64 // win rate below which risk is reduced
	HiWinRate  float64 // win rate above which risk is increased
}

// DefaultSizerConfig returns conservative defaults.
func DefaultSizerConfig() *SizerConfig {
	return &SizerConfig{
		BaseRisk:   0.01,
		MaxRisk:    0.02,
		HighVol:    0.03,
		LowVol:     0.01,
		LowWinRate: 0.50,
		HiWinRate:  0.65,
	}
}

// Sizer computes the risk percentage attached to a signal. Per-strategy
// overrides can be registered; strategies without an override use the
// defaults, so passing a strategy name is currently a reserved extensibility
// point rather than discriminating behavior.
type Sizer struct {
	logger *zap.Logger
	config *SizerConfig

	mu        sync.RWMutex
	overrides map[string]*SizerConfig
}

// NewSizer creates a risk sizer.
func NewSizer(logger *zap.Logger, config *SizerConfig) *Sizer {
	if config == nil {
		config = DefaultSizerConfig()
	}
	return &Sizer{
		logger:    logger.Named("risk"),
		config:    config,
		overrides: make(map[string]*SizerConfig),
	}
}

// SetOverride registers strategy-specific sizing parameters.
func (s *Sizer) SetOverride(strategy string, config *SizerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[strategy] = config
}

// RiskPct returns the risk percentage for one trade, in [0, MaxRisk],
// rounded to 4 decimal places. High volatility and a sub-50% win rate shrink
// the base risk; low volatility and a win rate above 65% grow it.
func (s *Sizer) RiskPct(strategy string, volatility, winRate float64) float64 {
	s.mu.RLock()
	cfg, ok := s.overrides[strategy]
	s.mu.RUnlock()
	if !ok {
		cfg = s.config
	}

	risk := cfg.BaseRisk

	switch {
	case volatility > cfg.HighVol:
		risk *= 0.8
	case volatility < cfg.LowVol:
		risk *= 1.2
	}

	switch {
	case winRate < cfg.LowWinRate:
		risk *= 0.7
	case winRate > cfg.HiWinRate:
		risk *= 1.1
	}

	return utils.Round4(utils.Clamp(risk, 0, cfg.MaxRisk))
}
