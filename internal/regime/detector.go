// Package regime provides market regime classification from moving-average
// comparison on the long timeframe: bull, bear, or sideways.
package regime

import (
	"sync"
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// Classify derives the regime from the most recent short-period vs long-period
// moving-average values of the long-timeframe snapshot. Pure function; the
// caller guarantees non-empty series (types.IndicatorSnapshot.Validate).
func Classify(long *types.IndicatorSnapshot) types.Regime {
	short := types.Latest(long.SMAShort)
	slow := types.Latest(long.SMALong)
	switch {
	case short > slow:
		return types.RegimeBull
	case short < slow:
		return types.RegimeBear
	default:
		return types.RegimeSideways
	}
}

// Weight maps a regime to the confidence weight blended into the final score.
func Weight(r types.Regime, bullWeight, otherWeight float64) float64 {
	if r == types.RegimeBull {
		return bullWeight
	}
	return otherWeight
}

// Transition records one observed regime change for a symbol.
type Transition struct {
	Symbol     string       `json:"symbol"`
	From       types.Regime `json:"from"`
	To         types.Regime `json:"to"`
	ObservedAt time.Time    `json:"observedAt"`
}

// Tracker keeps the last observed regime per symbol and a bounded history of
// transitions for the operations API.
type Tracker struct {
	logger *zap.Logger

	mu      sync.RWMutex
	current map[string]types.Regime
	history []Transition
	maxHist int
}

// NewTracker creates a regime tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:  logger.Named("regime"),
		current: make(map[string]types.Regime),
		maxHist: 256,
	}
}

// Observe records the regime seen for a symbol during an evaluation pass and
// logs transitions.
func (t *Tracker) Observe(symbol string, r types.Regime, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.current[symbol]
	t.current[symbol] = r
	if !seen || prev == r {
		return
	}

	t.history = append(t.history, Transition{Symbol: symbol, From: prev, To: r, ObservedAt: at})
	if len(t.history) > t.maxHist {
		t.history = t.history[len(t.history)-t.maxHist:]
	}
	t.logger.Info("regime transition",
		zap.String("symbol", symbol),
		zap.String("from", string(prev)),
		zap.String("to", string(r)),
	)
}

// Current returns the last observed regime for a symbol.
func (t *Tracker) Current(symbol string) (types.Regime, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.current[symbol]
	return r, ok
}

// Snapshot returns the per-symbol regimes and recent transitions.
func (t *Tracker) Snapshot() (map[string]types.Regime, []Transition) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	current := make(map[string]types.Regime, len(t.current))
	for sym, r := range t.current {
		current[sym] = r
	}
	history := make([]Transition, len(t.history))
	copy(history, t.history)
	return current, history
}
