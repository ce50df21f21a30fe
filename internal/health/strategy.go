// Package health provides strategy admission state and system health
// monitoring.
package health

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// StrategyHealthStore holds the operator-controlled admission state consulted
// before every evaluation: per-strategy pause flags, per-(strategy, symbol)
// cooldown deadlines, and muted symbols. All reads and read-modify-writes are
// guarded by one lock so concurrent evaluation workers see a consistent view.
type StrategyHealthStore struct {
	logger *zap.Logger

	mu        sync.Mutex
	paused    map[string]bool
	cooldowns map[string]time.Time // strategy|symbol -> expiry
	muted     map[string]bool
}

// NewStrategyHealthStore creates an empty health store.
func NewStrategyHealthStore(logger *zap.Logger) *StrategyHealthStore {
	return &StrategyHealthStore{
		logger:    logger.Named("strategy-health"),
		paused:    make(map[string]bool),
		cooldowns: make(map[string]time.Time),
		muted:     make(map[string]bool),
	}
}

func cooldownKey(strategy, symbol string) string { return strategy + "|" + symbol }

// Pause disables a strategy across all symbols.
func (s *StrategyHealthStore) Pause(strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[strategy] = true
	s.logger.Info("strategy paused", zap.String("strategy", strategy))
}

// Resume re-enables a paused strategy.
func (s *StrategyHealthStore) Resume(strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paused, strategy)
	s.logger.Info("strategy resumed", zap.String("strategy", strategy))
}

// StartCooldown blocks a (strategy, symbol) pair until the deadline passes.
func (s *StrategyHealthStore) StartCooldown(strategy, symbol string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[cooldownKey(strategy, symbol)] = time.Now().Add(d)
}

// Mute blocks a symbol across all strategies.
func (s *StrategyHealthStore) Mute(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted[symbol] = true
}

// Unmute lifts a symbol mute.
func (s *StrategyHealthStore) Unmute(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.muted, symbol)
}

// Allowed reports whether an evaluation for (strategy, symbol) may run now.
// Expired cooldowns are removed as a side effect.
func (s *StrategyHealthStore) Allowed(strategy, symbol string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused[strategy] || s.muted[symbol] {
		return false
	}
	key := cooldownKey(strategy, symbol)
	if expiry, ok := s.cooldowns[key]; ok {
		if now.Before(expiry) {
			return false
		}
		delete(s.cooldowns, key)
	}
	return true
}

// State is a point-in-time copy of the admission state for the API.
type State struct {
	Paused    []string             `json:"paused"`
	Muted     []string             `json:"muted"`
	Cooldowns map[string]time.Time `json:"cooldowns"`
}

// Snapshot returns a copy of the current admission state.
func (s *StrategyHealthStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{Cooldowns: make(map[string]time.Time, len(s.cooldowns))}
	for strategy, p := range s.paused {
		if p {
			state.Paused = append(state.Paused, strategy)
		}
	}
	for symbol, m := range s.muted {
		if m {
			state.Muted = append(state.Muted, symbol)
		}
	}
	for key, expiry := range s.cooldowns {
		state.Cooldowns[key] = expiry
	}
	return state
}
