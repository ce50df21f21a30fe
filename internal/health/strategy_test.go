package health_test

import (
	"testing"
	"time"

	"github.com/shareseek/signal-engine/internal/health"
	"go.uber.org/zap"
)

func TestAllowedByDefault(t *testing.T) {
	store := health.NewStrategyHealthStore(zap.NewNop())
	if !store.Allowed("crossover", "AAPL", time.Now()) {
		t.Error("Expected fresh store to allow everything")
	}
}

func TestPauseResume(t *testing.T) {
	store := health.NewStrategyHealthStore(zap.NewNop())
	now := time.Now()

	store.Pause("crossover")
	if store.Allowed("crossover", "AAPL", now) {
		t.Error("Paused strategy should not be allowed")
	}
	if !store.Allowed("momentum", "AAPL", now) {
		t.Error("Pausing one strategy should not affect others")
	}

	store.Resume("crossover")
	if !store.Allowed("crossover", "AAPL", now) {
		t.Error("Resumed strategy should be allowed")
	}
}

func TestCooldownExpiry(t *testing.T) {
	store := health.NewStrategyHealthStore(zap.NewNop())
	now := time.Now()

	store.StartCooldown("crossover", "AAPL", time.Hour)
	if store.Allowed("crossover", "AAPL", now) {
		t.Error("Cooling-down pair should not be allowed")
	}
	if !store.Allowed("crossover", "MSFT", now) {
		t.Error("Cooldown should be scoped to the pair")
	}
	if !store.Allowed("momentum", "AAPL", now) {
		t.Error("Cooldown should be scoped to the pair")
	}

	// Past the deadline the pair is admissible again.
	if !store.Allowed("crossover", "AAPL", now.Add(2*time.Hour)) {
		t.Error("Expired cooldown should be lifted")
	}
	state := store.Snapshot()
	if len(state.Cooldowns) != 0 {
		t.Errorf("Expected expired cooldown to be removed, got %d", len(state.Cooldowns))
	}
}

func TestMuteUnmute(t *testing.T) {
	store := health.NewStrategyHealthStore(zap.NewNop())
	now := time.Now()

	store.Mute("TSLA")
	if store.Allowed("crossover", "TSLA", now) {
		t.Error("Muted symbol should not be allowed")
	}
	if store.Allowed("momentum", "TSLA", now) {
		t.Error("Mute should apply across strategies")
	}

	store.Unmute("TSLA")
	if !store.Allowed("crossover", "TSLA", now) {
		t.Error("Unmuted symbol should be allowed")
	}
}

func TestSnapshot(t *testing.T) {
	store := health.NewStrategyHealthStore(zap.NewNop())
	store.Pause("crossover")
	store.Mute("TSLA")
	store.StartCooldown("momentum", "AAPL", time.Hour)

	state := store.Snapshot()
	if len(state.Paused) != 1 || state.Paused[0] != "crossover" {
		t.Errorf("Paused = %v", state.Paused)
	}
	if len(state.Muted) != 1 || state.Muted[0] != "TSLA" {
		t.Errorf("Muted = %v", state.Muted)
	}
	if len(state.Cooldowns) != 1 {
		t.Errorf("Cooldowns = %v", state.Cooldowns)
	}
}
