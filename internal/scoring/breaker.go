package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig bounds collaborator calls so a dead or slow model server
// cannot stall the symbol universe.
type BreakerConfig struct {
	CallTimeout time.Duration // per-call budget
	OpenAfter   uint32        // consecutive failures before the breaker opens
	Cooldown    time.Duration // open-state duration before a probe is allowed
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		CallTimeout: 2 * time.Second,
		OpenAfter:   5,
		Cooldown:    30 * time.Second,
	}
}

func newBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.OpenAfter
		},
		// A cold start is a defined result, not a collaborator failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrModelAbsent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("scorer breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// call runs fn under the per-call timeout. A timeout maps to
// ErrScorerUnavailable.
func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (float64, error)) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		score float64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		score, err := fn(ctx)
		done <- result{score, err}
	}()

	select {
	case r := <-done:
		return r.score, r.err
	case <-ctx.Done():
		return 0, ErrScorerUnavailable
	}
}

// BreakerLiveScorer wraps a LiveScorer with a per-call timeout and a circuit
// breaker. Timeouts and an open breaker surface as ErrScorerUnavailable.
type BreakerLiveScorer struct {
	inner   LiveScorer
	breaker *gobreaker.CircuitBreaker
	cfg     BreakerConfig
}

// NewBreakerLiveScorer wraps a live scorer.
func NewBreakerLiveScorer(logger *zap.Logger, inner LiveScorer, cfg BreakerConfig) *BreakerLiveScorer {
	return &BreakerLiveScorer{
		inner:   inner,
		breaker: newBreaker("live-scorer", cfg, logger.Named("breaker")),
		cfg:     cfg,
	}
}

// ScoreSignal implements LiveScorer.
func (b *BreakerLiveScorer) ScoreSignal(ctx context.Context, f FeatureVector) (float64, error) {
	v, err := b.breaker.Execute(func() (interface{}, error) {
		return call(ctx, b.cfg.CallTimeout, func(ctx context.Context) (float64, error) {
			return b.inner.ScoreSignal(ctx, f)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, ErrScorerUnavailable
		}
		return 0, err
	}
	return v.(float64), nil
}

// BreakerContextScorer wraps a ContextScorer with a per-call timeout and a
// circuit breaker.
type BreakerContextScorer struct {
	inner   ContextScorer
	breaker *gobreaker.CircuitBreaker
	cfg     BreakerConfig
}

// NewBreakerContextScorer wraps a context scorer.
func NewBreakerContextScorer(logger *zap.Logger, inner ContextScorer, cfg BreakerConfig) *BreakerContextScorer {
	return &BreakerContextScorer{
		inner:   inner,
		breaker: newBreaker("context-scorer", cfg, logger.Named("breaker")),
		cfg:     cfg,
	}
}

// PredictSuccess implements ContextScorer.
func (b *BreakerContextScorer) PredictSuccess(ctx context.Context, strategy string, hour, weekday int) (float64, error) {
	v, err := b.breaker.Execute(func() (interface{}, error) {
		return call(ctx, b.cfg.CallTimeout, func(ctx context.Context) (float64, error) {
			return b.inner.PredictSuccess(ctx, strategy, hour, weekday)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, ErrScorerUnavailable
		}
		return 0, err
	}
	return v.(float64), nil
}
