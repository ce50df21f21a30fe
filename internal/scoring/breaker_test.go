package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shareseek/signal-engine/internal/scoring"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLiveScorer struct {
	score float64
	err   error
	delay time.Duration
	calls int
}

func (s *stubLiveScorer) ScoreSignal(ctx context.Context, _ scoring.FeatureVector) (float64, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.score, s.err
}

type stubContextScorer struct {
	score float64
	err   error
}

func (s *stubContextScorer) PredictSuccess(context.Context, string, int, int) (float64, error) {
	return s.score, s.err
}

func testBreakerConfig() scoring.BreakerConfig {
	return scoring.BreakerConfig{
		CallTimeout: 50 * time.Millisecond,
		OpenAfter:   3,
		Cooldown:    time.Minute,
	}
}

func TestBreakerPassesScoresThrough(t *testing.T) {
	inner := &stubLiveScorer{score: 0.73}
	scorer := scoring.NewBreakerLiveScorer(zap.NewNop(), inner, testBreakerConfig())

	score, err := scorer.ScoreSignal(context.Background(), scoring.FeatureVector{})
	require.NoError(t, err)
	require.Equal(t, 0.73, score)
}

func TestBreakerTimeoutIsUnavailable(t *testing.T) {
	inner := &stubLiveScorer{score: 0.73, delay: 500 * time.Millisecond}
	scorer := scoring.NewBreakerLiveScorer(zap.NewNop(), inner, testBreakerConfig())

	_, err := scorer.ScoreSignal(context.Background(), scoring.FeatureVector{})
	require.ErrorIs(t, err, scoring.ErrScorerUnavailable)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("model server down")
	inner := &stubLiveScorer{err: boom}
	scorer := scoring.NewBreakerLiveScorer(zap.NewNop(), inner, testBreakerConfig())

	for i := 0; i < 3; i++ {
		_, err := scorer.ScoreSignal(context.Background(), scoring.FeatureVector{})
		require.ErrorIs(t, err, boom)
	}

	// Breaker is open: the inner scorer is no longer called.
	callsBefore := inner.calls
	_, err := scorer.ScoreSignal(context.Background(), scoring.FeatureVector{})
	require.ErrorIs(t, err, scoring.ErrScorerUnavailable)
	require.Equal(t, callsBefore, inner.calls)
}

func TestBreakerIgnoresColdStart(t *testing.T) {
	// A missing model artifact must never trip the breaker, no matter how
	// often it is observed.
	inner := &stubLiveScorer{err: scoring.ErrModelAbsent}
	scorer := scoring.NewBreakerLiveScorer(zap.NewNop(), inner, testBreakerConfig())

	for i := 0; i < 10; i++ {
		_, err := scorer.ScoreSignal(context.Background(), scoring.FeatureVector{})
		require.ErrorIs(t, err, scoring.ErrModelAbsent)
	}
	require.Equal(t, 10, inner.calls)
}

func TestContextBreakerPassesThrough(t *testing.T) {
	scorer := scoring.NewBreakerContextScorer(zap.NewNop(), &stubContextScorer{score: 0.42}, testBreakerConfig())

	score, err := scorer.PredictSuccess(context.Background(), "crossover", 9, 2)
	require.NoError(t, err)
	require.Equal(t, 0.42, score)
}
