// Package router implements the signal routing and scoring pipeline: it
// derives a trading signal from short/long timeframe indicator snapshots,
// applies the filter stages in fixed order, blends the confidence score, and
// persists an auditable accept/reject decision for every evaluation.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shareseek/signal-engine/internal/dna"
	"github.com/shareseek/signal-engine/internal/events"
	"github.com/shareseek/signal-engine/internal/filters"
	"github.com/shareseek/signal-engine/internal/metrics"
	"github.com/shareseek/signal-engine/internal/regime"
	"github.com/shareseek/signal-engine/internal/risk"
	"github.com/shareseek/signal-engine/internal/scoring"
	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/pkg/types"
	"github.com/shareseek/signal-engine/pkg/utils"
	"go.uber.org/zap"
)

// EvalRequest carries the inputs for one routing evaluation. Snapshots are
// prepared by the data collaborator and are immutable for the duration of the
// pass.
type EvalRequest struct {
	Symbol    string
	Strategy  string
	Short     *types.IndicatorSnapshot
	Long      *types.IndicatorSnapshot
	Now       time.Time
	AvgVolume float64
	WinRate   float64
}

// Router composes the regime classifier, DNA tagger, risk sizer, filters and
// scorer collaborators into one decision pipeline per (symbol, timestamp).
type Router struct {
	logger  *zap.Logger
	config  types.RouterConfig
	sizer   *risk.Sizer
	live    scoring.LiveScorer
	context scoring.ContextScorer
	log     signallog.Log
	bus     *events.EventBus
	metrics *metrics.Metrics
	regimes *regime.Tracker
}

// New creates a router. The event bus, metrics, and regime tracker are
// optional; a nil value disables that output.
func New(
	logger *zap.Logger,
	config types.RouterConfig,
	sizer *risk.Sizer,
	live scoring.LiveScorer,
	contextScorer scoring.ContextScorer,
	log signallog.Log,
	bus *events.EventBus,
	m *metrics.Metrics,
	regimes *regime.Tracker,
) *Router {
	return &Router{
		logger:  logger.Named("router"),
		config:  config,
		sizer:   sizer,
		live:    live,
		context: contextScorer,
		log:     log,
		bus:     bus,
		metrics: m,
		regimes: regimes,
	}
}

// Evaluate runs one full routing pass.
//
// A rejected signal is a successful evaluation with a negative outcome:
// Evaluate returns (nil, nil) and the rejection is persisted with its reason
// code. A collaborator fault aborts the pass and returns (nil, err) without
// touching the signal log. An accepted signal is persisted and returned.
func (r *Router) Evaluate(ctx context.Context, req EvalRequest) (*types.Signal, error) {
	started := time.Now()
	if r.metrics != nil {
		r.metrics.Evaluations.WithLabelValues(req.Symbol).Inc()
		defer func() { r.metrics.EvalDuration.Observe(time.Since(started).Seconds()) }()
	}

	if err := req.Short.Validate(); err != nil {
		return nil, fmt.Errorf("short snapshot: %w", err)
	}
	if err := req.Long.Validate(); err != nil {
		return nil, fmt.Errorf("long snapshot: %w", err)
	}

	marketRegime := regime.Classify(req.Long)
	if r.regimes != nil {
		r.regimes.Observe(req.Symbol, marketRegime, req.Now)
	}

	direction := crossoverDirection(req.Short)
	if direction == types.DirectionNone {
		sig := &types.Signal{
			ID:        utils.GenerateSignalID(),
			Symbol:    req.Symbol,
			Strategy:  req.Strategy,
			Regime:    marketRegime,
			CreatedAt: req.Now,
		}
		return nil, r.reject(sig, types.ReasonNoCrossover)
	}

	// Phase 1: assemble every non-ML field.
	tag, tagErr := dna.Tag(direction, req.Short)
	if tagErr != dna.ErrNone {
		r.logger.Debug("dna tagger degraded",
			zap.String("symbol", req.Symbol),
			zap.String("kind", tagErr.String()),
		)
		tag = types.TagUnclassified
	}

	sig := &types.Signal{
		ID:           utils.GenerateSignalID(),
		Symbol:       req.Symbol,
		Strategy:     req.Strategy,
		Direction:    direction,
		RuleScore:    r.config.RuleScore,
		Regime:       marketRegime,
		RegimeWeight: regime.Weight(marketRegime, r.config.BullRegimeWeight, r.config.OtherRegimeWeight),
		DNATag:       tag,
		RiskPct:      r.sizer.RiskPct(req.Strategy, latestOr(req.Short.Volatility, 0), req.WinRate),
		CreatedAt:    req.Now,
	}

	// Phase 2: the live model scores the provisional record once.
	mlScore, err := r.live.ScoreSignal(ctx, scoring.FeaturesOf(sig))
	if err != nil {
		return nil, r.fault(req.Symbol, "live_scorer", err)
	}
	sig.MLScore = mlScore

	// Phase 3: finalize the blended score; nothing recomputes it afterwards.
	sig.FinalScore = utils.Round4(utils.Mean(sig.RuleScore, sig.MLScore, sig.RegimeWeight))

	longSignal := types.DirectionalSignal{
		Symbol:    req.Long.Symbol,
		Direction: crossoverDirection(req.Long),
	}
	shortSignal := types.DirectionalSignal{Symbol: req.Symbol, Direction: direction}
	if !filters.ConfirmTimeframes(shortSignal, longSignal) {
		return nil, r.reject(sig, types.ReasonTimeframeMismatch)
	}

	if !filters.AdmitTimeVolume(req.Now, req.AvgVolume, r.config.MinAvgVolume) {
		return nil, r.reject(sig, types.ReasonTimeVolumeFilter)
	}

	contextScore, err := r.context.PredictSuccess(ctx, req.Strategy, req.Now.Hour(), int(req.Now.Weekday()))
	switch {
	case errors.Is(err, scoring.ErrModelAbsent), errors.Is(err, scoring.ErrScorerUnavailable):
		// Cold start or degraded collaborator: skip the context check.
		if r.metrics != nil {
			r.metrics.ScorerColdStart.WithLabelValues("context").Inc()
		}
	case err != nil:
		return nil, r.fault(req.Symbol, "context_scorer", err)
	default:
		sig.ContextScore = &contextScore
		if contextScore < r.config.ContextRejectBelow {
			return nil, r.reject(sig, types.ReasonContextModelFilter)
		}
	}

	sig.Status = types.StatusAccepted
	if err := r.persist(sig); err != nil {
		return nil, err
	}

	r.logger.Info("signal accepted",
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.String("regime", string(sig.Regime)),
		zap.String("dnaTag", string(sig.DNATag)),
		zap.Float64("finalScore", sig.FinalScore),
		zap.Float64("riskPct", sig.RiskPct),
	)
	return sig, nil
}

// latestOr returns the latest value of a series, or fallback when the
// optional series is absent.
func latestOr(series []float64, fallback float64) float64 {
	if len(series) == 0 {
		return fallback
	}
	return series[len(series)-1]
}

// crossoverDirection resolves the direction from the latest short-period vs
// long-period moving-average values. Equal values yield DirectionNone.
func crossoverDirection(snap *types.IndicatorSnapshot) types.Direction {
	short := types.Latest(snap.SMAShort)
	long := types.Latest(snap.SMALong)
	switch {
	case short > long:
		return types.DirectionLong
	case short < long:
		return types.DirectionShort
	default:
		return types.DirectionNone
	}
}

// reject finalizes and persists a rejected signal. The returned error is nil
// unless persistence itself failed: rejection is not an error condition.
func (r *Router) reject(sig *types.Signal, reason types.ReasonCode) error {
	sig.Status = types.StatusRejected
	sig.Reason = reason
	if err := r.persist(sig); err != nil {
		return err
	}
	r.logger.Debug("signal rejected",
		zap.String("symbol", sig.Symbol),
		zap.String("reason", string(reason)),
	)
	return nil
}

// persist appends the decision row and publishes the decision event.
func (r *Router) persist(sig *types.Signal) error {
	if err := r.log.Append(signallog.RowOf(sig)); err != nil {
		return fmt.Errorf("persist signal %s: %w", sig.ID, err)
	}
	if r.metrics != nil {
		r.metrics.ObserveDecision(sig.Status, sig.Reason, sig.FinalScore)
	}
	if r.bus != nil {
		r.bus.Publish(&events.DecisionEvent{
			BaseEvent: events.NewBaseEvent(events.EventTypeDecision),
			Signal:    sig,
		})
	}
	return nil
}

// fault reports a collaborator failure as a pipeline fault, distinct from a
// rejection: nothing is written to the signal log.
func (r *Router) fault(symbol, stage string, err error) error {
	if r.metrics != nil {
		r.metrics.PipelineFaults.WithLabelValues(stage).Inc()
	}
	if r.bus != nil {
		r.bus.Publish(&events.FaultEvent{
			BaseEvent: events.NewBaseEvent(events.EventTypeFault),
			Symbol:    symbol,
			Stage:     stage,
			Error:     err.Error(),
		})
	}
	r.logger.Error("pipeline fault",
		zap.String("symbol", symbol),
		zap.String("stage", stage),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", stage, err)
}
