// Package scoring defines the contracts for the ML scoring collaborators and
// provides artifact-backed implementations plus fault-isolation decorators.
//
// Two separately trained models feed the router:
//   - the live confidence model scores a fully assembled (provisional) signal
//     record and returns the probability of a winning outcome;
//   - the context model scores a (strategy, hour, weekday) context and returns
//     the probability that trading that context is profitable.
//
// Either artifact may be absent (cold start). Absence is a defined degraded
// mode, not an error the router should abort on.
package scoring

import (
	"context"
	"errors"

	"github.com/shareseek/signal-engine/pkg/types"
)

// ErrModelAbsent indicates no trained model artifact exists yet (cold start).
var ErrModelAbsent = errors.New("scoring: model artifact absent")

// ErrScorerUnavailable indicates the scorer could not be reached within its
// call budget (timeout or open circuit breaker).
var ErrScorerUnavailable = errors.New("scoring: scorer unavailable")

// FeatureVector is the feature subset of a signal record presented to the
// live confidence model. FinalScore is always the placeholder value 0 at
// scoring time: the blended score is finalized only after the ML score is
// known, and the model is trained with the same placeholder.
type FeatureVector struct {
	Direction    types.Direction `json:"direction"`
	DNATag       types.DNATag    `json:"dna_tag"`
	Regime       types.Regime    `json:"regime"`
	RuleScore    float64         `json:"rule_score"`
	RegimeWeight float64         `json:"regime_weight"`
	FinalScore   float64         `json:"final_score"`
	RiskPct      float64         `json:"risk_pct"`
}

// FeaturesOf projects a provisional signal onto the model feature subset.
func FeaturesOf(sig *types.Signal) FeatureVector {
	return FeatureVector{
		Direction:    sig.Direction,
		DNATag:       sig.DNATag,
		Regime:       sig.Regime,
		RuleScore:    sig.RuleScore,
		RegimeWeight: sig.RegimeWeight,
		FinalScore:   0,
		RiskPct:      sig.RiskPct,
	}
}

// LiveScorer scores an assembled signal record. Implementations return a
// probability in [0, 1]. ErrModelAbsent and ErrScorerUnavailable are the only
// expected failure modes; both are fatal to the single evaluation pass since
// no signal can be scored without them, and the router reports them upward as
// a pipeline fault.
type LiveScorer interface {
	ScoreSignal(ctx context.Context, features FeatureVector) (float64, error)
}

// ContextScorer scores a (strategy, hour, weekday) trading context.
// ErrModelAbsent and ErrScorerUnavailable both degrade to "skip the context
// check" in the router.
type ContextScorer interface {
	PredictSuccess(ctx context.Context, strategy string, hour, weekday int) (float64, error)
}
