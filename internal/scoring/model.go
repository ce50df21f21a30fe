package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/shareseek/signal-engine/pkg/utils"
	"go.uber.org/zap"
)

// liveModelArtifact is the serialized live confidence model: a logistic
// regression over ordinal-encoded categorical features and raw numeric
// features, exported by the offline training pipeline.
type liveModelArtifact struct {
	// Categories holds, per categorical feature, the ordered category list
	// used for ordinal encoding. Unknown categories encode as -1.
	Categories map[string][]string `json:"categories"`
	// Weights are keyed by feature name in feature order:
	// direction, dna_tag, regime, rule_score, regime_weight, final_score, risk_pct.
	Weights   map[string]float64 `json:"weights"`
	Intercept float64            `json:"intercept"`
	TrainedAt string             `json:"trained_at"`
}

// LiveModel is a file-artifact-backed LiveScorer.
type LiveModel struct {
	logger   *zap.Logger
	artifact *liveModelArtifact
}

// LoadLiveModel reads a live confidence model artifact. A missing file is a
// cold start: the scorer is constructed but every call returns ErrModelAbsent.
func LoadLiveModel(logger *zap.Logger, path string) (*LiveModel, error) {
	m := &LiveModel{logger: logger.Named("live-model")}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m.logger.Warn("no live model artifact, cold start", zap.String("path", path))
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read live model %s: %w", path, err)
	}

	var artifact liveModelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("parse live model %s: %w", path, err)
	}
	m.artifact = &artifact
	m.logger.Info("live model loaded",
		zap.String("path", path),
		zap.String("trainedAt", artifact.TrainedAt),
	)
	return m, nil
}

// ScoreSignal returns the probability of a winning outcome, rounded to 4
// decimal places.
func (m *LiveModel) ScoreSignal(_ context.Context, f FeatureVector) (float64, error) {
	if m.artifact == nil {
		return 0, ErrModelAbsent
	}

	a := m.artifact
	z := a.Intercept
	z += a.Weights["direction"] * ordinal(a.Categories["direction"], string(f.Direction))
	z += a.Weights["dna_tag"] * ordinal(a.Categories["dna_tag"], string(f.DNATag))
	z += a.Weights["regime"] * ordinal(a.Categories["regime"], string(f.Regime))
	z += a.Weights["rule_score"] * f.RuleScore
	z += a.Weights["regime_weight"] * f.RegimeWeight
	z += a.Weights["final_score"] * f.FinalScore
	z += a.Weights["risk_pct"] * f.RiskPct

	return utils.Round4(sigmoid(z)), nil
}

// contextModelArtifact is the serialized context model: a logistic regression
// over one-hot encoded (strategy, hour, dayofweek) features. Unknown context
// values contribute nothing (handle_unknown = ignore).
type contextModelArtifact struct {
	// Weights are keyed "<feature>=<value>", e.g. "strategy=crossover",
	// "hour=9", "dayofweek=1".
	Weights   map[string]float64 `json:"weights"`
	Intercept float64            `json:"intercept"`
	TrainedAt string             `json:"trained_at"`
}

// ContextModel is a file-artifact-backed ContextScorer.
type ContextModel struct {
	logger   *zap.Logger
	artifact *contextModelArtifact
}

// LoadContextModel reads a context model artifact; a missing file is a cold
// start.
func LoadContextModel(logger *zap.Logger, path string) (*ContextModel, error) {
	m := &ContextModel{logger: logger.Named("context-model")}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m.logger.Warn("no context model artifact, cold start", zap.String("path", path))
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read context model %s: %w", path, err)
	}

	var artifact contextModelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("parse context model %s: %w", path, err)
	}
	m.artifact = &artifact
	m.logger.Info("context model loaded",
		zap.String("path", path),
		zap.String("trainedAt", artifact.TrainedAt),
	)
	return m, nil
}

// PredictSuccess returns the probability that the given strategy context is
// profitable, rounded to 4 decimal places.
func (m *ContextModel) PredictSuccess(_ context.Context, strategy string, hour, weekday int) (float64, error) {
	if m.artifact == nil {
		return 0, ErrModelAbsent
	}

	a := m.artifact
	z := a.Intercept
	z += a.Weights["strategy="+strategy]
	z += a.Weights["hour="+strconv.Itoa(hour)]
	z += a.Weights["dayofweek="+strconv.Itoa(weekday)]

	return utils.Round4(sigmoid(z)), nil
}

func ordinal(categories []string, value string) float64 {
	for i, c := range categories {
		if c == value {
			return float64(i)
		}
	}
	return -1
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
