// Package types provides shared type definitions for the signal engine.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the side of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = ""
)

// Regime represents the coarse market-state classification.
type Regime string

const (
	RegimeBull     Regime = "bull"
	RegimeBear     Regime = "bear"
	RegimeSideways Regime = "sideways"
)

// SignalStatus discriminates accepted from rejected evaluations.
type SignalStatus string

const (
	StatusAccepted SignalStatus = "accepted"
	StatusRejected SignalStatus = "rejected"
)

// ReasonCode identifies why a signal was rejected. Empty for accepted signals.
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonNoCrossover        ReasonCode = "no_crossover"
	ReasonTimeframeMismatch  ReasonCode = "timeframe_mismatch"
	ReasonTimeVolumeFilter   ReasonCode = "time_volume_filter"
	ReasonContextModelFilter ReasonCode = "context_model_filter"
)

// DNATag is a categorical label describing the micro price-action pattern
// preceding a signal. The vocabulary is fixed but extensible.
type DNATag string

const (
	TagBreakout     DNATag = "breakout"
	TagVWAPCurl     DNATag = "vwap_curl"
	TagPullback     DNATag = "pullback"
	TagBreakdown    DNATag = "breakdown"
	TagVWAPFade     DNATag = "vwap_fade"
	TagFade         DNATag = "fade"
	TagUnclassified DNATag = "unclassified"
)

// Timeframe represents trading timeframes.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// OHLCV represents a single candlestick as ingested from a market data feed.
type OHLCV struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// IndicatorSnapshot holds the derived indicator series for one timeframe.
// All series are aligned by index with the most recent bar last. A snapshot
// is built fresh per evaluation and never mutated during a routing pass.
type IndicatorSnapshot struct {
	Symbol     string    `json:"symbol"`
	Timeframe  Timeframe `json:"timeframe"`
	SMAShort   []float64 `json:"smaShort"`
	SMALong    []float64 `json:"smaLong"`
	Open       []float64 `json:"open"`
	High       []float64 `json:"high"`
	Low        []float64 `json:"low"`
	Close      []float64 `json:"close"`
	Volatility []float64 `json:"volatility"`
	VWAP       []float64 `json:"vwap"`
}

// Validate checks series alignment: every populated series must share the
// length of SMAShort, and the moving-average series must be non-empty.
func (s *IndicatorSnapshot) Validate() error {
	n := len(s.SMAShort)
	if n == 0 {
		return fmt.Errorf("snapshot %s/%s: empty moving-average series", s.Symbol, s.Timeframe)
	}
	if len(s.SMALong) != n {
		return fmt.Errorf("snapshot %s/%s: smaLong length %d != %d", s.Symbol, s.Timeframe, len(s.SMALong), n)
	}
	for name, series := range map[string][]float64{
		"open": s.Open, "high": s.High, "low": s.Low,
		"close": s.Close, "volatility": s.Volatility, "vwap": s.VWAP,
	} {
		if len(series) != 0 && len(series) != n {
			return fmt.Errorf("snapshot %s/%s: %s length %d != %d", s.Symbol, s.Timeframe, name, len(series), n)
		}
	}
	return nil
}

// Bars returns the number of aligned bars in the snapshot.
func (s *IndicatorSnapshot) Bars() int { return len(s.SMAShort) }

// Latest returns the most recent value of a series. The caller guarantees the
// series is non-empty (Validate enforces this for the MA series).
func Latest(series []float64) float64 { return series[len(series)-1] }

// Signal is the central entity of the routing pipeline. A signal is created
// per evaluation and never mutated after it has been logged.
type Signal struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	Strategy     string       `json:"strategy"`
	Direction    Direction    `json:"direction"`
	RuleScore    float64      `json:"ruleScore"`
	Regime       Regime       `json:"regime"`
	RegimeWeight float64      `json:"regimeWeight"`
	DNATag       DNATag       `json:"dnaTag"`
	RiskPct      float64      `json:"riskPct"`
	MLScore      float64      `json:"mlScore"`
	ContextScore *float64     `json:"contextScore,omitempty"` // nil when no context model exists
	FinalScore   float64      `json:"finalScore"`
	Status       SignalStatus `json:"status"`
	Reason       ReasonCode   `json:"reason,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Accepted reports whether the signal passed every filter stage.
func (s *Signal) Accepted() bool { return s.Status == StatusAccepted }

// DirectionalSignal is the minimal projection used by the multi-timeframe
// confirmation filter: just a symbol and a resolved direction. A flat
// crossover yields DirectionNone.
type DirectionalSignal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
}

// TradeOutcome records the realized result of a previously accepted signal.
// Outcomes are appended by the outcome-tracking collaborator, never by the
// router, and feed promotion tracking and model retraining.
type TradeOutcome struct {
	SignalID   string          `json:"signalId"`
	Symbol     string          `json:"symbol"`
	Strategy   string          `json:"strategy"`
	EntryTime  time.Time       `json:"entryTime"`
	ExitTime   time.Time       `json:"exitTime"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	PnL        decimal.Decimal `json:"pnl"`
	IsWin      bool            `json:"isWin"`
}
