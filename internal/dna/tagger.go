// Package dna classifies recent price action into a categorical tag used as a
// model feature ("signal DNA").
package dna

import (
	"github.com/shareseek/signal-engine/pkg/types"
)

// ErrKind enumerates the recoverable data faults the tagger can encounter.
// The router maps any non-zero kind to types.TagUnclassified rather than
// aborting the evaluation pass.
type ErrKind int

const (
	ErrNone ErrKind = iota
	ErrMissingColumns
	ErrInsufficientData
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrMissingColumns:
		return "missing_columns"
	case ErrInsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// lookback is the window (in bars, excluding the latest) scanned for the
// recent high/low used by the breakout and breakdown rules.
const lookback = 9

// Tag classifies the latest bar of the snapshot against a short lookback
// window. The fallback when no rule matches is types.TagUnclassified with
// ErrNone: an unclassified pattern is a valid result, not a fault.
func Tag(direction types.Direction, snap *types.IndicatorSnapshot) (types.DNATag, ErrKind) {
	if len(snap.Low) == 0 || len(snap.High) == 0 || len(snap.Open) == 0 || len(snap.Close) == 0 || len(snap.VWAP) == 0 {
		return types.TagUnclassified, ErrMissingColumns
	}
	n := len(snap.Close)
	if n < 2 || len(snap.Low) < 2 || len(snap.High) < 2 {
		return types.TagUnclassified, ErrInsufficientData
	}

	close := snap.Close[n-1]
	open := snap.Open[n-1]
	vwap := snap.VWAP[n-1]

	switch direction {
	case types.DirectionLong:
		if close > windowMax(snap.High[:n-1]) {
			return types.TagBreakout, ErrNone
		}
		if close < vwap {
			return types.TagVWAPCurl, ErrNone
		}
		if snap.Low[n-1] < snap.Low[n-2] && close > open {
			return types.TagPullback, ErrNone
		}
	case types.DirectionShort:
		if close < windowMin(snap.Low[:n-1]) {
			return types.TagBreakdown, ErrNone
		}
		if close > vwap {
			return types.TagVWAPFade, ErrNone
		}
		if snap.High[n-1] > snap.High[n-2] && close < open {
			return types.TagFade, ErrNone
		}
	}

	return types.TagUnclassified, ErrNone
}

// windowMax returns the maximum of the last lookback elements.
func windowMax(series []float64) float64 {
	start := len(series) - lookback
	if start < 0 {
		start = 0
	}
	max := series[start]
	for _, v := range series[start+1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// windowMin returns the minimum of the last lookback elements.
func windowMin(series []float64) float64 {
	start := len(series) - lookback
	if start < 0 {
		start = 0
	}
	min := series[start]
	for _, v := range series[start+1:] {
		if v < min {
			min = v
		}
	}
	return min
}
