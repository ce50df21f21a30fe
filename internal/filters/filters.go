// Package filters provides the stateless admission predicates applied by the
// signal router.
package filters

import (
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
)

// Intraday admission windows: hour is admitted when it falls in [start, end).
// The reference behavior gates trades to the opening hour and the 3pm hour
// only; kept exact until operations directs otherwise.
var admissionWindows = [][2]int{
	{9, 10},
	{15, 16},
}

// MinAvgVolume is the default average-volume floor (shares).
const MinAvgVolume = 1_000_000

// ConfirmTimeframes reports whether the short- and long-timeframe derived
// signals agree. A flat long-timeframe crossover has DirectionNone and never
// confirms.
func ConfirmTimeframes(short, long types.DirectionalSignal) bool {
	return short.Symbol == long.Symbol &&
		short.Direction != types.DirectionNone &&
		short.Direction == long.Direction
}

// AdmitTimeVolume reports whether an evaluation at the given wall-clock time
// with the given average volume is admissible. Both conditions must hold:
// the hour must fall in an admission window (half-open, upper-exclusive) and
// the average volume must meet the floor (inclusive).
func AdmitTimeVolume(now time.Time, avgVolume, minVolume float64) bool {
	return inAdmissionWindow(now.Hour()) && avgVolume >= minVolume
}

func inAdmissionWindow(hour int) bool {
	for _, w := range admissionWindows {
		if hour >= w[0] && hour < w[1] {
			return true
		}
	}
	return false
}
