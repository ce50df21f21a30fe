// Package utils provides utility functions for the signal engine.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// GenerateID generates a unique ID with optional prefix.
func GenerateID(prefix string) string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	id := hex.EncodeToString(bytes)
	if prefix != "" {
		return fmt.Sprintf("%s_%s", prefix, id)
	}
	return id
}

// GenerateSignalID generates a unique signal ID.
func GenerateSignalID() string {
	return GenerateID("sig")
}

// GenerateEvalID generates a unique evaluation ID.
func GenerateEvalID() string {
	return GenerateID("eval")
}

// FormatSymbol normalizes a ticker symbol: trimmed, uppercased.
func FormatSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Round4 rounds to 4 decimal places, the precision used throughout the
// scoring pipeline for risk percentages and blended scores.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Mean returns the arithmetic mean of the values, 0 for an empty slice.
func Mean(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
