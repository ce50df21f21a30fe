package filters_test

import (
	"testing"
	"time"

	"github.com/shareseek/signal-engine/internal/filters"
	"github.com/shareseek/signal-engine/pkg/types"
)

func TestConfirmTimeframes(t *testing.T) {
	cases := []struct {
		name     string
		short    types.DirectionalSignal
		long     types.DirectionalSignal
		expected bool
	}{
		{
			"matching long directions confirm",
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionLong},
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionLong},
			true,
		},
		{
			"matching short directions confirm",
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionShort},
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionShort},
			true,
		},
		{
			"opposing directions do not confirm",
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionLong},
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionShort},
			false,
		},
		{
			"flat long timeframe never confirms",
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionNone},
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionNone},
			false,
		},
		{
			"different symbols do not confirm",
			types.DirectionalSignal{Symbol: "AAPL", Direction: types.DirectionLong},
			types.DirectionalSignal{Symbol: "MSFT", Direction: types.DirectionLong},
			false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := filters.ConfirmTimeframes(c.short, c.long); got != c.expected {
				t.Errorf("ConfirmTimeframes = %v, want %v", got, c.expected)
			}
		})
	}
}

func at(hour, minute int) time.Time {
	// A Tuesday.
	return time.Date(2024, 3, 5, hour, minute, 0, 0, time.UTC)
}

func TestAdmitTimeVolume(t *testing.T) {
	const minVolume = 1_000_000

	cases := []struct {
		name     string
		now      time.Time
		volume   float64
		expected bool
	}{
		{"opening hour with ample volume", at(9, 45), 1_250_000, true},
		{"afternoon window", at(15, 30), 2_000_000, true},
		{"volume floor is inclusive", at(9, 30), 1_000_000, true},
		{"volume just below floor", at(9, 30), 999_999, false},
		{"window upper bound is exclusive", at(10, 0), 2_000_000, false},
		{"midday is outside every window", at(12, 0), 2_000_000, false},
		{"before the open", at(8, 59), 2_000_000, false},
		{"window start is inclusive", at(9, 0), 2_000_000, true},
		{"good hour with thin volume", at(15, 30), 500_000, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := filters.AdmitTimeVolume(c.now, c.volume, minVolume); got != c.expected {
				t.Errorf("AdmitTimeVolume(%s, %.0f) = %v, want %v",
					c.now.Format("15:04"), c.volume, got, c.expected)
			}
		})
	}
}
