package dna_test

import (
	"testing"

	"github.com/shareseek/signal-engine/internal/dna"
	"github.com/shareseek/signal-engine/pkg/types"
)

// flatSnapshot returns n bars of unremarkable price action around 100 where
// no tagging rule fires for a long signal.
func flatSnapshot(n int) *types.IndicatorSnapshot {
	snap := &types.IndicatorSnapshot{Symbol: "AAPL", Timeframe: types.Timeframe5m}
	for i := 0; i < n; i++ {
		snap.Open = append(snap.Open, 100)
		snap.High = append(snap.High, 101)
		snap.Low = append(snap.Low, 99)
		snap.Close = append(snap.Close, 100)
		snap.VWAP = append(snap.VWAP, 99.5)
		snap.SMAShort = append(snap.SMAShort, 100)
		snap.SMALong = append(snap.SMALong, 100)
	}
	return snap
}

func TestTagLong(t *testing.T) {
	t.Run("breakout above recent high", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.Close[last] = 102 // above every prior high of 101
		snap.VWAP[last] = 101.5

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagBreakout {
			t.Errorf("Tag = %s, want breakout", tag)
		}
	})

	t.Run("close below vwap curls", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.Close[last] = 100
		snap.VWAP[last] = 100.5

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagVWAPCurl {
			t.Errorf("Tag = %s, want vwap_curl", tag)
		}
	})

	t.Run("lower low with green close is pullback", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.Low[last] = 98 // below prior bar's low
		snap.Open[last] = 99.8
		snap.Close[last] = 100.2
		snap.VWAP[last] = 100 // close above vwap, curl rule does not fire

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagPullback {
			t.Errorf("Tag = %s, want pullback", tag)
		}
	})

	t.Run("no rule matches", func(t *testing.T) {
		snap := flatSnapshot(12)

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unclassified is a result, not a fault; got kind %s", kind)
		}
		if tag != types.TagUnclassified {
			t.Errorf("Tag = %s, want unclassified", tag)
		}
	})
}

func TestTagShort(t *testing.T) {
	t.Run("breakdown below recent low", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.Close[last] = 98 // below every prior low of 99
		snap.VWAP[last] = 98.5

		tag, kind := dna.Tag(types.DirectionShort, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagBreakdown {
			t.Errorf("Tag = %s, want breakdown", tag)
		}
	})

	t.Run("close above vwap fades", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.Close[last] = 100
		snap.VWAP[last] = 99.5

		tag, kind := dna.Tag(types.DirectionShort, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagVWAPFade {
			t.Errorf("Tag = %s, want vwap_fade", tag)
		}
	})

	t.Run("higher high with red close is fade", func(t *testing.T) {
		snap := flatSnapshot(12)
		last := len(snap.Close) - 1
		snap.High[last] = 102
		snap.Open[last] = 100.2
		snap.Close[last] = 99.8
		snap.VWAP[last] = 100 // close below vwap, fade-above rule does not fire

		tag, kind := dna.Tag(types.DirectionShort, snap)
		if kind != dna.ErrNone {
			t.Fatalf("Unexpected fault kind %s", kind)
		}
		if tag != types.TagFade {
			t.Errorf("Tag = %s, want fade", tag)
		}
	})
}

func TestTagDataFaults(t *testing.T) {
	t.Run("missing vwap series", func(t *testing.T) {
		snap := flatSnapshot(12)
		snap.VWAP = nil

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrMissingColumns {
			t.Fatalf("kind = %s, want missing_columns", kind)
		}
		if tag != types.TagUnclassified {
			t.Errorf("Tag = %s, want unclassified", tag)
		}
	})

	t.Run("single bar", func(t *testing.T) {
		snap := flatSnapshot(1)

		tag, kind := dna.Tag(types.DirectionLong, snap)
		if kind != dna.ErrInsufficientData {
			t.Fatalf("kind = %s, want insufficient_data", kind)
		}
		if tag != types.TagUnclassified {
			t.Errorf("Tag = %s, want unclassified", tag)
		}
	})
}

func TestBreakoutLookbackWindow(t *testing.T) {
	// A high spike 15 bars back sits outside the 9-bar lookback, so a close
	// above the recent window still counts as a breakout.
	snap := flatSnapshot(20)
	snap.High[4] = 150
	last := len(snap.Close) - 1
	snap.Close[last] = 102
	snap.VWAP[last] = 101.5

	tag, kind := dna.Tag(types.DirectionLong, snap)
	if kind != dna.ErrNone {
		t.Fatalf("Unexpected fault kind %s", kind)
	}
	if tag != types.TagBreakout {
		t.Errorf("Tag = %s, want breakout", tag)
	}
}
