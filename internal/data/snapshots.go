package data

import (
	"context"
	"fmt"
	"math"

	"github.com/shareseek/signal-engine/internal/engine"
	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// Moving-average periods for the crossover rule.
const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
)

// volumeLookback is the bar count averaged for the volume gate input.
const volumeLookback = 20

// WinRateSource supplies the historical win rate fed into risk sizing.
// The promotion store implements this from recorded trade outcomes.
type WinRateSource interface {
	WinRate(symbol string) (float64, bool)
}

// SnapshotProvider derives per-evaluation indicator snapshots from stored
// bars. It implements engine.SnapshotProvider.
type SnapshotProvider struct {
	logger         *zap.Logger
	store          *Store
	winRates       WinRateSource
	shortTimeframe types.Timeframe
	longTimeframe  types.Timeframe
	defaultWinRate float64
}

// NewSnapshotProvider creates a snapshot provider over the bar store.
// winRates may be nil; symbols without outcome history fall back to
// defaultWinRate either way.
func NewSnapshotProvider(logger *zap.Logger, store *Store, winRates WinRateSource) *SnapshotProvider {
	return &SnapshotProvider{
		logger:         logger.Named("snapshots"),
		store:          store,
		winRates:       winRates,
		shortTimeframe: types.Timeframe5m,
		longTimeframe:  types.Timeframe1d,
		defaultWinRate: 0.6,
	}
}

// Prepare builds the short and long timeframe snapshots for one symbol.
func (p *SnapshotProvider) Prepare(ctx context.Context, symbol string) (*engine.EvalInputs, error) {
	short, avgVolume, err := p.snapshot(ctx, symbol, p.shortTimeframe)
	if err != nil {
		return nil, err
	}
	long, _, err := p.snapshot(ctx, symbol, p.longTimeframe)
	if err != nil {
		return nil, err
	}

	winRate := p.defaultWinRate
	if p.winRates != nil {
		if wr, ok := p.winRates.WinRate(symbol); ok {
			winRate = wr
		}
	}

	return &engine.EvalInputs{
		Short:     short,
		Long:      long,
		AvgVolume: avgVolume,
		WinRate:   winRate,
	}, nil
}

func (p *SnapshotProvider) snapshot(ctx context.Context, symbol string, tf types.Timeframe) (*types.IndicatorSnapshot, float64, error) {
	bars, err := p.store.LoadBars(ctx, symbol, tf)
	if err != nil {
		return nil, 0, err
	}
	if len(bars) < smaLongPeriod+1 {
		return nil, 0, fmt.Errorf("%s/%s: need at least %d bars, have %d", symbol, tf, smaLongPeriod+1, len(bars))
	}

	n := len(bars)
	closes := make([]float64, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, bar := range bars {
		opens[i], _ = bar.Open.Float64()
		highs[i], _ = bar.High.Float64()
		lows[i], _ = bar.Low.Float64()
		closes[i], _ = bar.Close.Float64()
		volumes[i], _ = bar.Volume.Float64()
	}

	snap := &types.IndicatorSnapshot{
		Symbol:     symbol,
		Timeframe:  tf,
		SMAShort:   sma(closes, smaShortPeriod),
		SMALong:    sma(closes, smaLongPeriod),
		Open:       opens,
		High:       highs,
		Low:        lows,
		Close:      closes,
		Volatility: rollingVolatility(closes, smaShortPeriod),
		VWAP:       vwap(closes, highs, lows, volumes),
	}
	// Trim price series to the SMA-aligned length so all series share
	// one index space with the most recent bar last.
	offset := n - len(snap.SMALong)
	snap.SMAShort = snap.SMAShort[len(snap.SMAShort)-len(snap.SMALong):]
	snap.Open = opens[offset:]
	snap.High = highs[offset:]
	snap.Low = lows[offset:]
	snap.Close = closes[offset:]
	snap.Volatility = snap.Volatility[len(snap.Volatility)-len(snap.SMALong):]
	snap.VWAP = snap.VWAP[offset:]

	if err := snap.Validate(); err != nil {
		return nil, 0, err
	}
	return snap, avgTail(volumes, volumeLookback), nil
}

// sma computes the simple moving average; output has len(series)-period+1
// values aligned to the tail of the input.
func sma(series []float64, period int) []float64 {
	if len(series) < period {
		return nil
	}
	out := make([]float64, 0, len(series)-period+1)
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// rollingVolatility is the standard deviation of simple returns over a
// trailing window, aligned to the tail of the input (one shorter than the
// close series because of the return calculation).
func rollingVolatility(closes []float64, window int) []float64 {
	if len(closes) < window+1 {
		return nil
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i-1] = closes[i]/closes[i-1] - 1
		}
	}

	out := make([]float64, 0, len(returns)-window+1)
	for i := window; i <= len(returns); i++ {
		out = append(out, stddev(returns[i-window:i]))
	}
	return out
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// vwap computes the cumulative volume-weighted average of the typical price.
func vwap(closes, highs, lows, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	cumPV := 0.0
	cumVol := 0.0
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumVol += volumes[i]
		if cumVol != 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

func avgTail(series []float64, n int) float64 {
	if len(series) == 0 {
		return 0
	}
	if n > len(series) {
		n = len(series)
	}
	sum := 0.0
	for _, v := range series[len(series)-n:] {
		sum += v
	}
	return sum / float64(n)
}
