// Package engine drives the routing pipeline: one evaluation pass per
// (symbol, tick) fanned out over the worker pool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shareseek/signal-engine/internal/health"
	"github.com/shareseek/signal-engine/internal/router"
	"github.com/shareseek/signal-engine/internal/workers"
	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// EvalInputs is what the data-preparation collaborator supplies per symbol
// per tick.
type EvalInputs struct {
	Short     *types.IndicatorSnapshot
	Long      *types.IndicatorSnapshot
	AvgVolume float64
	WinRate   float64
}

// SnapshotProvider prepares the indicator snapshots for one symbol. Fetching
// and indicator derivation live outside the pipeline; the engine only
// consumes the result.
type SnapshotProvider interface {
	Prepare(ctx context.Context, symbol string) (*EvalInputs, error)
}

// Config configures the polling engine.
type Config struct {
	Symbols      []string
	Strategy     string
	PollInterval time.Duration
}

// Engine owns the polling lifecycle: every interval it walks the symbol
// universe, consults the strategy health store, and schedules independent
// evaluation passes on the pool.
type Engine struct {
	logger   *zap.Logger
	config   Config
	provider SnapshotProvider
	router   *router.Router
	pool     *workers.Pool
	healthy  *health.StrategyHealthStore

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a polling engine.
func New(
	logger *zap.Logger,
	config Config,
	provider SnapshotProvider,
	r *router.Router,
	pool *workers.Pool,
	healthy *health.StrategyHealthStore,
) *Engine {
	return &Engine{
		logger:   logger.Named("engine"),
		config:   config,
		provider: provider,
		router:   r,
		pool:     pool,
		healthy:  healthy,
	}
}

// Start begins polling. The pool must already be started.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("engine: already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})

	e.logger.Info("engine starting",
		zap.Strings("symbols", e.config.Symbols),
		zap.String("strategy", e.config.Strategy),
		zap.Duration("pollInterval", e.config.PollInterval),
	)
	go e.loop()
	return nil
}

func (e *Engine) loop() {
	defer close(e.done)
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	// First pass immediately rather than waiting out a full interval.
	e.tick(time.Now())
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

// tick schedules one evaluation pass per admissible symbol.
func (e *Engine) tick(now time.Time) {
	for _, symbol := range e.config.Symbols {
		if !e.healthy.Allowed(e.config.Strategy, symbol, now) {
			e.logger.Debug("symbol not admissible",
				zap.String("symbol", symbol),
				zap.String("strategy", e.config.Strategy),
			)
			continue
		}

		sym := symbol
		task := workers.TaskFunc(func(ctx context.Context) error {
			return e.evaluate(ctx, sym, now)
		})
		if err := e.pool.Submit(task); err != nil {
			e.logger.Warn("evaluation skipped",
				zap.String("symbol", sym),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) evaluate(ctx context.Context, symbol string, now time.Time) error {
	inputs, err := e.provider.Prepare(ctx, symbol)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", symbol, err)
	}

	_, err = e.router.Evaluate(ctx, router.EvalRequest{
		Symbol:    symbol,
		Strategy:  e.config.Strategy,
		Short:     inputs.Short,
		Long:      inputs.Long,
		Now:       now,
		AvgVolume: inputs.AvgVolume,
		WinRate:   inputs.WinRate,
	})
	return err
}

// Stop halts scheduling. In-flight evaluations finish on the pool.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	<-e.done
	e.logger.Info("engine stopped")
}
