package signallog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

var outcomeHeader = []string{
	"signal_id", "symbol", "strategy", "entry_time", "exit_time",
	"entry_price", "exit_price", "pnl", "result",
}

// OutcomeLog is the append-only trade outcome trail written by the
// outcome-tracking collaborator. It feeds promotion tracking and the offline
// retraining pipeline.
type OutcomeLog struct {
	logger *zap.Logger
	path   string
	mu     sync.Mutex
}

// NewOutcomeLog opens (or creates) the outcome log at path.
func NewOutcomeLog(logger *zap.Logger, path string) (*OutcomeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create outcome log dir: %w", err)
	}

	l := &OutcomeLog{logger: logger.Named("outcomelog"), path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create outcome log: %w", err)
		}
		defer f.Close()
		w := csv.NewWriter(f)
		if err := w.Write(outcomeHeader); err != nil {
			return nil, fmt.Errorf("write outcome log header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Append writes one trade outcome.
func (l *OutcomeLog) Append(o types.TradeOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outcome log for append: %w", err)
	}
	defer f.Close()

	result := "loss"
	if o.IsWin {
		result = "win"
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		o.SignalID,
		o.Symbol,
		o.Strategy,
		o.EntryTime.Format(time.RFC3339Nano),
		o.ExitTime.Format(time.RFC3339Nano),
		o.EntryPrice.String(),
		o.ExitPrice.String(),
		o.PnL.String(),
		result,
	}); err != nil {
		return fmt.Errorf("append outcome row: %w", err)
	}
	w.Flush()
	return w.Error()
}
