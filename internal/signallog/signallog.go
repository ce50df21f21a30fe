// Package signallog provides the append-only record of every routing
// decision, accepted or rejected.
package signallog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// Row is one persisted decision. Entry/exit/PnL are written empty by the
// router and populated later by the outcome tracker through the outcome log,
// never by editing this file.
type Row struct {
	ID           string
	Timestamp    time.Time
	Symbol       string
	Strategy     string
	Direction    types.Direction
	RuleScore    float64
	Regime       types.Regime
	RegimeWeight float64
	DNATag       types.DNATag
	RiskPct      float64
	MLScore      float64
	ContextScore *float64
	FinalScore   float64
	Status       types.SignalStatus
	Reason       types.ReasonCode
}

// RowOf builds a log row from a finalized signal.
func RowOf(sig *types.Signal) Row {
	return Row{
		ID:           sig.ID,
		Timestamp:    sig.CreatedAt,
		Symbol:       sig.Symbol,
		Strategy:     sig.Strategy,
		Direction:    sig.Direction,
		RuleScore:    sig.RuleScore,
		Regime:       sig.Regime,
		RegimeWeight: sig.RegimeWeight,
		DNATag:       sig.DNATag,
		RiskPct:      sig.RiskPct,
		MLScore:      sig.MLScore,
		ContextScore: sig.ContextScore,
		FinalScore:   sig.FinalScore,
		Status:       sig.Status,
		Reason:       sig.Reason,
	}
}

// Log is the decision trail contract the router writes to.
type Log interface {
	Append(row Row) error
}

var header = []string{
	"id", "timestamp", "symbol", "strategy", "direction",
	"rule_score", "regime", "regime_weight", "dna_tag", "risk_pct",
	"ml_score", "context_score", "final_score", "status", "reason",
	"entry_price", "exit_price", "pnl",
}

// CSVLog is a single-writer append-only CSV log. Concurrent evaluations
// across symbols serialize on the writer mutex so rows never interleave.
type CSVLog struct {
	logger *zap.Logger
	path   string

	mu       sync.Mutex
	lastTime time.Time
	recent   []Row
	maxTail  int
	counts   map[types.ReasonCode]int
	accepted int
}

// NewCSVLog opens (or creates) the signal log at path, writing the header on
// create and rebuilding the rejection summary from existing rows.
func NewCSVLog(logger *zap.Logger, path string) (*CSVLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	l := &CSVLog{
		logger:  logger.Named("signallog"),
		path:    path,
		maxTail: 512,
		counts:  make(map[types.ReasonCode]int),
	}
	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *CSVLog) init() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		out, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("create signal log: %w", err)
		}
		defer out.Close()
		w := csv.NewWriter(out)
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write signal log header: %w", err)
		}
		w.Flush()
		return w.Error()
	}
	if err != nil {
		return fmt.Errorf("open signal log: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read signal log: %w", err)
	}
	for i, rec := range records {
		if i == 0 || len(rec) < len(header) {
			continue
		}
		switch types.SignalStatus(rec[13]) {
		case types.StatusAccepted:
			l.accepted++
		case types.StatusRejected:
			l.counts[types.ReasonCode(rec[14])]++
		}
		if ts, err := time.Parse(time.RFC3339Nano, rec[1]); err == nil && ts.After(l.lastTime) {
			l.lastTime = ts
		}
	}
	return nil
}

// Append writes one decision row. Timestamps are forced monotonic
// non-decreasing across rows.
func (l *CSVLog) Append(row Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if row.Timestamp.Before(l.lastTime) {
		row.Timestamp = l.lastTime
	}
	l.lastTime = row.Timestamp

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open signal log for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(encode(row)); err != nil {
		return fmt.Errorf("append signal log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush signal log: %w", err)
	}

	if row.Status == types.StatusAccepted {
		l.accepted++
	} else {
		l.counts[row.Reason]++
	}
	l.recent = append(l.recent, row)
	if len(l.recent) > l.maxTail {
		l.recent = l.recent[len(l.recent)-l.maxTail:]
	}
	return nil
}

func encode(row Row) []string {
	contextScore := ""
	if row.ContextScore != nil {
		contextScore = formatFloat(*row.ContextScore)
	}
	return []string{
		row.ID,
		row.Timestamp.Format(time.RFC3339Nano),
		row.Symbol,
		row.Strategy,
		string(row.Direction),
		formatFloat(row.RuleScore),
		string(row.Regime),
		formatFloat(row.RegimeWeight),
		string(row.DNATag),
		formatFloat(row.RiskPct),
		formatFloat(row.MLScore),
		contextScore,
		formatFloat(row.FinalScore),
		string(row.Status),
		string(row.Reason),
		"", // entry_price
		"", // exit_price
		"", // pnl
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Tail returns up to n of the most recent rows appended this session.
func (l *CSVLog) Tail(n int) []Row {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.recent) {
		n = len(l.recent)
	}
	out := make([]Row, n)
	copy(out, l.recent[len(l.recent)-n:])
	return out
}

// RejectionSummary returns rejection counts by reason plus the total of
// accepted rows, covering the whole file including prior sessions.
func (l *CSVLog) RejectionSummary() (map[types.ReasonCode]int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[types.ReasonCode]int, len(l.counts))
	for reason, count := range l.counts {
		out[reason] = count
	}
	return out, l.accepted
}
