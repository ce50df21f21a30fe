// Package promotion tracks per-symbol paper-to-live graduation state.
package promotion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shareseek/signal-engine/internal/events"
	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// Mode is a symbol's trading mode.
type Mode string

const (
	ModePaper   Mode = "paper"
	ModeLive    Mode = "live"
	ModeBlocked Mode = "blocked"
)

// SymbolRecord is the graduation state for one symbol. Records are created on
// the first trade outcome and kept forever as a historical record.
type SymbolRecord struct {
	Mode               Mode      `json:"mode"`
	Trades             int       `json:"trades"`
	Wins               int       `json:"wins"`
	Losses             int       `json:"losses"`
	LastPromotionCheck time.Time `json:"lastPromotionCheck"`
	Blocked            bool      `json:"blocked"`
}

// WinRate returns the symbol's historical win rate, 0 with no trades.
func (r *SymbolRecord) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Criteria are the thresholds a paper symbol must clear to go live.
type Criteria struct {
	MinTrades  int
	MinWinRate float64
}

// DefaultCriteria returns the standard graduation thresholds.
func DefaultCriteria() Criteria {
	return Criteria{MinTrades: 10, MinWinRate: 0.55}
}

// Store is the mutex-guarded, JSON-persisted promotion state.
type Store struct {
	logger   *zap.Logger
	criteria Criteria
	path     string
	bus      *events.EventBus

	mu      sync.Mutex
	records map[string]*SymbolRecord
}

// NewStore loads (or initializes) promotion state under dataDir. The event
// bus is optional.
func NewStore(logger *zap.Logger, dataDir string, criteria Criteria, bus *events.EventBus) (*Store, error) {
	s := &Store{
		logger:   logger.Named("promotion"),
		criteria: criteria,
		path:     filepath.Join(dataDir, "symbol_status.json"),
		bus:      bus,
		records:  make(map[string]*SymbolRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read promotion state: %w", err)
	}
	if err := json.Unmarshal(raw, &s.records); err != nil {
		return fmt.Errorf("parse promotion state: %w", err)
	}
	s.logger.Info("promotion state loaded", zap.Int("symbols", len(s.records)))
	return nil
}

// save persists the full state; the caller holds the lock.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal promotion state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write promotion state: %w", err)
	}
	return nil
}

// RecordOutcome updates a symbol's trade statistics from one outcome,
// creating a paper record on first sight.
func (s *Store) RecordOutcome(outcome types.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[outcome.Symbol]
	if !ok {
		rec = &SymbolRecord{Mode: ModePaper}
		s.records[outcome.Symbol] = rec
	}

	rec.Trades++
	if outcome.IsWin {
		rec.Wins++
	} else {
		rec.Losses++
	}
	rec.LastPromotionCheck = time.Now()

	return s.save()
}

// EvaluatePromotion promotes a paper symbol to live when it has cleared the
// criteria. Blocked is a terminal override: blocked symbols are never
// evaluated. Returns whether a promotion happened.
func (s *Store) EvaluatePromotion(symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[symbol]
	if !ok || rec.Mode != ModePaper || rec.Blocked {
		return false, nil
	}
	if rec.Trades < s.criteria.MinTrades || rec.WinRate() < s.criteria.MinWinRate {
		return false, nil
	}

	rec.Mode = ModeLive
	if err := s.save(); err != nil {
		return false, err
	}

	s.logger.Info("symbol promoted to live",
		zap.String("symbol", symbol),
		zap.Int("trades", rec.Trades),
		zap.Float64("winRate", rec.WinRate()),
	)
	if s.bus != nil {
		s.bus.Publish(&events.PromotionEvent{
			BaseEvent: events.NewBaseEvent(events.EventTypePromotion),
			Symbol:    symbol,
			Trades:    rec.Trades,
			WinRate:   rec.WinRate(),
		})
	}
	return true, nil
}

// SetMode forces a symbol's mode from operator action. Setting ModeBlocked
// also sets the terminal Blocked flag.
func (s *Store) SetMode(symbol string, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[symbol]
	if !ok {
		rec = &SymbolRecord{}
		s.records[symbol] = rec
	}
	rec.Mode = mode
	if mode == ModeBlocked {
		rec.Blocked = true
	}
	return s.save()
}

// Get returns a copy of a symbol's record.
func (s *Store) Get(symbol string) (SymbolRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[symbol]
	if !ok {
		return SymbolRecord{}, false
	}
	return *rec, true
}

// WinRate returns a symbol's historical win rate from recorded outcomes.
// The second return is false when the symbol has no outcome history yet.
func (s *Store) WinRate(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[symbol]
	if !ok || rec.Trades == 0 {
		return 0, false
	}
	return rec.WinRate(), true
}

// Snapshot returns a copy of the full promotion state.
func (s *Store) Snapshot() map[string]SymbolRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]SymbolRecord, len(s.records))
	for sym, rec := range s.records {
		out[sym] = *rec
	}
	return out
}

// LiveCount returns the number of symbols in live mode.
func (s *Store) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		if rec.Mode == ModeLive {
			n++
		}
	}
	return n
}
