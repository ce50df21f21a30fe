// Package allocation tracks per-strategy capital and risk allocation records.
package allocation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record is the allocation state for one strategy. Records are created with
// defaults on first reference, mutated only by operator action, and never
// auto-deleted.
type Record struct {
	Strategy    string    `json:"strategy"`
	Enabled     bool      `json:"enabled"`
	CapitalPct  float64   `json:"capitalPct"` // 0-100
	RiskPct     float64   `json:"riskPct"`    // percent per trade
	LastUpdated time.Time `json:"lastUpdated"`
}

const (
	defaultCapitalPct = 10
	defaultRiskPct    = 1.0
)

// Update carries optional operator changes; nil fields are left unchanged.
type Update struct {
	CapitalPct *float64
	RiskPct    *float64
	Enabled    *bool
}

// Store is the mutex-guarded, JSON-persisted allocation state.
type Store struct {
	logger *zap.Logger
	path   string

	mu      sync.Mutex
	records map[string]*Record
}

// NewStore loads (or initializes) allocation state under dataDir.
func NewStore(logger *zap.Logger, dataDir string) (*Store, error) {
	s := &Store{
		logger:  logger.Named("allocation"),
		path:    filepath.Join(dataDir, "allocation_state.json"),
		records: make(map[string]*Record),
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allocation state: %w", err)
	}
	if err := json.Unmarshal(raw, &s.records); err != nil {
		return nil, fmt.Errorf("parse allocation state: %w", err)
	}
	return s, nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal allocation state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write allocation state: %w", err)
	}
	return nil
}

// Apply updates a strategy's allocation, creating a default record on first
// reference. Over-allocation (enabled capital above 100%) is flagged for
// operator review, not enforced.
func (s *Store) Apply(strategy string, update Update) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[strategy]
	if !ok {
		rec = &Record{
			Strategy:   strategy,
			Enabled:    true,
			CapitalPct: defaultCapitalPct,
			RiskPct:    defaultRiskPct,
		}
		s.records[strategy] = rec
	}

	if update.CapitalPct != nil {
		rec.CapitalPct = *update.CapitalPct
	}
	if update.RiskPct != nil {
		rec.RiskPct = *update.RiskPct
	}
	if update.Enabled != nil {
		rec.Enabled = *update.Enabled
	}
	rec.LastUpdated = time.Now()

	if err := s.save(); err != nil {
		return Record{}, err
	}

	if total := s.enabledCapital(); total > 100 {
		s.logger.Warn("enabled capital allocation exceeds 100%",
			zap.Float64("totalCapitalPct", total),
		)
	}
	return *rec, nil
}

// Get returns a copy of a strategy's record, creating defaults on first
// reference without persisting them.
func (s *Store) Get(strategy string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[strategy]; ok {
		return *rec
	}
	return Record{
		Strategy:   strategy,
		Enabled:    true,
		CapitalPct: defaultCapitalPct,
		RiskPct:    defaultRiskPct,
	}
}

// Snapshot returns a copy of all allocation records.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record, len(s.records))
	for name, rec := range s.records {
		out[name] = *rec
	}
	return out
}

// OverAllocated reports whether enabled strategies sum above 100% capital.
func (s *Store) OverAllocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabledCapital() > 100
}

// enabledCapital sums CapitalPct over enabled records; caller holds the lock.
func (s *Store) enabledCapital() float64 {
	total := 0.0
	for _, rec := range s.records {
		if rec.Enabled {
			total += rec.CapitalPct
		}
	}
	return total
}
