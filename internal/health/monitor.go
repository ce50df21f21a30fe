package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shareseek/signal-engine/internal/events"
	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/pkg/types"
	"go.uber.org/zap"
)

// staleModelAge is how old a model artifact may be before retraining is
// flagged.
const staleModelAge = 14 * 24 * time.Hour

// alertRejectionFloor is the rejection count above which an alert fires.
const alertRejectionFloor = 10

// Report is one system health snapshot.
type Report struct {
	Timestamp        time.Time                `json:"timestamp"`
	ModelFresh       bool                     `json:"modelFresh"`
	ModelAgeDays     int                      `json:"modelAgeDays"`
	ModelStatus      string                   `json:"modelStatus"`
	RejectionSummary map[types.ReasonCode]int `json:"rejectionSummary"`
	AcceptedTotal    int                      `json:"acceptedTotal"`
	RejectionRate    float64                  `json:"rejectionRate"`
}

// MonitorConfig configures the system monitor.
type MonitorConfig struct {
	ModelPath       string // live model artifact to freshness-check
	ReportPath      string // exported JSON report location
	AlertWebhookURL string // optional operational alert hook
}

// Monitor periodically assesses model freshness and the rejection trail and
// surfaces degradation to the operational alert hook.
type Monitor struct {
	logger *zap.Logger
	config MonitorConfig
	log    *signallog.CSVLog
	bus    *events.EventBus
	client *http.Client
}

// NewMonitor creates a system monitor. The event bus is optional.
func NewMonitor(logger *zap.Logger, config MonitorConfig, log *signallog.CSVLog, bus *events.EventBus) *Monitor {
	return &Monitor{
		logger: logger.Named("monitor"),
		config: config,
		log:    log,
		bus:    bus,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Check builds a health report, exports it, publishes it, and alerts when the
// model is stale or rejections pile up.
func (m *Monitor) Check() (*Report, error) {
	report := m.buildReport()

	if err := m.export(report); err != nil {
		return nil, err
	}
	if m.bus != nil {
		m.bus.Publish(&events.HealthEvent{
			BaseEvent: events.NewBaseEvent(events.EventTypeHealth),
			Report:    report,
		})
	}

	rejections := 0
	for _, n := range report.RejectionSummary {
		rejections += n
	}
	if !report.ModelFresh || rejections > alertRejectionFloor {
		m.alert(report, rejections)
	}
	return report, nil
}

func (m *Monitor) buildReport() *Report {
	report := &Report{Timestamp: time.Now()}

	info, err := os.Stat(m.config.ModelPath)
	switch {
	case os.IsNotExist(err):
		report.ModelStatus = "no model artifact found, retraining may be needed"
	case err != nil:
		report.ModelStatus = fmt.Sprintf("model artifact unreadable: %v", err)
	default:
		age := time.Since(info.ModTime())
		report.ModelAgeDays = int(age.Hours() / 24)
		report.ModelFresh = age <= staleModelAge
		if report.ModelFresh {
			report.ModelStatus = fmt.Sprintf("model is %d days old", report.ModelAgeDays)
		} else {
			report.ModelStatus = fmt.Sprintf("model is %d days old, consider retraining", report.ModelAgeDays)
		}
	}

	summary, accepted := m.log.RejectionSummary()
	report.RejectionSummary = summary
	report.AcceptedTotal = accepted

	rejections := 0
	for _, n := range summary {
		rejections += n
	}
	if total := rejections + accepted; total > 0 {
		report.RejectionRate = float64(rejections) / float64(total)
	}
	return report
}

func (m *Monitor) export(report *Report) error {
	if m.config.ReportPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.config.ReportPath), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health report: %w", err)
	}
	if err := os.WriteFile(m.config.ReportPath, raw, 0o644); err != nil {
		return fmt.Errorf("write health report: %w", err)
	}
	return nil
}

// alert posts the degradation summary to the operational webhook. Alert
// delivery is best effort.
func (m *Monitor) alert(report *Report, rejections int) {
	if m.config.AlertWebhookURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"text": fmt.Sprintf("system health alert: %s; rejections=%d rate=%.4f",
			report.ModelStatus, rejections, report.RejectionRate),
	})
	if err != nil {
		return
	}

	resp, err := m.client.Post(m.config.AlertWebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		m.logger.Warn("health alert delivery failed", zap.Error(err))
		return
	}
	resp.Body.Close()
	m.logger.Info("health alert sent", zap.Int("status", resp.StatusCode))
}

// Run checks on an interval until stop is closed. Errors are logged, not
// fatal.
func (m *Monitor) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := m.Check(); err != nil {
				m.logger.Warn("health check failed", zap.Error(err))
			}
		}
	}
}
