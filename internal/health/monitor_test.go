package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shareseek/signal-engine/internal/health"
	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLogWith(t *testing.T, dir string, accepted, rejected int) *signallog.CSVLog {
	t.Helper()
	log, err := signallog.NewCSVLog(zap.NewNop(), filepath.Join(dir, "signals.csv"))
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < accepted; i++ {
		require.NoError(t, log.Append(signallog.Row{
			ID: "a", Timestamp: now, Symbol: "AAPL",
			Status: types.StatusAccepted,
		}))
	}
	for i := 0; i < rejected; i++ {
		require.NoError(t, log.Append(signallog.Row{
			ID: "r", Timestamp: now, Symbol: "AAPL",
			Status: types.StatusRejected, Reason: types.ReasonNoCrossover,
		}))
	}
	return log
}

func TestCheckReportsMissingModel(t *testing.T) {
	dir := t.TempDir()
	monitor := health.NewMonitor(zap.NewNop(), health.MonitorConfig{
		ModelPath:  filepath.Join(dir, "missing.json"),
		ReportPath: filepath.Join(dir, "report.json"),
	}, newLogWith(t, dir, 3, 1), nil)

	report, err := monitor.Check()
	require.NoError(t, err)
	require.False(t, report.ModelFresh)
	require.Contains(t, report.ModelStatus, "no model artifact")
	require.Equal(t, 3, report.AcceptedTotal)
	require.InDelta(t, 0.25, report.RejectionRate, 1e-9)
}

func TestCheckReportsFreshModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("{}"), 0o644))

	monitor := health.NewMonitor(zap.NewNop(), health.MonitorConfig{
		ModelPath:  modelPath,
		ReportPath: filepath.Join(dir, "report.json"),
	}, newLogWith(t, dir, 1, 0), nil)

	report, err := monitor.Check()
	require.NoError(t, err)
	require.True(t, report.ModelFresh)
	require.Equal(t, 0, report.ModelAgeDays)
}

func TestCheckExportsReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	monitor := health.NewMonitor(zap.NewNop(), health.MonitorConfig{
		ModelPath:  filepath.Join(dir, "missing.json"),
		ReportPath: reportPath,
	}, newLogWith(t, dir, 2, 2), nil)

	_, err := monitor.Check()
	require.NoError(t, err)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var exported health.Report
	require.NoError(t, json.Unmarshal(raw, &exported))
	require.Equal(t, 2, exported.AcceptedTotal)
	require.Equal(t, 2, exported.RejectionSummary[types.ReasonNoCrossover])
}

func TestCheckAlertsOnStaleModel(t *testing.T) {
	var alerts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	monitor := health.NewMonitor(zap.NewNop(), health.MonitorConfig{
		ModelPath:       filepath.Join(dir, "missing.json"),
		ReportPath:      filepath.Join(dir, "report.json"),
		AlertWebhookURL: server.URL,
	}, newLogWith(t, dir, 1, 0), nil)

	_, err := monitor.Check()
	require.NoError(t, err)
	require.Equal(t, 1, alerts)
}
