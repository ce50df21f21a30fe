package signallog_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRow(id string, status types.SignalStatus, reason types.ReasonCode, ts time.Time) signallog.Row {
	return signallog.Row{
		ID:           id,
		Timestamp:    ts,
		Symbol:       "AAPL",
		Strategy:     "crossover",
		Direction:    types.DirectionLong,
		RuleScore:    0.7,
		Regime:       types.RegimeBull,
		RegimeWeight: 0.9,
		DNATag:       types.TagBreakout,
		RiskPct:      0.0084,
		MLScore:      0.62,
		FinalScore:   0.7400,
		Status:       status,
		Reason:       reason,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVLogCreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	_, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	records := readAll(t, path)
	require.Len(t, records, 1)
	require.Equal(t, "id", records[0][0])
	require.Equal(t, "pnl", records[0][len(records[0])-1])
}

func TestCSVLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, log.Append(testRow("sig_1", types.StatusAccepted, types.ReasonNone, now)))
	require.NoError(t, log.Append(testRow("sig_2", types.StatusRejected, types.ReasonNoCrossover, now.Add(time.Minute))))

	records := readAll(t, path)
	require.Len(t, records, 3)

	accepted := records[1]
	require.Equal(t, "sig_1", accepted[0])
	require.Equal(t, "accepted", accepted[13])
	require.Equal(t, "", accepted[14])
	// Outcome columns stay empty until the outcome tracker fills its own log.
	require.Equal(t, "", accepted[15])
	require.Equal(t, "", accepted[16])
	require.Equal(t, "", accepted[17])

	rejected := records[2]
	require.Equal(t, "rejected", rejected[13])
	require.Equal(t, "no_crossover", rejected[14])
}

func TestCSVLogContextScoreColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	withScore := testRow("sig_1", types.StatusAccepted, types.ReasonNone, now)
	score := 0.55
	withScore.ContextScore = &score
	require.NoError(t, log.Append(withScore))
	require.NoError(t, log.Append(testRow("sig_2", types.StatusAccepted, types.ReasonNone, now.Add(time.Second))))

	records := readAll(t, path)
	require.Equal(t, "0.55", records[1][11])
	// Absent context model leaves the column empty, distinguishable from 0.
	require.Equal(t, "", records[2][11])
}

func TestCSVLogMonotonicTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, log.Append(testRow("sig_1", types.StatusAccepted, types.ReasonNone, now)))
	// An earlier wall-clock reading must not produce an out-of-order row.
	require.NoError(t, log.Append(testRow("sig_2", types.StatusAccepted, types.ReasonNone, now.Add(-time.Hour))))

	records := readAll(t, path)
	first, err := time.Parse(time.RFC3339Nano, records[1][1])
	require.NoError(t, err)
	second, err := time.Parse(time.RFC3339Nano, records[2][1])
	require.NoError(t, err)
	require.False(t, second.Before(first))
}

func TestCSVLogRejectionSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, log.Append(testRow("sig_1", types.StatusAccepted, types.ReasonNone, now)))
	require.NoError(t, log.Append(testRow("sig_2", types.StatusRejected, types.ReasonNoCrossover, now)))
	require.NoError(t, log.Append(testRow("sig_3", types.StatusRejected, types.ReasonNoCrossover, now)))
	require.NoError(t, log.Append(testRow("sig_4", types.StatusRejected, types.ReasonTimeVolumeFilter, now)))

	counts, accepted := log.RejectionSummary()
	require.Equal(t, 1, accepted)
	require.Equal(t, 2, counts[types.ReasonNoCrossover])
	require.Equal(t, 1, counts[types.ReasonTimeVolumeFilter])
}

func TestCSVLogReopenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, log.Append(testRow("sig_1", types.StatusAccepted, types.ReasonNone, now)))
	require.NoError(t, log.Append(testRow("sig_2", types.StatusRejected, types.ReasonContextModelFilter, now)))

	reopened, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	counts, accepted := reopened.RejectionSummary()
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, counts[types.ReasonContextModelFilter])

	// Appending after reopen must not rewrite the header or prior rows.
	require.NoError(t, reopened.Append(testRow("sig_3", types.StatusAccepted, types.ReasonNone, now.Add(time.Minute))))
	records := readAll(t, path)
	require.Len(t, records, 4)
	require.Equal(t, "sig_1", records[1][0])
}

func TestCSVLogTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log, err := signallog.NewCSVLog(zap.NewNop(), path)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, log.Append(testRow(id, types.StatusAccepted, types.ReasonNone, now.Add(time.Duration(i)*time.Second))))
	}

	tail := log.Tail(2)
	require.Len(t, tail, 2)
	require.Equal(t, "d", tail[0].ID)
	require.Equal(t, "e", tail[1].ID)

	require.Len(t, log.Tail(0), 5)
	require.Len(t, log.Tail(100), 5)
}
