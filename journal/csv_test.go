package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:    "T1",
		Symbol:     "BTC-USD",
		Side:       "buy",
		Time:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Price:      42000,
		Size:       0.1,
		Notional:   4200,
		Commission: 4.2,
		Reason:     "entry",
	}))
	require.NoError(t, j.RecordEquity(EquityRecord{
		Time:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Symbol: "BTC-USD",
		Equity: 10_000,
		Cash:   5800,
	}))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 2) // header + one row
	assert.Equal(t, "trade_id", trades[0][0])
	assert.Equal(t, "T1", trades[1][0])
	assert.Equal(t, "buy", trades[1][2])
	assert.Equal(t, "entry", trades[1][8])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, "time", equity[0][0])
	assert.Equal(t, "2024-01-10T00:00:00Z", equity[1][0])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
