package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func testTrade(id string, hour int) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Symbol:     "BTC-USD",
		Side:       "buy",
		Time:       time.Date(2024, 1, 10, hour, 0, 0, 0, time.UTC),
		Price:      42000,
		Size:       0.1,
		Notional:   4200,
		Commission: 4.2,
		Reason:     "test",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteTradeRoundtrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	rec := testTrade("T1", 3)
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Side, got.Side)
	assert.InDelta(t, rec.Price, got.Price, 1e-9)
	assert.InDelta(t, rec.Size, got.Size, 1e-9)
	assert.InDelta(t, rec.Commission, got.Commission, 1e-9)
	assert.True(t, got.Time.Equal(rec.Time))

	_, err = j.GetTrade("missing")
	assert.Error(t, err)
}

func TestSQLiteListTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	// Inserted out of order; listing must come back time-ordered.
	require.NoError(t, j.RecordTrade(testTrade("T2", 5)))
	require.NoError(t, j.RecordTrade(testTrade("T1", 1)))

	other := testTrade("T3", 2)
	other.Symbol = "ETH-USD"
	require.NoError(t, j.RecordTrade(other))

	all, err := j.ListTrades("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "T1", all[0].TradeID)
	assert.Equal(t, "T3", all[1].TradeID)
	assert.Equal(t, "T2", all[2].TradeID)

	btc, err := j.ListTrades("BTC-USD")
	require.NoError(t, err)
	require.Len(t, btc, 2)

	window, err := j.ListTradesBetween(
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Len(t, window, 2) // T1 at 01:00, T3 at 02:00
}

func TestSQLiteEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordEquity(EquityRecord{
			Time:          time.Date(2024, 1, 10, i, 0, 0, 0, time.UTC),
			Symbol:        "BTC-USD",
			Equity:        10_000 + float64(i),
			Cash:          4500,
			PositionValue: 5500 + float64(i),
			Price:         100,
		}))
	}

	curve, err := j.ListEquity("BTC-USD")
	require.NoError(t, err)
	require.Len(t, curve, 3)
	assert.InDelta(t, 10_000.0, curve[0].Equity, 1e-9)
	assert.InDelta(t, 10_002.0, curve[2].Equity, 1e-9)
}
