package backtest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/alloctrend/market"
)

const testCSV = `time,symbol,close,volume
2024-01-10T00:00:00Z,BTC-USD,42000.5,12.5
2024-01-10T01:00:00Z,BTC-USD,42100.25,

2024-01-10T02:00:00Z,BTC-USD,41900,8
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func drainFeed(t *testing.T, f BarFeed) []market.Bar {
	t.Helper()

	bars, err := drain(f)
	require.NoError(t, err)
	return bars
}

func TestCSVBarFeed(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "bars.csv", testCSV)

	f, err := NewCSVBarFeed(path, time.Time{}, time.Time{})
	require.NoError(t, err)

	bars := drainFeed(t, f)
	require.Len(t, bars, 3)

	assert.Equal(t, "BTC-USD", bars[0].Symbol)
	assert.Equal(t, 42000.5, bars[0].Close)
	assert.Equal(t, 12.5, bars[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), bars[0].Time)

	// Missing volume column value parses as zero.
	assert.Zero(t, bars[1].Volume)
}

func TestCSVBarFeed_RangeFilter(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "bars.csv", testCSV)

	from := time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	f, err := NewCSVBarFeed(path, from, to)
	require.NoError(t, err)

	bars := drainFeed(t, f)
	require.Len(t, bars, 1)
	assert.Equal(t, 42100.25, bars[0].Close)
}

func TestCSVBarFeed_Gzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv.gz")
	fh, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(fh)
	_, err = gz.Write([]byte(testCSV))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, fh.Close())

	f, err := NewCSVBarFeed(path, time.Time{}, time.Time{})
	require.NoError(t, err)

	bars := drainFeed(t, f)
	assert.Len(t, bars, 3)
}

func TestCSVBarFeed_BadRows(t *testing.T) {
	t.Parallel()

	t.Run("bad close is an error", func(t *testing.T) {
		t.Parallel()

		path := writeTempFile(t, "bars.csv", "2024-01-10T00:00:00Z,BTC-USD,not-a-number\n")
		f, err := NewCSVBarFeed(path, time.Time{}, time.Time{})
		require.NoError(t, err)
		defer f.Close()

		_, _, err = f.Next()
		assert.Error(t, err)
	})

	t.Run("short rows are skipped", func(t *testing.T) {
		t.Parallel()

		path := writeTempFile(t, "bars.csv", "2024-01-10T00:00:00Z,BTC-USD\n2024-01-10T01:00:00Z,BTC-USD,100\n")
		f, err := NewCSVBarFeed(path, time.Time{}, time.Time{})
		require.NoError(t, err)

		bars := drainFeed(t, f)
		require.Len(t, bars, 1)
		assert.Equal(t, 100.0, bars[0].Close)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := NewCSVBarFeed(filepath.Join(t.TempDir(), "nope.csv"), time.Time{}, time.Time{})
		assert.Error(t, err)
	})
}
