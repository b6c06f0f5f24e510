package backtest

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/rustyeddy/alloctrend/market"
)

// BarFeed yields historical bars one at a time in chronological order.
// Implementations should be deterministic and return (ok=false, err=nil)
// at end of data.
type BarFeed interface {
	Next() (b market.Bar, ok bool, err error)
	Close() error
}

// CSVBarFeed reads canonical bar CSV rows:
//
//	time,symbol,close[,volume]
//
// where time is RFC3339 or RFC3339Nano. Files ending in .gz or .xz are
// decompressed on the fly; archived datasets commonly ship that way.
//
// It optionally filters bars to [From, To) if provided.
// Header row ("time,...") is allowed. Empty/short rows are skipped.
type CSVBarFeed struct {
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
}

func NewCSVBarFeed(path string, from, to time.Time) (*CSVBarFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var src io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip bars %s: %w", path, err)
		}
		src = gz
	case ".xz":
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz bars %s: %w", path, err)
		}
		src = xr
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	return &CSVBarFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVBarFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVBarFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return market.Bar{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func parseBarRow(row []string) (market.Bar, bool, error) {
	// Need at least: time,symbol,close
	if len(row) < 3 {
		return market.Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Bar{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return market.Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return market.Bar{}, false, nil
	}

	closePx, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return market.Bar{}, false, fmt.Errorf("bad close %q: %w", row[2], err)
	}

	vol := 0.0
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		vol, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("bad volume %q: %w", row[3], err)
		}
	}

	return market.Bar{Symbol: sym, Time: t, Close: closePx, Volume: vol}, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// SliceBarFeed replays an in-memory bar slice. Used by tests and for
// programmatic runs.
type SliceBarFeed struct {
	bars []market.Bar
	idx  int
}

func NewSliceBarFeed(bars []market.Bar) *SliceBarFeed {
	return &SliceBarFeed{bars: bars}
}

func (f *SliceBarFeed) Next() (market.Bar, bool, error) {
	if f.idx >= len(f.bars) {
		return market.Bar{}, false, nil
	}
	b := f.bars[f.idx]
	f.idx++
	return b, true, nil
}

func (f *SliceBarFeed) Close() error { return nil }
