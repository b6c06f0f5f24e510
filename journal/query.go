package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, symbol, side, time, price, size, notional, commission, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := scanTrade(row.Scan, &rec)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns all trades for a symbol in execution order. An empty
// symbol matches everything.
func (j *SQLite) ListTrades(symbol string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, time, price, size, notional, commission, reason
		FROM trades
		WHERE (? = '' OR symbol = ?)
		ORDER BY time ASC, trade_id ASC`, symbol, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListTradesBetween returns trades executed within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, time, price, size, notional, commission, reason
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, trade_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListEquity returns the equity curve for a symbol in time order.
func (j *SQLite) ListEquity(symbol string) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, symbol, equity, cash, position_value, price
		FROM equity
		WHERE (? = '' OR symbol = ?)
		ORDER BY time ASC`, symbol, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var rec EquityRecord
		if err := rows.Scan(&rec.Time, &rec.Symbol, &rec.Equity, &rec.Cash, &rec.PositionValue, &rec.Price); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := scanTrade(rows.Scan, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanTrade(scan func(...any) error, rec *TradeRecord) error {
	return scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.Time,
		&rec.Price,
		&rec.Size,
		&rec.Notional,
		&rec.Commission,
		&rec.Reason,
	)
}
