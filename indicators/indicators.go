package indicators

// SMA returns the Simple Moving Average over the last period prices.
// ok is false when there is not enough data.
func SMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}

// EMA returns the Exponential Moving Average over the full price sequence.
//
// The first value is seeded with the arithmetic mean of the first period
// prices, then the remainder is folded with multiplier k = 2/(period+1).
// ok is false when fewer than period prices exist.
func EMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	k := 2.0 / float64(period+1)

	// Start with SMA for the first value
	ema := 0.0
	for i := 0; i < period; i++ {
		ema += prices[i]
	}
	ema /= float64(period)

	for i := period; i < len(prices); i++ {
		ema = ema + k*(prices[i]-ema)
	}

	return ema, true
}
