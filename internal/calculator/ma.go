package calculator

// PricePrecision is the number of decimals moving averages and extremes are
// rounded to.
const PricePrecision = 6

// CalculateSMA computes the simple moving average of the last `period` prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return Round(sum/float64(period), PricePrecision), nil
}

// CalculateEMA computes the exponential moving average with smoothing
// constant 2/(period+1). The recurrence is seeded with the first price of the
// series rather than an SMA of the first window, and runs over the whole
// series; consumers rely on these exact values.
func CalculateEMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return Round(ema, PricePrecision), nil
}
