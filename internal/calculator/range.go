package calculator

import "math"

// CalculateRange returns the highest and lowest price of the whole series.
func CalculateRange(prices []float64) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, ErrInsufficientData
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return Round(high, PricePrecision), Round(low, PricePrecision), nil
}
