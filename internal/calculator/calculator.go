// Package calculator implements the technical indicators derived from a
// daily price series. All functions are pure.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"CryptoDigest/internal/model"
)

var (
	// ErrInsufficientData means the series is shorter than the indicator window.
	ErrInsufficientData = errors.New("not enough data for indicator")
	// ErrInvalidPeriod means a non-positive window was requested.
	ErrInvalidPeriod = errors.New("period must be positive")
)

// Indicator windows used by Compute.
const (
	RSIPeriod      = 14
	ShortSMAPeriod = 7
	LongSMAPeriod  = 20
	FastEMAPeriod  = 12
	SlowEMAPeriod  = 26
)

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Compute derives the full indicator set from prices. Indicators whose window
// does not fit in the series are left nil.
func Compute(prices model.PriceSeries) model.IndicatorSet {
	var set model.IndicatorSet
	if v, err := CalculateRSI(prices, RSIPeriod); err == nil {
		set.RSI = &v
	}
	if v, err := CalculateSMA(prices, ShortSMAPeriod); err == nil {
		set.SMA7 = &v
	}
	if v, err := CalculateSMA(prices, LongSMAPeriod); err == nil {
		set.SMA20 = &v
	}
	if v, err := CalculateEMA(prices, FastEMAPeriod); err == nil {
		set.EMA12 = &v
	}
	if v, err := CalculateEMA(prices, SlowEMAPeriod); err == nil {
		set.EMA26 = &v
	}
	if h, l, err := CalculateRange(prices); err == nil {
		set.High30d = &h
		set.Low30d = &l
	}
	return set
}
