package strategy

import (
	"strings"

	"CryptoDigest/internal/model"
)

// RSI thresholds for the overbought/oversold labels (inclusive).
const (
	OverboughtRSI = 70.0
	OversoldRSI   = 30.0
)

// Classify maps RSI and the short/long SMA pair to a composite signal label.
// Without an RSI value the coin is always on hold, whatever the averages say.
func Classify(rsi, smaShort, smaLong *float64) string {
	if rsi == nil {
		return model.SignalWait
	}

	var labels []string
	switch {
	case *rsi >= OverboughtRSI:
		labels = append(labels, model.SignalOverbought)
	case *rsi <= OversoldRSI:
		labels = append(labels, model.SignalOversold)
	}
	if smaShort != nil && smaLong != nil {
		switch {
		case *smaShort > *smaLong:
			labels = append(labels, model.SignalBullish)
		case *smaShort < *smaLong:
			labels = append(labels, model.SignalBearish)
		}
	}

	if len(labels) == 0 {
		return model.SignalNeutral
	}
	return strings.Join(labels, model.SignalSeparator)
}

// ClassifySet is Classify over the RSI, SMA7 and SMA20 of an indicator set.
func ClassifySet(set model.IndicatorSet) string {
	return Classify(set.RSI, set.SMA7, set.SMA20)
}
