package model

import "time"

// Coin pairs a display ticker with the provider id used in API calls.
type Coin struct {
	Symbol     string `yaml:"symbol"`
	ProviderID string `yaml:"id"`
}

// PriceSeries holds daily prices, oldest first.
type PriceSeries []float64

// MarketSnapshot is the provider's current view of a coin. Any field may be
// missing in the provider response.
type MarketSnapshot struct {
	CurrentPrice   *float64
	PriceChange24h *float64
	Volume24h      *float64
}

// CoinData is everything fetched for one coin in a run.
type CoinData struct {
	ProviderID string
	Snapshot   MarketSnapshot
	Prices     PriceSeries
	FetchedAt  time.Time
}
