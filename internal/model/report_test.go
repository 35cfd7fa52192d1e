package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestMarketReport_JSONRoundTrip(t *testing.T) {
	report := MarketReport{
		Date: "2026-10-14",
		Coins: []CoinRecord{
			{
				Symbol:     "BTC",
				Snapshot:   MarketSnapshot{CurrentPrice: fp(62000.5), PriceChange24h: fp(-1.25), Volume24h: fp(3.1e10)},
				Indicators: IndicatorSet{RSI: fp(44.12), SMA7: fp(61000), High30d: fp(65000), Low30d: fp(58000)},
				Signal:     SignalNeutral,
			},
			{Symbol: "SOL", Error: FetchFailedLabel + ": timeout"},
		},
	}

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var back MarketReport
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, report, back)
}

func TestCoinRecord_MarshalShapes(t *testing.T) {
	ok, err := json.Marshal(CoinRecord{Symbol: "ETH", Signal: SignalWait})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"symbol": "ETH", "current_price": null, "price_change_24h": null, "volume_24h": null,
		"high_30d": null, "low_30d": null, "rsi": null, "sma7": null, "sma20": null,
		"ema12": null, "ema26": null, "signal": "觀望"
	}`, string(ok))

	failed, err := json.Marshal(CoinRecord{Symbol: "XRP", Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol": "XRP", "error": "boom"}`, string(failed))
}

func TestMarketReport_Failures(t *testing.T) {
	r := &MarketReport{Coins: []CoinRecord{{Symbol: "A"}, {Symbol: "B", Error: "x"}, {Symbol: "C", Error: "y"}}}
	assert.Equal(t, 2, r.Failures())
}
