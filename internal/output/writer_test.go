package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoDigest/internal/model"
)

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs", "data")
	rsi := 71.3
	report := &model.MarketReport{
		Date: "2026-10-14",
		Coins: []model.CoinRecord{
			{Symbol: "BTC", Indicators: model.IndicatorSet{RSI: &rsi}, Signal: model.SignalOverbought},
			{Symbol: "ETH", Error: model.FetchFailedLabel},
		},
	}

	path, err := WriteReport(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-10-14_market.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "RSI超買")
	assert.Contains(t, string(raw), "\n  \"coins\": [")

	back, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report, back)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteReport_Overwrites(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteReport(dir, &model.MarketReport{Date: "2026-10-14", Coins: []model.CoinRecord{{Symbol: "BTC", Error: "x"}}})
	require.NoError(t, err)
	path, err := WriteReport(dir, &model.MarketReport{Date: "2026-10-14", Coins: []model.CoinRecord{}})
	require.NoError(t, err)

	back, err := ReadReport(path)
	require.NoError(t, err)
	assert.Empty(t, back.Coins)
}
