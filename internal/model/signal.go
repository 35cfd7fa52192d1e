package model

// Signal labels. A composite signal joins the RSI label and the moving
// average label with SignalSeparator.
const (
	SignalWait       = "觀望"
	SignalNeutral    = "中性"
	SignalOverbought = "RSI超買"
	SignalOversold   = "RSI超賣"
	SignalBullish    = "均線多頭"
	SignalBearish    = "均線空頭"

	SignalSeparator = " / "
)

// FetchFailedLabel prefixes the error field of a failed CoinRecord.
const FetchFailedLabel = "資料抓取失敗"
