package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CryptoDigest/internal/model"
	"CryptoDigest/internal/recorder"
)

func formatValue(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}

// FormatMarketDigest formats a market report into a Telegram message.
func FormatMarketDigest(report *model.MarketReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>加密貨幣市場日報</b> | %s\n\n", report.Date))

	for _, c := range report.Coins {
		if c.Failed() {
			b.WriteString(fmt.Sprintf("❌ <b>%s</b>: %s\n\n", c.Symbol, html.EscapeString(c.Error)))
			continue
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> $%s (%s%%)\n", c.Symbol,
			formatValue(c.Snapshot.CurrentPrice, "%v"),
			formatValue(c.Snapshot.PriceChange24h, "%+.2f")))
		b.WriteString(fmt.Sprintf("  RSI: %s | SMA7/20: %s / %s\n",
			formatValue(c.Indicators.RSI, "%.2f"),
			formatValue(c.Indicators.SMA7, "%v"),
			formatValue(c.Indicators.SMA20, "%v")))
		b.WriteString(fmt.Sprintf("  30日區間: %s ~ %s\n",
			formatValue(c.Indicators.Low30d, "%v"),
			formatValue(c.Indicators.High30d, "%v")))
		b.WriteString(fmt.Sprintf("  訊號: %s\n\n", c.Signal))
	}

	if n := report.Failures(); n > 0 {
		b.WriteString(fmt.Sprintf("⚠️ %d/%d 個幣種資料抓取失敗\n", n, len(report.Coins)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRunHistory formats recent runs for the /history command.
func FormatRunHistory(rows []recorder.RunRow) string {
	if len(rows) == 0 {
		return "尚無執行紀錄"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>最近執行紀錄</b>\n\n")
	for _, r := range rows {
		took := time.Duration(r.FinishedAt-r.StartedAt) * time.Second
		b.WriteString(fmt.Sprintf("%s  %d/%d 成功  (%s)\n", r.ReportDate, r.Coins-r.Failed, r.Coins, took))
	}
	return strings.TrimRight(b.String(), "\n")
}
