package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CryptoDigest/internal/calculator"
	"CryptoDigest/internal/metrics"
	"CryptoDigest/internal/model"
	"CryptoDigest/internal/strategy"
)

// CoinRetriever is the data source the Collector pulls coins from.
type CoinRetriever interface {
	Prepare(ctx context.Context, ids []string) error
	GetCoinData(ctx context.Context, id string) (*model.CoinData, error)
}

// Collector orchestrates data fetching and indicator computation for the
// whole basket. Coins are processed one at a time in declaration order.
type Collector struct {
	Retriever CoinRetriever
	Coins     []model.Coin
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(retriever CoinRetriever, coins []model.Coin, logger *zap.Logger) *Collector {
	return &Collector{
		Retriever: retriever,
		Coins:     coins,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Collect fetches every coin and assembles the dated report. It never fails:
// a coin that cannot be fetched gets an error record and the run continues.
func (c *Collector) Collect(ctx context.Context) *model.MarketReport {
	start := c.Now()
	report := &model.MarketReport{
		Date:  start.UTC().Format("2006-01-02"),
		Coins: make([]model.CoinRecord, 0, len(c.Coins)),
	}
	c.Logger.Info("collecting market data", zap.String("date", report.Date), zap.Int("coins", len(c.Coins)))

	ids := make([]string, len(c.Coins))
	for i, coin := range c.Coins {
		ids[i] = coin.ProviderID
	}
	if err := c.Retriever.Prepare(ctx, ids); err != nil {
		c.Logger.Error("prepare market query failed", zap.Error(err))
	}

	for _, coin := range c.Coins {
		rec := c.collectCoin(ctx, coin)
		status := "ok"
		if rec.Failed() {
			status = "error"
		}
		metrics.CoinsProcessed.WithLabelValues(status).Inc()
		report.Coins = append(report.Coins, rec)
	}

	metrics.RunDuration.Observe(c.Now().Sub(start).Seconds())
	c.Logger.Info("market data collected",
		zap.String("date", report.Date),
		zap.Int("failed", report.Failures()),
		zap.Int("total", len(report.Coins)))
	return report
}

func (c *Collector) collectCoin(ctx context.Context, coin model.Coin) (rec model.CoinRecord) {
	log := c.Logger.With(zap.String("symbol", coin.Symbol), zap.String("id", coin.ProviderID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("coin processing panicked", zap.Any("panic", r))
			rec = failedRecord(coin, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Info("fetching coin")
	data, err := c.Retriever.GetCoinData(ctx, coin.ProviderID)
	if err != nil {
		log.Error("coin fetch failed", zap.Error(err))
		return failedRecord(coin, err)
	}

	ind := calculator.Compute(data.Prices)
	if ind.RSI == nil || ind.SMA20 == nil || ind.EMA26 == nil {
		log.Warn("price history too short for some indicators", zap.Int("points", len(data.Prices)))
	}

	return model.CoinRecord{
		Symbol:     coin.Symbol,
		Snapshot:   data.Snapshot,
		Indicators: ind,
		Signal:     strategy.ClassifySet(ind),
	}
}

func failedRecord(coin model.Coin, err error) model.CoinRecord {
	return model.CoinRecord{
		Symbol: coin.Symbol,
		Error:  fmt.Sprintf("%s: %v", model.FetchFailedLabel, err),
	}
}
