package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"CryptoDigest/internal/config"
	"CryptoDigest/internal/model"
)

// FetchError reports why a single coin could not be retrieved.
type FetchError struct {
	CoinID string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.CoinID, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var (
	errNoSnapshot   = errors.New("no market snapshot returned")
	errEmptyHistory = errors.New("empty price history")
)

// marketItem is one element of the /coins/markets response.
type marketItem struct {
	ID                       string   `json:"id"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	TotalVolume              *float64 `json:"total_volume"`
}

// marketChart is the /coins/{id}/market_chart response; each price is a
// [timestamp_ms, price] pair.
type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// Retriever obtains the market snapshot and daily price history of a coin.
// Every request it issues goes through one limiter, so consecutive provider
// calls are never closer than the configured interval.
type Retriever struct {
	Fetcher     Fetcher
	BaseURL     string
	VsCurrency  string
	HistoryDays int
	MarketQuery string
	Limiter     *rate.Limiter
	Logger      *zap.Logger

	markets map[string]model.MarketSnapshot
}

// NewRetriever creates a Retriever from the provider config.
func NewRetriever(fetcher Fetcher, p config.Provider, logger *zap.Logger) *Retriever {
	limit := rate.Inf
	if p.Interval() > 0 {
		limit = rate.Every(p.Interval())
	}
	return &Retriever{
		Fetcher:     fetcher,
		BaseURL:     strings.TrimRight(p.BaseURL, "/"),
		VsCurrency:  p.VsCurrency,
		HistoryDays: p.HistoryDays,
		MarketQuery: p.MarketQuery,
		Limiter:     rate.NewLimiter(limit, 1),
		Logger:      logger,
	}
}

// Prepare runs once per batch. With the batch market query it loads the
// snapshots of all ids in one call; a failure leaves the cache empty so that
// each coin fails on its own in GetCoinData.
func (r *Retriever) Prepare(ctx context.Context, ids []string) error {
	r.markets = nil
	if r.MarketQuery != config.MarketQueryBatch {
		return nil
	}
	markets, err := r.fetchMarkets(ctx, ids)
	if err != nil {
		r.markets = map[string]model.MarketSnapshot{}
		return fmt.Errorf("batch market query: %w", err)
	}
	r.markets = markets
	r.Logger.Info("market snapshots loaded", zap.Int("requested", len(ids)), zap.Int("returned", len(markets)))
	return nil
}

// GetCoinData returns the snapshot and price series of one coin.
func (r *Retriever) GetCoinData(ctx context.Context, id string) (*model.CoinData, error) {
	snapshot, err := r.snapshot(ctx, id)
	if err != nil {
		return nil, &FetchError{CoinID: id, Op: "market snapshot", Err: err}
	}
	prices, err := r.fetchHistory(ctx, id)
	if err != nil {
		return nil, &FetchError{CoinID: id, Op: "price history", Err: err}
	}
	return &model.CoinData{
		ProviderID: id,
		Snapshot:   snapshot,
		Prices:     prices,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (r *Retriever) snapshot(ctx context.Context, id string) (model.MarketSnapshot, error) {
	markets := r.markets
	if r.MarketQuery != config.MarketQueryBatch || markets == nil {
		var err error
		markets, err = r.fetchMarkets(ctx, []string{id})
		if err != nil {
			return model.MarketSnapshot{}, err
		}
	}
	s, ok := markets[id]
	if !ok {
		return model.MarketSnapshot{}, errNoSnapshot
	}
	return s, nil
}

func (r *Retriever) fetchMarkets(ctx context.Context, ids []string) (map[string]model.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("vs_currency", r.VsCurrency)
	params.Set("ids", strings.Join(ids, ","))
	params.Set("price_change_percentage", "24h")

	body, err := r.fetch(ctx, r.BaseURL+"/coins/markets", params)
	if err != nil {
		return nil, err
	}
	var items []marketItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	out := make(map[string]model.MarketSnapshot, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		out[it.ID] = model.MarketSnapshot{
			CurrentPrice:   it.CurrentPrice,
			PriceChange24h: it.PriceChangePercentage24h,
			Volume24h:      it.TotalVolume,
		}
	}
	return out, nil
}

func (r *Retriever) fetchHistory(ctx context.Context, id string) (model.PriceSeries, error) {
	params := url.Values{}
	params.Set("vs_currency", r.VsCurrency)
	params.Set("days", strconv.Itoa(r.HistoryDays))
	params.Set("interval", "daily")

	body, err := r.fetch(ctx, r.BaseURL+"/coins/"+url.PathEscape(id)+"/market_chart", params)
	if err != nil {
		return nil, err
	}
	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode market chart: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, errEmptyHistory
	}
	prices := make(model.PriceSeries, 0, len(chart.Prices))
	for i, point := range chart.Prices {
		if len(point) < 2 {
			return nil, fmt.Errorf("price point %d: expected [timestamp, price], got %d values", i, len(point))
		}
		if point[1] < 0 {
			return nil, fmt.Errorf("price point %d: negative price %v", i, point[1])
		}
		prices = append(prices, point[1])
	}
	return prices, nil
}

func (r *Retriever) fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request interval: %w", err)
	}
	return r.Fetcher.Fetch(ctx, rawURL, params)
}
