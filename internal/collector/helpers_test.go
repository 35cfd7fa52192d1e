package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"CryptoDigest/internal/config"
)

const testBase = "http://provider.test/api/v3"

// fakeFetcher answers from a handler and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	handler func(path string, params url.Values) ([]byte, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, params url.Values) ([]byte, error) {
	path := strings.TrimPrefix(rawURL, testBase)
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	return f.handler(path, params)
}

func (f *fakeFetcher) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func marketsJSON(ids ...string) []byte {
	items := make([]map[string]any, 0, len(ids))
	for i, id := range ids {
		items = append(items, map[string]any{
			"id":                          id,
			"current_price":               float64(100 * (i + 1)),
			"price_change_percentage_24h": 1.5,
			"total_volume":                1e9,
		})
	}
	b, _ := json.Marshal(items)
	return b
}

func chartJSON(prices ...float64) []byte {
	points := make([][]float64, len(prices))
	ts := float64(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	for i, p := range prices {
		points[i] = []float64{ts + float64(i)*86400000, p}
	}
	b, _ := json.Marshal(map[string]any{"prices": points})
	return b
}

func risingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return prices
}

// providerHandler serves markets for any requested ids and a rising 30-day
// chart for every coin, except those listed in failing.
func providerHandler(failing map[string]error) func(string, url.Values) ([]byte, error) {
	return func(path string, params url.Values) ([]byte, error) {
		if path == "/coins/markets" {
			return marketsJSON(strings.Split(params.Get("ids"), ",")...), nil
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/coins/"), "/market_chart")
		if err, ok := failing[id]; ok {
			return nil, err
		}
		if id == "" {
			return nil, fmt.Errorf("unexpected path %s", path)
		}
		return chartJSON(risingPrices(30)...), nil
	}
}

func testProvider(query string) config.Provider {
	zero := time.Duration(0)
	return config.Provider{
		BaseURL:         testBase,
		VsCurrency:      "usd",
		HistoryDays:     30,
		MarketQuery:     query,
		Timeout:         time.Second,
		MaxRetries:      3,
		RequestInterval: &zero,
	}
}

func newTestRetriever(f Fetcher, query string) *Retriever {
	r := NewRetriever(f, testProvider(query), zap.NewNop())
	r.Limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}
