package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"CryptoDigest/internal/config"
	"CryptoDigest/internal/metrics"
)

// ErrThrottled is matched by a StatusError carrying HTTP 429.
var ErrThrottled = errors.New("rate limited by provider")

// Fetcher issues GET requests against the market data provider and returns
// the raw response body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error)
}

// StatusError is returned for a non-2xx provider response.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.URL, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusTooManyRequests {
		return ErrThrottled
	}
	return nil
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HTTPFetcher implements Fetcher over net/http with bounded retry on 429.
type HTTPFetcher struct {
	Client     *http.Client
	APIKey     string
	MaxRetries int
	RetryWaits []time.Duration
	Sleep      SleepFunc
	Logger     *zap.Logger
}

// NewHTTPFetcher creates a fetcher from the provider config with optional
// proxy support.
func NewHTTPFetcher(p config.Provider, proxyURL string, logger *zap.Logger) *HTTPFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout:   p.Timeout,
			Transport: transport,
		},
		APIKey:     p.APIKey,
		MaxRetries: p.MaxRetries,
		RetryWaits: p.RetryWaits,
		Sleep:      sleepContext,
		Logger:     logger,
	}
}

// Fetch performs the GET. A 429 response is retried after the backoff for
// that attempt, up to MaxRetries attempts in total; when every attempt is
// throttled the last response is returned as a StatusError. Any other non-2xx
// status fails immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	endpoint := rawURL
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	attempts := f.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, code, err := f.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		metrics.ProviderRequests.WithLabelValues(endpointLabel(rawURL), strconv.Itoa(code)).Inc()

		if code == http.StatusTooManyRequests {
			metrics.ProviderThrottled.Inc()
			lastErr = &StatusError{URL: rawURL, Code: code, Body: truncate(body, 256)}
			if attempt == attempts-1 {
				break
			}
			wait := f.backoff(attempt)
			f.Logger.Warn("provider rate limited, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", attempts),
				zap.Duration("wait", wait))
			if err := f.Sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("backoff: %w", err)
			}
			continue
		}
		if code < 200 || code > 299 {
			return nil, &StatusError{URL: rawURL, Code: code, Body: truncate(body, 256)}
		}
		return body, nil
	}
	return nil, fmt.Errorf("all %d attempts throttled: %w", attempts, lastErr)
}

func (f *HTTPFetcher) backoff(attempt int) time.Duration {
	if len(f.RetryWaits) == 0 {
		return 0
	}
	if attempt >= len(f.RetryWaits) {
		return f.RetryWaits[len(f.RetryWaits)-1]
	}
	return f.RetryWaits[attempt]
}

func (f *HTTPFetcher) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// endpointLabel keeps metric cardinality bounded: /coins/bitcoin/market_chart
// and /coins/solana/market_chart both map to "market_chart".
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return path.Base(u.Path)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
