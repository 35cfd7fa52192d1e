package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CryptoDigest/internal/metrics"
)

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestFetcher(sleeps *recordedSleeps) *HTTPFetcher {
	return &HTTPFetcher{
		Client:     &http.Client{Timeout: 2 * time.Second},
		MaxRetries: 3,
		RetryWaits: []time.Duration{30 * time.Second, 45 * time.Second, 60 * time.Second},
		Sleep:      sleeps.sleep,
		Logger:     zap.NewNop(),
	}
}

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "secret", r.Header.Get("x-cg-demo-api-key"))
		w.Write([]byte(`[{"id":"bitcoin"}]`))
	}))
	defer srv.Close()

	sleeps := &recordedSleeps{}
	f := newTestFetcher(sleeps)
	f.APIKey = "secret"

	body, err := f.Fetch(context.Background(), srv.URL+"/coins/markets", url.Values{
		"vs_currency": {"usd"},
		"ids":         {"bitcoin,ethereum"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"bitcoin"}]`, string(body))
	assert.Empty(t, sleeps.waits)
}

func TestHTTPFetcher_RetriesThrottledThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer srv.Close()

	sleeps := &recordedSleeps{}
	f := newTestFetcher(sleeps)

	body, err := f.Fetch(context.Background(), srv.URL+"/coins/bitcoin/market_chart", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"prices":[]}`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{30 * time.Second, 45 * time.Second}, sleeps.waits)
}

func TestHTTPFetcher_ThrottledBudgetExhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer srv.Close()

	sleeps := &recordedSleeps{}
	f := newTestFetcher(sleeps)
	throttledBefore := testutil.ToFloat64(metrics.ProviderThrottled)

	_, err := f.Fetch(context.Background(), srv.URL+"/coins/markets", nil)
	require.Error(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ProviderThrottled)-throttledBefore)
	assert.ErrorIs(t, err, ErrThrottled)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Contains(t, statusErr.Body, "error_code")

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{30 * time.Second, 45 * time.Second}, sleeps.waits)
}

func TestHTTPFetcher_BackoffRepeatsLastWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sleeps := &recordedSleeps{}
	f := newTestFetcher(sleeps)
	f.MaxRetries = 5
	f.RetryWaits = []time.Duration{time.Second, 2 * time.Second}

	_, err := f.Fetch(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}, sleeps.waits)
}

func TestHTTPFetcher_OtherStatusFailsImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sleeps := &recordedSleeps{}
	f := newTestFetcher(sleeps)

	_, err := f.Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrThrottled))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, sleeps.waits)
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	f := newTestFetcher(&recordedSleeps{})
	_, err := f.Fetch(context.Background(), addr, nil)
	assert.Error(t, err)
}

func TestHTTPFetcher_BackoffHonoursCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := newTestFetcher(&recordedSleeps{})
	f.Sleep = sleepContext
	f.RetryWaits = []time.Duration{time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, srv.URL, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "markets", endpointLabel("https://api.coingecko.com/api/v3/coins/markets"))
	assert.Equal(t, "market_chart", endpointLabel("https://api.coingecko.com/api/v3/coins/solana/market_chart"))
}
