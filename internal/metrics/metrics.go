// Package metrics exposes Prometheus collectors for provider requests and
// collection runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptodigest_provider_requests_total",
		Help: "Requests sent to the market data provider, by endpoint and HTTP status",
	}, []string{"endpoint", "code"})

	ProviderThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptodigest_provider_throttled_total",
		Help: "Throttled (429) responses received from the market data provider",
	})

	CoinsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptodigest_coins_processed_total",
		Help: "Coins processed per run, by outcome",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptodigest_run_duration_seconds",
		Help:    "Wall time of a full collection run",
		Buckets: []float64{10, 30, 60, 120, 300, 600},
	})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptodigest_last_run_timestamp_seconds",
		Help: "Unix time the last collection run finished",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
