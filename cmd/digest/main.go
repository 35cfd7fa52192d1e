package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"CryptoDigest/internal/collector"
	"CryptoDigest/internal/config"
	"CryptoDigest/internal/logging"
	"CryptoDigest/internal/metrics"
	"CryptoDigest/internal/notifier"
	"CryptoDigest/internal/recorder"
	"CryptoDigest/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation", zap.Error(err))
	}
	logger.Info("CryptoDigest starting",
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("market_query", cfg.Provider.MarketQuery),
		zap.Duration("request_interval", cfg.Provider.Interval()),
		zap.Int("coins", len(cfg.Coins)))

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fetcher := collector.NewHTTPFetcher(cfg.Provider, cfg.Proxy, logger.Named("fetcher"))
	retriever := collector.NewRetriever(fetcher, cfg.Provider, logger.Named("retriever"))
	col := collector.NewCollector(retriever, cfg.Coins, logger.Named("collector"))

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger.Named("telegram"))

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger.Named("recorder"))
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	if cfg.Metrics.Addr != "" {
		go metrics.Serve(ctx, cfg.Metrics.Addr, logger.Named("metrics"))
	}

	sched := scheduler.NewScheduler(ctx, col, tn, rec, cfg.Output.Dir, logger.Named("scheduler"))

	// One-shot mode for CI jobs: collect, write, exit.
	if os.Getenv("RUN_ONCE") == "true" {
		if _, err := sched.RunNow(); err != nil {
			logger.Error("run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		logger.Fatal("register cron task", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing daily task now")
		go sched.RunNow()
	}

	logger.Info("CryptoDigest is running. Press Ctrl+C to stop.", zap.String("cron", cfg.Schedule.DailyCron))
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping...")
}
