package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"CryptoDigest/internal/metrics"
	"CryptoDigest/internal/model"
	"CryptoDigest/internal/notifier"
	"CryptoDigest/internal/output"
	"CryptoDigest/internal/recorder"
)

// MarketCollector produces one market report per call.
type MarketCollector interface {
	Collect(ctx context.Context) *model.MarketReport
}

// Notifier delivers the run digest. Implemented by notifier.TelegramNotifier.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the daily collection and hands the report to the writer,
// recorder and notifier.
type Scheduler struct {
	Cron      *cron.Cron
	Collector MarketCollector
	Notifier  Notifier
	Recorder  recorder.Recorder
	OutputDir string
	Logger    *zap.Logger
	Ctx       context.Context

	runMu  sync.Mutex
	mu     sync.Mutex
	latest *model.MarketReport
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col MarketCollector, n Notifier, rec recorder.Recorder, outputDir string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		OutputDir: outputDir,
		Logger:    logger,
		Ctx:       ctx,
	}
}

// Register adds the daily collection job.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes one collection immediately (RUN_ONCE / RUN_ON_START / command).
func (s *Scheduler) RunNow() (*model.MarketReport, error) {
	return s.run()
}

// Latest returns the report of the most recent run, or nil.
func (s *Scheduler) Latest() *model.MarketReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Scheduler) dailyTask() {
	if _, err := s.run(); err != nil {
		s.Logger.Error("daily task failed", zap.Error(err))
	}
}

// run is serialised so a command-triggered run never overlaps the cron job.
func (s *Scheduler) run() (*model.MarketReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	log := s.Logger.With(zap.String("run_id", runID))
	log.Info("running daily collection")

	started := time.Now()
	report := s.Collector.Collect(s.Ctx)
	finished := time.Now()
	metrics.LastRunTimestamp.Set(float64(finished.Unix()))

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	path, err := output.WriteReport(s.OutputDir, report)
	if err != nil {
		return report, fmt.Errorf("write report: %w", err)
	}
	log.Info("market report written", zap.String("path", path), zap.Int("failed", report.Failures()))

	if err := s.Recorder.RecordRun(&recorder.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: finished,
		Report:     report,
		OutputPath: path,
	}); err != nil {
		log.Error("record run failed", zap.Error(err))
	}

	s.trySend(notifier.FormatMarketDigest(report))
	return report, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/market", "查看市場":
		if _, err := s.run(); err != nil {
			return fmt.Sprintf("❌ 執行失敗: %v", err)
		}
		return ""
	case "/latest", "最新日報":
		if r := s.Latest(); r != nil {
			return notifier.FormatMarketDigest(r)
		}
		return "尚無日報，請先執行 /market"
	case "/history", "執行紀錄":
		rows, err := s.Recorder.RecentRuns(7)
		if err != nil {
			return fmt.Sprintf("❌ 讀取紀錄失敗: %v", err)
		}
		return notifier.FormatRunHistory(rows)
	default:
		return "可用命令:\n• /market 立即抓取\n• /latest 最新日報\n• /history 執行紀錄"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification failed", zap.Error(err))
	}
}
