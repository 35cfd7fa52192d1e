package recorder

import (
	"time"

	"CryptoDigest/internal/model"
)

// Run describes one finished collection run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Report     *model.MarketReport
	OutputPath string
}

// RunRow is a stored run as read back from the history.
type RunRow struct {
	ID         string `db:"run_id"`
	ReportDate string `db:"report_date"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
	Coins      int    `db:"coins"`
	Failed     int    `db:"failed"`
	OutputPath string `db:"output_path"`
}

// Recorder keeps an audit trail of collection runs: when they ran and which
// coins succeeded, never the indicator values themselves.
type Recorder interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]RunRow, error)
	Close() error
}

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *Run) error             { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunRow, error) { return nil, nil }
func (n *NoopRecorder) Close() error                       { return nil }
