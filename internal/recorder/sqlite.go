package recorder

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sqlx.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			report_date TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			coins       INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			output_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS coin_outcomes (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(run_id),
			position INTEGER NOT NULL,
			symbol   TEXT NOT NULL,
			status   TEXT NOT NULL,
			signal   TEXT,
			error    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON coin_outcomes(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

type coinOutcome struct {
	RunID    string `db:"run_id"`
	Position int    `db:"position"`
	Symbol   string `db:"symbol"`
	Status   string `db:"status"`
	Signal   string `db:"signal"`
	Error    string `db:"error"`
}

// RecordRun stores the run and one outcome row per coin in a transaction.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := RunRow{
		ID:         run.ID,
		ReportDate: run.Report.Date,
		StartedAt:  run.StartedAt.Unix(),
		FinishedAt: run.FinishedAt.Unix(),
		Coins:      len(run.Report.Coins),
		Failed:     run.Report.Failures(),
		OutputPath: run.OutputPath,
	}
	if _, err := tx.NamedExec(`INSERT INTO runs
		(run_id, report_date, started_at, finished_at, coins, failed, output_path)
		VALUES (:run_id, :report_date, :started_at, :finished_at, :coins, :failed, :output_path)`, row); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, c := range run.Report.Coins {
		status := "ok"
		if c.Failed() {
			status = "error"
		}
		if _, err := tx.NamedExec(`INSERT INTO coin_outcomes
			(run_id, position, symbol, status, signal, error)
			VALUES (:run_id, :position, :symbol, :status, :signal, :error)`, coinOutcome{
			RunID:    run.ID,
			Position: i,
			Symbol:   c.Symbol,
			Status:   status,
			Signal:   c.Signal,
			Error:    c.Error,
		}); err != nil {
			return fmt.Errorf("insert outcome %s: %w", c.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRow, error) {
	var rows []RunRow
	err := r.db.Select(&rows, `SELECT run_id, report_date, started_at, finished_at, coins, failed, output_path
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
