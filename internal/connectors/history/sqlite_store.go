package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"customer-request-dashboard/internal/refresh"
)

// Entry is one persisted refresh run.
type Entry struct {
	RunID                string    `json:"run_id"`
	Reason               string    `json:"reason"`
	Source               string    `json:"source"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
	DurationMS           int64     `json:"duration_ms"`
	OK                   bool      `json:"ok"`
	Error                string    `json:"error,omitempty"`
	Total                int       `json:"total"`
	Today                int       `json:"today"`
	AvgProcessingSeconds int       `json:"avg_processing_seconds"`
	SuccessRate          int       `json:"success_rate"`
}

// Summary aggregates the stored runs.
type Summary struct {
	Runs          int64      `json:"runs"`
	Failures      int64      `json:"failures"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// Store keeps refresh runs in SQLite.
type Store struct {
	db   *sql.DB
	keep int
}

// NewSQLiteStore opens path and prepares the schema. keep bounds the number
// of stored runs; 0 keeps everything.
func NewSQLiteStore(path string, keep int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS refresh_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL UNIQUE,
  reason TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  started_at DATETIME NOT NULL,
  finished_at DATETIME NOT NULL,
  ok INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  total INTEGER NOT NULL DEFAULT 0,
  today INTEGER NOT NULL DEFAULT 0,
  avg_processing_seconds INTEGER NOT NULL DEFAULT 0,
  success_rate INTEGER NOT NULL DEFAULT 0
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_rr_started_at ON refresh_runs(started_at);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, keep: keep}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores a finished run and trims old rows.
func (s *Store) RecordRun(ctx context.Context, run refresh.Run) error {
	ok := 0
	if run.OK {
		ok = 1
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO refresh_runs (run_id, reason, source, started_at, finished_at, ok, error, total, today, avg_processing_seconds, success_rate)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, run.ID, string(run.Reason), run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(), ok, run.Error,
		run.Stats.Total, run.Stats.Today, run.Stats.AvgProcessingSeconds, run.Stats.SuccessRate); err != nil {
		return err
	}

	if s.keep > 0 {
		if _, err := s.db.ExecContext(ctx, `
DELETE FROM refresh_runs
WHERE id NOT IN (SELECT id FROM refresh_runs ORDER BY id DESC LIMIT ?);
`, s.keep); err != nil {
			return err
		}
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, reason, source, started_at, finished_at, ok, error, total, today, avg_processing_seconds, success_rate
FROM refresh_runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var item Entry
		var ok int
		if err := rows.Scan(&item.RunID, &item.Reason, &item.Source, &item.StartedAt, &item.FinishedAt, &ok, &item.Error,
			&item.Total, &item.Today, &item.AvgProcessingSeconds, &item.SuccessRate); err != nil {
			return nil, err
		}
		item.OK = ok == 1
		item.DurationMS = item.FinishedAt.Sub(item.StartedAt).Milliseconds()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary counts runs and reports the latest success and failure times.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	out := &Summary{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0) FROM refresh_runs;`).
		Scan(&out.Runs, &out.Failures); err != nil {
		return nil, err
	}

	var err error
	if out.LastSuccessAt, err = s.lastFinished(ctx, 1); err != nil {
		return nil, err
	}
	if out.LastFailureAt, err = s.lastFinished(ctx, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) lastFinished(ctx context.Context, ok int) (*time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, `SELECT finished_at FROM refresh_runs WHERE ok = ? ORDER BY id DESC LIMIT 1;`, ok).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
