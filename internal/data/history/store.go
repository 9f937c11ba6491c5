// Package history persists build runs and per-file compile outcomes in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Run struct {
	ID         string
	Mode       string
	FileCount  int
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
}

type CompileRecord struct {
	RunID    string
	Format   string
	Path     string
	Duration time.Duration
	Error    string
	At       time.Time
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
	now  func() time.Time
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch-mode compiles record concurrently.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// StartRun records a new run in the running state.
func (s *Store) StartRun(mode string, files int) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		FileCount: files,
		StartedAt: s.now(),
		Status:    StatusRunning,
	}
	err := s.withRetry("start run", func() error {
		_, err := s.db.Exec(
			`INSERT INTO runs (id, mode, file_count, started_utc, status) VALUES (?, ?, ?, ?, ?)`,
			run.ID, run.Mode, run.FileCount, run.StartedAt.Format(time.RFC3339Nano), run.Status,
		)
		return err
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// FinishRun marks a run succeeded, or failed with runErr's message.
func (s *Store) FinishRun(id string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	return s.withRetry("finish run", func() error {
		res, err := s.db.Exec(
			`UPDATE runs SET finished_utc = ?, status = ?, error = ? WHERE id = ?`,
			s.now().Format(time.RFC3339Nano), status, msg, id,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %q not found", id)
		}
		return nil
	})
}

func (s *Store) RecordCompile(rec CompileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.At.IsZero() {
		rec.At = s.now()
	}
	return s.withRetry("record compile", func() error {
		_, err := s.db.Exec(
			`INSERT INTO compiles (run_id, format, path, duration_ms, error, ts_utc) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.Format, rec.Path, rec.Duration.Milliseconds(), rec.Error, rec.At.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT id, mode, file_count, started_utc, finished_utc, status, error FROM runs ORDER BY started_utc DESC LIMIT ?`,
			limit,
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run                     Run
			startedRaw, finishedRaw string
		)
		if err := rows.Scan(&run.ID, &run.Mode, &run.FileCount, &startedRaw, &finishedRaw, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if run.StartedAt, err = parseTS(startedRaw); err != nil {
			return nil, err
		}
		if finishedRaw != "" {
			if run.FinishedAt, err = parseTS(finishedRaw); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// Compiles returns the compile records of one run in insertion order.
func (s *Store) Compiles(runID string) ([]CompileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load compiles", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT run_id, format, path, duration_ms, error, ts_utc FROM compiles WHERE run_id = ? ORDER BY id ASC`,
			runID,
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]CompileRecord, 0)
	for rows.Next() {
		var (
			rec   CompileRecord
			ms    int64
			tsRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Format, &rec.Path, &ms, &rec.Error, &tsRaw); err != nil {
			return nil, fmt.Errorf("scan compile row: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		if rec.At, err = parseTS(tsRaw); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compile rows: %w", err)
	}
	return records, nil
}

func parseTS(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
