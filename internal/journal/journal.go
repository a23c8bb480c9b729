// Package journal persists a record of provisioning runs and the fallback
// strategies attempted during each, backed by SQLite. Fatal errors replay
// the attempts for their stage so the operator sees what was already tried,
// and `rigup history` lists past runs.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is the provisioning history store.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	op TEXT NOT NULL,
	outcome TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize runs schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	stage TEXT NOT NULL,
	strategy TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize attempts schema: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Run is one recorded provisioning operation.
type Run struct {
	ID         int64
	Op         string
	Outcome    string
	Error      string
	StartedAt  string
	FinishedAt string
}

// Attempt is one recorded fallback strategy attempt within a run.
type Attempt struct {
	Stage     string
	Strategy  string
	Outcome   string
	Error     string
	CreatedAt string
}

// BeginRun opens a run record and returns its id.
func (j *Journal) BeginRun(op string) (int64, error) {
	res, err := j.db.Exec(
		`INSERT INTO runs (op, started_at) VALUES (?, ?)`,
		op, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("record run start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read run id: %w", err)
	}
	return id, nil
}

// FinishRun closes a run record with its outcome.
func (j *Journal) FinishRun(id int64, outcome, errMsg string) error {
	_, err := j.db.Exec(
		`UPDATE runs SET outcome = ?, error = ?, finished_at = ? WHERE id = ?`,
		outcome, errMsg, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// RecordAttempt appends one strategy attempt to a run.
func (j *Journal) RecordAttempt(runID int64, stage, strategy, outcome, errMsg string) error {
	_, err := j.db.Exec(
		`INSERT INTO attempts (run_id, stage, strategy, outcome, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, strategy, outcome, errMsg, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Attempts lists a run's attempts in the order they happened.
func (j *Journal) Attempts(runID int64) ([]Attempt, error) {
	rows, err := j.db.Query(
		`SELECT stage, strategy, outcome, error, created_at FROM attempts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.Stage, &a.Strategy, &a.Outcome, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}
	return out, nil
}

// RecentRuns lists the most recent runs, newest first.
func (j *Journal) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(
		`SELECT id, op, outcome, error, started_at, finished_at FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Op, &r.Outcome, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
