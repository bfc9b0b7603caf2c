package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS crawl_runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	ended_at   TEXT NOT NULL,
	steps      INTEGER NOT NULL,
	succeeded  INTEGER NOT NULL,
	failed     INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	cancelled  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS crawl_steps (
	run_id  TEXT NOT NULL,
	idx     INTEGER NOT NULL,
	path    TEXT NOT NULL,
	label   TEXT NOT NULL,
	state   TEXT NOT NULL,
	message TEXT,
	at      TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);`

// Journal records auto-crawl runs in a SQLite database
type Journal struct {
	db *sql.DB
}

// JournalRun is one stored crawl run
type JournalRun struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Steps     int       `json:"steps"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Cancelled bool      `json:"cancelled"`
}

// JournalStep is the final status of one step of a stored run
type JournalStep struct {
	Index   int        `json:"index"`
	Path    string     `json:"path"`
	Label   string     `json:"label"`
	State   CrawlState `json:"state"`
	Message string     `json:"message,omitempty"`
	At      time.Time  `json:"at"`
}

// OpenJournal opens (creating if needed) the journal database at path
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &PersistenceError{Path: path, Op: "mkdir", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// A single connection keeps an in-memory database alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal ping failed: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordRun stores a finished run and the final status of each of its steps
func (j *Journal) RecordRun(res *CrawlResult) error {
	if res == nil {
		return nil
	}
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT OR REPLACE INTO crawl_runs
		(id, started_at, ended_at, steps, succeeded, failed, skipped, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, formatJournalTime(res.StartedAt), formatJournalTime(res.EndedAt),
		len(res.Steps), res.Succeeded, res.Failed, res.Skipped, boolToInt(res.Cancelled))
	if err != nil {
		return fmt.Errorf("insert run failed: %w", err)
	}

	for _, st := range res.Steps {
		_, err = tx.Exec(`INSERT OR REPLACE INTO crawl_steps
			(run_id, idx, path, label, state, message, at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, st.Index, st.Step.Path, st.Step.Label, string(st.State), st.Message, formatJournalTime(st.At))
		if err != nil {
			return fmt.Errorf("insert step failed: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first
func (j *Journal) RecentRuns(limit int) ([]JournalRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`SELECT id, started_at, ended_at, steps, succeeded, failed, skipped, cancelled
		FROM crawl_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []JournalRun
	for rows.Next() {
		var run JournalRun
		var started, ended string
		var cancelled int
		if err := rows.Scan(&run.ID, &started, &ended, &run.Steps, &run.Succeeded, &run.Failed, &run.Skipped, &cancelled); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		run.StartedAt = parseJournalTime(started)
		run.EndedAt = parseJournalTime(ended)
		run.Cancelled = cancelled != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return runs, nil
}

// RunSteps returns the steps of one run in order
func (j *Journal) RunSteps(runID string) ([]JournalStep, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	rows, err := j.db.Query(`SELECT idx, path, label, state, message, at
		FROM crawl_steps WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var steps []JournalStep
	for rows.Next() {
		var st JournalStep
		var state, at string
		var msg sql.NullString
		if err := rows.Scan(&st.Index, &st.Path, &st.Label, &state, &msg, &at); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		st.State = CrawlState(state)
		st.Message = msg.String
		st.At = parseJournalTime(at)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return steps, nil
}

// journalTimeLayout is fixed width so stored timestamps sort as strings
const journalTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatJournalTime(t time.Time) string {
	return t.UTC().Format(journalTimeLayout)
}

func parseJournalTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
