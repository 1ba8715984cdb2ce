// Package journal keeps a best-effort local record of the events the hook
// emitted (or skipped), for the stats and doctor commands. The journal is
// strictly observational: any failure here degrades to "not journaled" and
// never affects hook behavior.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ts         TEXT NOT NULL,
    event      TEXT NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',
    project    TEXT NOT NULL DEFAULT '',
    outcome    TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS events_ts ON events (ts);
`

// Outcomes recorded per event.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped" // no API key configured
	OutcomeFailed  = "failed"  // transport or server error
)

// Entry is one journaled event.
type Entry struct {
	ID        int64
	Time      time.Time
	Event     string
	SessionID string
	Project   string
	Outcome   string
	Detail    string // JSON payload as sent
}

type DB struct {
	db *sql.DB
}

// Open creates the journal database, its parent directory, and the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Record inserts one entry. A nil receiver is a no-op so callers can hold
// an unopened journal without guarding every call.
func (d *DB) Record(e Entry) error {
	if d == nil || d.db == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := d.db.Exec(
		`INSERT INTO events (ts, event, session_id, project, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339),
		e.Event, e.SessionID, e.Project, e.Outcome, e.Detail,
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (d *DB) Recent(limit int) ([]Entry, error) {
	if d == nil || d.db == nil {
		return nil, nil
	}
	rows, err := d.db.Query(
		`SELECT id, ts, event, session_id, project, outcome, detail
		 FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Event, &e.SessionID, &e.Project, &e.Outcome, &e.Detail); err != nil {
			return nil, err
		}
		e.Time, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountRow is one aggregate from Counts.
type CountRow struct {
	Event   string
	Outcome string
	N       int
}

// Counts aggregates journaled events per event kind and outcome.
func (d *DB) Counts() ([]CountRow, error) {
	if d == nil || d.db == nil {
		return nil, nil
	}
	rows, err := d.db.Query(
		`SELECT event, outcome, COUNT(*) FROM events GROUP BY event, outcome ORDER BY event, outcome`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CountRow
	for rows.Next() {
		var c CountRow
		if err := rows.Scan(&c.Event, &c.Outcome, &c.N); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// EventCount returns the total number of journaled events.
func (d *DB) EventCount() (int, error) {
	if d == nil || d.db == nil {
		return 0, nil
	}
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}

// DetailJSON marshals a payload for the detail column, tolerating failure.
func DetailJSON(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}
