package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// TimeLayout is the stored timestamp format. It is always UTC with a
// fixed-width fraction so text order matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp. Rows written with an offset or a
// trimmed fraction also parse.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// DSN builds the modernc sqlite connection string with WAL, foreign keys
// and a busy timeout.
func DSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}

// schema creates every table used by the stores. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS account (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	created_at TEXT NOT NULL,
	failed_logins INTEGER NOT NULL DEFAULT 0,
	locked_until TEXT
);

CREATE TABLE IF NOT EXISTS roster_member (
	id TEXT PRIMARY KEY,
	class_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	roll_label TEXT NOT NULL DEFAULT '',
	guardian_contact TEXT
);

CREATE INDEX IF NOT EXISTS idx_roster_member_class ON roster_member(class_id, roll_label);

CREATE TABLE IF NOT EXISTS session_record (
	id TEXT PRIMARY KEY,
	class_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	max_score INTEGER NOT NULL DEFAULT 0,
	submitted_at TEXT NOT NULL,
	submitted_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_session_record_class ON session_record(class_id, kind, occurred_at);

CREATE TABLE IF NOT EXISTS session_entry (
	record_id TEXT NOT NULL,
	member_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	value TEXT,
	feedback TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (record_id, member_id),
	FOREIGN KEY (record_id) REFERENCES session_record(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit_event (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	category TEXT NOT NULL,
	action TEXT NOT NULL,
	severity TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
`

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables exist, foreign keys are enforced
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
