package storage

import (
	"database/sql"
	"sort"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestInitDB_CreatesTables verifies the schema creates every table the stores use.
func TestInitDB_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	want := []string{"account", "audit_event", "roster_member", "session_entry", "session_record"}
	got := getTableNames(t, db)
	if len(got) != len(want) {
		t.Fatalf("tables = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("table[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestInitDB_Idempotent verifies InitDB can run on an existing schema.
func TestInitDB_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("first InitDB: %v", err)
	}
	if err := InitDB(db); err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
}

// TestDSN verifies the pragmas are appended to the path.
func TestDSN(t *testing.T) {
	got := DSN("classbook.db")
	want := "classbook.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("DSN = %s, want %s", got, want)
	}
}

// TestFormatTime verifies stored timestamps are UTC, fixed width and sort as text.
func TestFormatTime(t *testing.T) {
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	whole := FormatTime(noon)
	half := FormatTime(noon.Add(500 * time.Millisecond))
	zoned := FormatTime(noon.In(time.FixedZone("NZDT", 13*3600)))

	if whole != "2026-03-10T12:00:00.000000000Z" {
		t.Errorf("FormatTime(noon) = %q", whole)
	}
	if zoned != whole {
		t.Errorf("FormatTime(zoned) = %q, want %q", zoned, whole)
	}
	if !(whole < half) {
		t.Errorf("%q should sort before %q", whole, half)
	}

	for _, raw := range []string{whole, "2026-03-10T12:00:00Z", "2026-03-11T01:00:00+13:00"} {
		got, err := ParseTime(raw)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", raw, err)
		}
		if !got.Equal(noon) {
			t.Errorf("ParseTime(%q) = %v, want %v", raw, got, noon)
		}
	}
}
