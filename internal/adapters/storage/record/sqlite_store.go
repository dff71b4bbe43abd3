package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classbook/internal/adapters/storage"
	"classbook/internal/domain/session"
)

const recordColumns = "id, class_id, kind, title, occurred_at, max_score, submitted_at, submitted_by"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new record Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByKey retrieves a record and its entries.
// PRE: key.ClassID and key.RecordID are non-empty
// POST: Returns the record or session.ErrRecordNotFound
func (s *SQLiteStore) GetByKey(ctx context.Context, key session.Key) (session.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM session_record WHERE id = ? AND class_id = ?",
		key.RecordID, key.ClassID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, fmt.Errorf("record %s/%s: %w", key.ClassID, key.RecordID, session.ErrRecordNotFound)
	}
	if err != nil {
		return session.Record{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, value, feedback FROM session_entry WHERE record_id = ? ORDER BY position",
		rec.ID)
	if err != nil {
		return session.Record{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var memberID, feedback string
		var raw sql.NullString
		if err := rows.Scan(&memberID, &raw, &feedback); err != nil {
			return session.Record{}, err
		}
		v, err := session.ParseText(rec.Kind, raw.String)
		if err != nil {
			return session.Record{}, fmt.Errorf("record %s entry %s: %w", rec.ID, memberID, err)
		}
		rec.Entries = append(rec.Entries, session.Entry{MemberID: memberID, Value: v, Feedback: feedback})
	}
	return rec, rows.Err()
}

// Save persists a record (insert or update) and replaces its entries.
// PRE: rec has been validated
// POST: Header and entries are committed in one transaction
func (s *SQLiteStore) Save(ctx context.Context, rec session.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_record (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title, occurred_at=excluded.occurred_at,
		 max_score=excluded.max_score, submitted_at=excluded.submitted_at, submitted_by=excluded.submitted_by`,
		rec.ID, rec.ClassID, string(rec.Kind), rec.Metadata.Title,
		storage.FormatTime(rec.Metadata.OccurredAt), rec.Metadata.MaxScore,
		storage.FormatTime(rec.SubmittedAt), rec.SubmittedBy)
	if err != nil {
		return fmt.Errorf("save record header: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM session_entry WHERE record_id = ?", rec.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO session_entry (record_id, member_id, position, value, feedback) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range rec.Entries {
		var value any
		if text := e.Value.Text(); text != "" {
			value = text
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, e.MemberID, i, value, e.Feedback); err != nil {
			return fmt.Errorf("save entry %s: %w", e.MemberID, err)
		}
	}

	return tx.Commit()
}

// ListByClass retrieves record headers for a class.
// PRE: classID is non-empty
// POST: Returns records ordered by occurred_at desc; Entries is nil
func (s *SQLiteStore) ListByClass(ctx context.Context, classID string, kind session.Kind) ([]session.Record, error) {
	query := "SELECT " + recordColumns + " FROM session_record WHERE class_id = ?"
	args := []any{classID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY occurred_at DESC, submitted_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []session.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// CountEntries returns how many entries a record holds.
func (s *SQLiteStore) CountEntries(ctx context.Context, recordID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_entry WHERE record_id = ?", recordID).Scan(&n)
	return n, err
}

// scanRecord extracts a record header from a row scanner function.
func scanRecord(scan func(dest ...any) error) (session.Record, error) {
	var rec session.Record
	var kind, occurredAt, submittedAt string
	err := scan(&rec.ID, &rec.ClassID, &kind, &rec.Metadata.Title, &occurredAt,
		&rec.Metadata.MaxScore, &submittedAt, &rec.SubmittedBy)
	if err != nil {
		return session.Record{}, err
	}
	rec.Kind = session.Kind(kind)
	rec.Metadata.OccurredAt, _ = storage.ParseTime(occurredAt)
	rec.SubmittedAt, _ = storage.ParseTime(submittedAt)
	return rec, nil
}
