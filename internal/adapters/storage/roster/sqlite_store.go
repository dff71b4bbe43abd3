package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/roster"
)

const memberColumns = "id, class_id, display_name, roll_label, guardian_contact"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new roster Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	var contact sql.NullString
	if err := row.Scan(&m.ID, &m.ClassID, &m.DisplayName, &m.RollLabel, &contact); err != nil {
		return domain.Member{}, err
	}
	if contact.Valid {
		m.GuardianContact = contact.String
	}
	return m, nil
}

// GetByID retrieves a roster member by ID.
// PRE: id is non-empty
// POST: Returns the member or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM roster_member WHERE id = ?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("roster member %s: %w", id, storage.ErrNotFound)
	}
	return m, err
}

// Save persists a roster member (insert or update).
// PRE: m has been validated
// POST: Member is persisted
func (s *SQLiteStore) Save(ctx context.Context, m domain.Member) error {
	var contact any
	if m.GuardianContact != "" {
		contact = m.GuardianContact
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roster_member (`+memberColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET class_id=excluded.class_id, display_name=excluded.display_name,
		 roll_label=excluded.roll_label, guardian_contact=excluded.guardian_contact`,
		m.ID, m.ClassID, m.DisplayName, m.RollLabel, contact)
	return err
}

// Delete removes a roster member.
// PRE: id is non-empty
// POST: Member with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM roster_member WHERE id = ?", id)
	return err
}

// ListByClass returns the roster of a class in roll order.
// PRE: classID is non-empty
// POST: Returns members ordered by roll label then name; empty slice if none
func (s *SQLiteStore) ListByClass(ctx context.Context, classID string) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM roster_member WHERE class_id = ? ORDER BY roll_label, display_name, id", classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
