package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/account"
)

// TestSQLiteStore_RoundTrip verifies lookup by id and email plus lockout persistence.
func TestSQLiteStore_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	s := NewSQLiteStore(db)
	ctx := context.Background()

	created := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	a := domain.Account{ID: "acc-1", Email: "Tutor@School.example", PasswordHash: "h", Role: domain.RoleInstructor, CreatedAt: created}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.GetByEmail(ctx, "tutor@school.example")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != "acc-1" || !got.CreatedAt.Equal(created) || !got.LockedUntil.IsZero() {
		t.Errorf("GetByEmail() = %+v", got)
	}

	a.FailedLogins = 5
	a.LockedUntil = created.Add(15 * time.Minute)
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, err = s.GetByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FailedLogins != 5 || !got.LockedUntil.Equal(a.LockedUntil) {
		t.Errorf("lockout not persisted: %+v", got)
	}

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	list, err := s.List(ctx, ListFilter{Limit: 10, Role: domain.RoleAdmin})
	if err != nil || len(list) != 0 {
		t.Errorf("List(admin) = %v, %v; want none", list, err)
	}
	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}
