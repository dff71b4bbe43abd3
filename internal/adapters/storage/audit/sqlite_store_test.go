package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/audit"
)

// TestSQLiteStore_SaveAndList verifies filtering and newest-first ordering.
func TestSQLiteStore_SaveAndList(t *testing.T) {
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

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []domain.Event{
		domain.NewEvent(base, "acc-1", domain.CategoryAttendance, domain.ActionCreate).WithResource("session_record", "r1"),
		domain.NewEvent(base.Add(time.Hour), "acc-1", domain.CategoryMarks, domain.ActionCreate).WithResource("session_record", "r2"),
		domain.NewEvent(base.Add(2*time.Hour), "acc-2", domain.CategoryAttendance, domain.ActionUpdate).WithResource("session_record", "r1"),
	}
	for _, e := range events {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := s.List(ctx, Filter{}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != events[2].ID {
		t.Fatalf("List() = %d events, want 3 newest first", len(all))
	}
	if !all[0].Timestamp.Equal(events[2].Timestamp) {
		t.Errorf("Timestamp = %v, want %v", all[0].Timestamp, events[2].Timestamp)
	}

	cat := domain.CategoryAttendance
	res := "r1"
	got, err := s.List(ctx, Filter{Category: &cat, ResourceID: &res}, 10)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("filtered List() = %d events, want 2", len(got))
	}

	limited, _ := s.List(ctx, Filter{}, 1)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
}
