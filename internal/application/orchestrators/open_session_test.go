package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"classbook/internal/domain/roster"
	"classbook/internal/domain/session"
)

func openDeps(records *mockRecordStore) OpenSessionDeps {
	return OpenSessionDeps{
		Roster:  &mockRosterStore{members: map[string][]roster.Member{"p5": classRoster()}},
		Records: records,
		Sink:    NewRecordSink(RecordSinkDeps{Records: records, GenerateID: testID, Now: testNow}),
		Now:     testNow,
	}
}

func storedMarks() session.Record {
	return session.Record{
		ID:      "r9",
		ClassID: "p5",
		Kind:    session.KindScore,
		Metadata: session.Metadata{
			Title:      "Unit test 1",
			OccurredAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			MaxScore:   50,
		},
		Entries: []session.Entry{
			{MemberID: "s1", Value: session.ScoreValue(42)},
			{MemberID: "gone", Value: session.ScoreValue(10)},
		},
	}
}

// TestExecuteOpenSession_New tests that a session without a record starts in Setup.
func TestExecuteOpenSession_New(t *testing.T) {
	c, err := ExecuteOpenSession(context.Background(), OpenSessionInput{
		Kind:    session.KindAttendance,
		ClassID: "p5",
		ActorID: "acc-1",
	}, openDeps(newMockRecordStore()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != session.StateSetup {
		t.Errorf("State() = %s, want setup", c.State())
	}
	if len(c.Entries()) != 3 || c.Dirty() {
		t.Errorf("entries = %d, dirty = %v; want 3 clean entries", len(c.Entries()), c.Dirty())
	}
}

// TestExecuteOpenSession_Hydrates tests the stored-record path.
func TestExecuteOpenSession_Hydrates(t *testing.T) {
	c, err := ExecuteOpenSession(context.Background(), OpenSessionInput{
		Kind:     session.KindScore,
		ClassID:  "p5",
		RecordID: "r9",
	}, openDeps(newMockRecordStore(storedMarks())))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != session.StateEditing || c.Dirty() {
		t.Fatalf("State() = %s, Dirty() = %v; want clean editing", c.State(), c.Dirty())
	}
	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want roster size 3", len(entries))
	}
	if v, graded := entries[0].Value.Score(); !graded || v != 42 {
		t.Errorf("s1 = %v, want 42", entries[0].Value)
	}
	if _, graded := entries[1].Value.Score(); graded {
		t.Error("s2 should default to ungraded")
	}
	if c.RecordID() != "r9" {
		t.Errorf("RecordID() = %q, want r9", c.RecordID())
	}
}

// TestExecuteOpenSession_Errors tests the rejection paths.
func TestExecuteOpenSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   OpenSessionInput
		wantErr error
	}{
		{"unknown record", OpenSessionInput{Kind: session.KindScore, ClassID: "p5", RecordID: "nope"}, session.ErrRecordNotFound},
		{"wrong kind", OpenSessionInput{Kind: session.KindReview, ClassID: "p5", RecordID: "r9"}, session.ErrKindMismatch},
		{"empty roster", OpenSessionInput{Kind: session.KindScore, ClassID: "p6"}, session.ErrEmptyRoster},
		{"invalid kind", OpenSessionInput{Kind: "quiz", ClassID: "p5"}, session.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ExecuteOpenSession(context.Background(), tt.input, openDeps(newMockRecordStore(storedMarks())))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if c != nil {
				t.Error("no controller should be returned on error")
			}
		})
	}
}

// TestExecuteOpenSession_RosterError tests that a roster failure is surfaced.
func TestExecuteOpenSession_RosterError(t *testing.T) {
	deps := openDeps(newMockRecordStore())
	deps.Roster = &mockRosterStore{err: errors.New("db down")}
	if _, err := ExecuteOpenSession(context.Background(), OpenSessionInput{Kind: session.KindAttendance, ClassID: "p5"}, deps); err == nil {
		t.Error("expected error")
	}
}
