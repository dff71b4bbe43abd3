package session_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"classbook/internal/domain/session"
)

// TestParseText tests decoding of stored entry values.
func TestParseText(t *testing.T) {
	tests := []struct {
		name    string
		kind    session.Kind
		in      string
		want    session.Value
		wantErr bool
	}{
		{"present", session.KindAttendance, "present", session.MarkValue(session.MarkPresent), false},
		{"leave upper case", session.KindAttendance, "LEAVE", session.MarkValue(session.MarkLeave), false},
		{"unknown mark", session.KindAttendance, "late", session.Value{}, true},
		{"checked", session.KindReview, "checked", session.ReviewValue(session.ReviewChecked), false},
		{"unknown status", session.KindReview, "done", session.Value{}, true},
		{"score", session.KindScore, "42.5", session.ScoreValue(42.5), false},
		{"zero score", session.KindScore, "0", session.ScoreValue(0), false},
		{"ungraded", session.KindScore, "", session.Ungraded(), false},
		{"not a number", session.KindScore, "A+", session.Value{}, true},
		{"bad kind", "quiz", "x", session.Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := session.ParseText(tt.kind, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseText() = %v, want %v", got, tt.want)
			}
			if err != nil {
				return
			}
			back, err := session.ParseText(tt.kind, got.Text())
			if err != nil || back != got {
				t.Errorf("ParseText(Text()) = %v, %v; want %v", back, err, got)
			}
		})
	}
}

// TestValueJSON tests the wire form of entry values.
func TestValueJSON(t *testing.T) {
	tests := []struct {
		v    session.Value
		want string
	}{
		{session.MarkValue(session.MarkAbsent), `"absent"`},
		{session.ReviewValue(session.ReviewPending), `"pending"`},
		{session.ScoreValue(85), `85`},
		{session.ScoreValue(0), `0`},
		{session.Ungraded(), `null`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.v)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", tt.v, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.v, got, tt.want)
		}
		back, err := session.ParseJSON(tt.v.Kind(), got)
		if err != nil {
			t.Fatalf("ParseJSON(%s) error = %v", got, err)
		}
		if back != tt.v {
			t.Errorf("ParseJSON(%s) = %v, want %v", got, back, tt.v)
		}
	}
}

// TestParseJSON_Rejects tests malformed wire values.
func TestParseJSON_Rejects(t *testing.T) {
	tests := []struct {
		kind session.Kind
		raw  string
	}{
		{session.KindScore, `"85"`},
		{session.KindAttendance, `1`},
		{session.KindReview, `null`},
		{session.KindAttendance, ``},
	}
	for _, tt := range tests {
		if _, err := session.ParseJSON(tt.kind, json.RawMessage(tt.raw)); !errors.Is(err, session.ErrInvalidValue) {
			t.Errorf("ParseJSON(%s, %s) error = %v, want ErrInvalidValue", tt.kind, tt.raw, err)
		}
	}
}

// TestEntryStore_SetMaxScoreClamps tests that lowering the bound clamps stored scores.
func TestEntryStore_SetMaxScoreClamps(t *testing.T) {
	s, err := session.NewEntryStore(session.KindScore, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("NewEntryStore() error = %v", err)
	}
	s.SetMaxScore(100)
	s.Set("a", session.ScoreValue(80))
	s.Set("b", session.ScoreValue(30))

	s.SetMaxScore(40)
	if v, _ := mustGet(t, s, "a").Score(); v != 40 {
		t.Errorf("a = %v, want 40", v)
	}
	if v, _ := mustGet(t, s, "b").Score(); v != 30 {
		t.Errorf("b = %v, want 30", v)
	}
	if _, graded := mustGet(t, s, "c").Score(); graded {
		t.Error("c should stay ungraded")
	}
}

// TestEntryStore_RejectsNonFinite tests that NaN scores never reach the store.
func TestEntryStore_RejectsNonFinite(t *testing.T) {
	s, _ := session.NewEntryStore(session.KindScore, []string{"a"})
	s.SetMaxScore(10)
	nan, _ := session.ParseText(session.KindScore, "NaN")
	if err := s.Set("a", nan); !errors.Is(err, session.ErrInvalidValue) {
		t.Errorf("Set(NaN) error = %v, want ErrInvalidValue", err)
	}
	if _, graded := mustGet(t, s, "a").Score(); graded {
		t.Error("rejected value must not be stored")
	}
}

// TestEntryStore_Feedback tests feedback independence from status.
func TestEntryStore_Feedback(t *testing.T) {
	s, _ := session.NewEntryStore(session.KindReview, []string{"a", "b"})
	if err := s.SetFeedback("a", "  neat work  "); err != nil {
		t.Fatalf("SetFeedback() error = %v", err)
	}
	if got := s.Feedback("a"); got != "neat work" {
		t.Errorf("Feedback(a) = %q, want trimmed text", got)
	}
	s.ApplyAll(session.ReviewValue(session.ReviewChecked))
	if got := s.Feedback("a"); got != "neat work" {
		t.Errorf("Feedback(a) after ApplyAll = %q", got)
	}
	s.SetFeedback("a", "")
	if got := s.Feedback("a"); got != "" {
		t.Errorf("Feedback(a) after clear = %q, want empty", got)
	}
	if err := s.SetFeedback("zz", "x"); !errors.Is(err, session.ErrUnknownMember) {
		t.Errorf("SetFeedback(unknown) error = %v, want ErrUnknownMember", err)
	}
	if err := s.SetFeedback("b", strings.Repeat("é", session.MaxFeedbackLength)); err != nil {
		t.Errorf("SetFeedback(multi-byte at limit) error = %v, want nil", err)
	}
	if err := s.SetFeedback("b", strings.Repeat("é", session.MaxFeedbackLength+1)); !errors.Is(err, session.ErrInvalidValue) {
		t.Errorf("SetFeedback(over limit) error = %v, want ErrInvalidValue", err)
	}
}

// TestSummarize tests aggregation for each kind.
func TestSummarize(t *testing.T) {
	att := []session.Entry{
		{MemberID: "a", Value: session.MarkValue(session.MarkPresent)},
		{MemberID: "b", Value: session.MarkValue(session.MarkAbsent)},
		{MemberID: "c", Value: session.MarkValue(session.MarkLeave)},
		{MemberID: "d", Value: session.MarkValue(session.MarkAbsent)},
	}
	sum := session.Summarize(session.KindAttendance, 0, att)
	if want := (session.AttendanceSummary{Present: 1, Absent: 2, Leave: 1}); *sum.Attendance != want {
		t.Errorf("attendance = %+v, want %+v", *sum.Attendance, want)
	}
	if sum.Score != nil || sum.Review != nil {
		t.Error("only the attendance section should be set")
	}

	none := session.Summarize(session.KindScore, 20, []session.Entry{
		{MemberID: "a", Value: session.Ungraded()},
	})
	if none.Score.AveragePercent != 0 || none.Score.Pending != 1 {
		t.Errorf("ungraded summary = %+v", *none.Score)
	}

	half := session.Summarize(session.KindScore, 20, []session.Entry{
		{MemberID: "a", Value: session.ScoreValue(17)},
		{MemberID: "b", Value: session.ScoreValue(0)},
	})
	// (85 + 0) / 2 = 42.5 rounds up.
	if half.Score.AveragePercent != 43 {
		t.Errorf("AveragePercent = %d, want 43", half.Score.AveragePercent)
	}
}

func mustGet(t *testing.T, s *session.EntryStore, id string) session.Value {
	t.Helper()
	v, ok := s.Get(id)
	if !ok {
		t.Fatalf("Get(%s) missing", id)
	}
	return v
}
