package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"classbook/internal/adapters/http/perf"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/session"
)

// RecordWriter persists a session record and its entries atomically.
type RecordWriter interface {
	Save(ctx context.Context, rec session.Record) error
}

// AuditWriter persists audit events.
type AuditWriter interface {
	Save(ctx context.Context, event audit.Event) error
}

// PerfRecorder receives submit timings.
type PerfRecorder interface {
	Record(e perf.Entry)
}

// RecordSinkDeps holds dependencies for RecordSink. Audit, Perf and
// Notices are optional.
type RecordSinkDeps struct {
	Records    RecordWriter
	Audit      AuditWriter
	Perf       PerfRecorder
	Notices    *NotifyAbsencesDeps
	GenerateID func() string
	Now        func() time.Time
}

// RecordSink is the session.Sink that writes confirmed sessions to storage.
type RecordSink struct {
	deps RecordSinkDeps
}

// Ensure RecordSink implements session.Sink.
var _ session.Sink = (*RecordSink)(nil)

// NewRecordSink creates a RecordSink.
// PRE: deps.Records, deps.GenerateID and deps.Now are set
func NewRecordSink(deps RecordSinkDeps) *RecordSink {
	return &RecordSink{deps: deps}
}

// Save persists a submission as one record in a single transaction, then
// writes the audit event and sends absence notices. Only the record write
// can fail the submit.
// PRE: sub comes from a Controller in ConfirmingSubmit
// POST: On success the record exists under the returned ID
func (s *RecordSink) Save(ctx context.Context, sub session.Submission) (session.Receipt, error) {
	start := s.deps.Now()
	action := audit.ActionUpdate
	id := sub.RecordID
	if sub.IsNew() {
		action = audit.ActionCreate
		id = s.deps.GenerateID()
	}

	rec := session.Record{
		ID:          id,
		ClassID:     sub.ClassID,
		Kind:        sub.Kind,
		Metadata:    sub.Metadata,
		Entries:     sub.Entries,
		SubmittedAt: start,
		SubmittedBy: sub.SubmittedBy,
	}
	if err := rec.Validate(); err != nil {
		s.recordPerf(rec, start, true)
		return session.Receipt{}, fmt.Errorf("invalid submission: %w", err)
	}

	if err := s.deps.Records.Save(ctx, rec); err != nil {
		s.recordPerf(rec, start, true)
		slog.Error("session_submit_failed", "record_id", id, "class_id", rec.ClassID, "kind", rec.Kind, "error", err)
		return session.Receipt{}, fmt.Errorf("persist record %s: %w", id, err)
	}
	s.recordPerf(rec, start, false)

	slog.Info("session_submitted",
		"record_id", id,
		"class_id", rec.ClassID,
		"kind", rec.Kind,
		"action", action,
		"entries", len(rec.Entries),
		"actor", rec.SubmittedBy,
	)

	s.writeAudit(ctx, rec, action)

	if rec.Kind == session.KindAttendance && s.deps.Notices != nil {
		if _, err := ExecuteNotifyAbsences(ctx, NotifyAbsencesInput{Record: rec}, *s.deps.Notices); err != nil {
			slog.Warn("absence_notice_failed", "record_id", id, "error", err)
		}
	}

	return session.Receipt{RecordID: id, SubmittedAt: start}, nil
}

func (s *RecordSink) writeAudit(ctx context.Context, rec session.Record, action audit.Action) {
	if s.deps.Audit == nil {
		return
	}
	meta, _ := json.Marshal(rec.Summary())
	event := audit.NewEvent(rec.SubmittedAt, rec.SubmittedBy, audit.CategoryFor(rec.Kind), action).
		WithResource("session_record", rec.ID).
		WithDescription(rec.Metadata.Title).
		WithMetadata(string(meta))
	if err := s.deps.Audit.Save(ctx, event); err != nil {
		slog.Warn("audit_write_failed", "record_id", rec.ID, "error", err)
	}
}

func (s *RecordSink) recordPerf(rec session.Record, start time.Time, failed bool) {
	if s.deps.Perf == nil {
		return
	}
	s.deps.Perf.Record(perf.Entry{
		Kind:       perf.KindSubmit,
		Path:       string(rec.Kind),
		DurationMs: float64(s.deps.Now().Sub(start).Microseconds()) / 1000.0,
		Timestamp:  start,
		Failed:     failed,
	})
}
