package session

import (
	"context"
	"errors"
	"time"
)

// Key identifies a stored record within its class.
type Key struct {
	ClassID  string
	RecordID string
}

// Record is a persisted session: one lecture's attendance, one test's marks
// or one assignment's review. It is read to hydrate a Controller and never
// mutated in place.
type Record struct {
	ID          string
	ClassID     string
	Kind        Kind
	Metadata    Metadata
	Entries     []Entry
	SubmittedAt time.Time
	SubmittedBy string // AccountID of the instructor who submitted
}

// Key returns the composite lookup key of r.
func (r Record) Key() Key {
	return Key{ClassID: r.ClassID, RecordID: r.ID}
}

// Validate checks if the Record has valid data.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.ID == "" {
		return errors.New("record ID is required")
	}
	if r.ClassID == "" {
		return errors.New("record must belong to a class")
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := r.Metadata.Validate(r.Kind); err != nil {
		return err
	}
	if len(r.Entries) == 0 {
		return ErrEmptyRoster
	}
	for _, e := range r.Entries {
		if e.Value.kind != r.Kind {
			return ErrKindMismatch
		}
	}
	return nil
}

// Summary re-derives the aggregate of a stored record.
func (r Record) Summary() Summary {
	return Summarize(r.Kind, r.Metadata.MaxScore, r.Entries)
}

// Submission is what a Controller hands to its Sink on confirm.
// RecordID is empty for a session created from scratch.
type Submission struct {
	ClassID     string
	RecordID    string
	Kind        Kind
	Metadata    Metadata
	Entries     []Entry
	Summary     Summary
	SubmittedBy string
}

// IsNew reports whether the submission creates a record rather than replacing one.
func (s Submission) IsNew() bool {
	return s.RecordID == ""
}

// Receipt acknowledges a saved submission.
type Receipt struct {
	RecordID    string    `json:"record_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Sink persists a confirmed session in a single call.
type Sink interface {
	Save(ctx context.Context, sub Submission) (Receipt, error)
}
