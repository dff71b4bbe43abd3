package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"classbook/internal/domain/roster"
)

// State is the position of a Controller in the session lifecycle.
type State string

// Session states
const (
	StateSetup      State = "setup"
	StateEditing    State = "editing"
	StateConfirming State = "confirming_submit"
	StateSubmitted  State = "submitted"
)

// Config carries the collaborators of a Controller.
type Config struct {
	Kind    Kind
	ClassID string
	Members []roster.Member
	Sink    Sink
	Actor   string // AccountID recorded as SubmittedBy

	// Now defaults to time.Now.
	Now func() time.Time
	// OnDirtyChange is called outside the controller lock whenever the
	// dirty flag flips, so a host can install or remove its leave guard.
	OnDirtyChange func(dirty bool)
}

// Controller owns one session: its metadata, its entries and the
// Setup → Editing → ConfirmingSubmit → Submitted state machine.
// All methods are safe for concurrent use. The lock is released while the
// sink call is outstanding; during that window every mutation and a second
// Confirm fail with ErrSubmitInProgress.
type Controller struct {
	mu sync.Mutex

	kind     Kind
	classID  string
	recordID string
	actor    string
	members  []roster.Member
	sink     Sink
	now      func() time.Time
	onDirty  func(bool)

	state      State
	meta       Metadata
	entries    *EntryStore
	dirty      bool
	entered    bool // Editing has been entered at least once
	submitting bool
	lastErr    error
	summary    Summary // computed on OpenConfirm
}

func newController(cfg Config) (*Controller, error) {
	if !cfg.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, cfg.Kind)
	}
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	if cfg.ClassID == "" {
		return nil, errors.New("session must belong to a class")
	}
	store, err := NewEntryStore(cfg.Kind, roster.IDs(cfg.Members))
	if err != nil {
		return nil, err
	}
	members := make([]roster.Member, len(cfg.Members))
	copy(members, cfg.Members)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		kind:    cfg.Kind,
		classID: cfg.ClassID,
		actor:   cfg.Actor,
		members: members,
		sink:    cfg.Sink,
		now:     now,
		onDirty: cfg.OnDirtyChange,
		entries: store,
	}, nil
}

// New creates a blank session in the Setup state.
// PRE: cfg.Kind is valid, cfg.Members is non-empty, cfg.Sink is set
// POST: State is Setup, every member holds the kind default, Dirty is false
func New(cfg Config) (*Controller, error) {
	c, err := newController(cfg)
	if err != nil {
		return nil, err
	}
	c.state = StateSetup
	return c, nil
}

// Hydrate creates a session from a stored record, skipping Setup.
// Record entries for members no longer on the roster are ignored; roster
// members missing from the record keep the kind default.
// PRE: rec.Kind == cfg.Kind and rec.ClassID == cfg.ClassID
// POST: State is Editing, entries mirror rec, Dirty is false
func Hydrate(cfg Config, rec Record) (*Controller, error) {
	if rec.Kind != cfg.Kind {
		return nil, fmt.Errorf("%w: record is %s, session is %s", ErrKindMismatch, rec.Kind, cfg.Kind)
	}
	if rec.ClassID != cfg.ClassID {
		return nil, fmt.Errorf("%w: record %s belongs to another class", ErrRecordNotFound, rec.ID)
	}
	c, err := newController(cfg)
	if err != nil {
		return nil, err
	}
	meta := rec.Metadata.normalized(c.kind)
	if err := meta.Validate(c.kind); err != nil {
		return nil, fmt.Errorf("stored record %s: %w", rec.ID, err)
	}
	c.entries.SetMaxScore(meta.MaxScore)
	for _, e := range rec.Entries {
		if !c.entries.Has(e.MemberID) {
			continue
		}
		if err := c.entries.Set(e.MemberID, e.Value); err != nil {
			return nil, fmt.Errorf("stored record %s: %w", rec.ID, err)
		}
		if e.Feedback != "" && c.kind == KindReview {
			if err := c.entries.SetFeedback(e.MemberID, e.Feedback); err != nil {
				return nil, fmt.Errorf("stored record %s: %w", rec.ID, err)
			}
		}
	}
	c.recordID = rec.ID
	c.meta = meta
	c.state = StateEditing
	c.entered = true
	return c, nil
}

func (c *Controller) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, c.state)
}

// guardLocked rejects work on a submitted or in-flight session, then
// checks that the controller is in want.
func (c *Controller) guardLocked(op string, want State) error {
	if c.state == StateSubmitted {
		return ErrSubmitted
	}
	if c.submitting {
		return ErrSubmitInProgress
	}
	if c.state != want {
		return c.transitionErr(op)
	}
	return nil
}

// setDirtyLocked updates the flag and returns the callback to run after unlock.
func (c *Controller) setDirtyLocked(d bool) func() {
	if c.dirty == d {
		return func() {}
	}
	c.dirty = d
	cb := c.onDirty
	return func() {
		if cb != nil {
			cb(d)
		}
	}
}

// mutate runs fn against the entries while Editing and marks the session dirty.
func (c *Controller) mutate(op string, fn func(*EntryStore) error) error {
	c.mu.Lock()
	if err := c.guardLocked(op, StateEditing); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := fn(c.entries); err != nil {
		c.mu.Unlock()
		return err
	}
	notify := c.setDirtyLocked(true)
	c.mu.Unlock()
	notify()
	return nil
}

// StartEditing fixes the metadata and moves from Setup to Editing.
// The first entry into Editing leaves the session clean; re-entering with
// changed metadata counts as an edit and clamps scores to the new maximum.
// PRE: State is Setup
// POST: On success State is Editing; on validation error nothing changes
func (c *Controller) StartEditing(meta Metadata) error {
	c.mu.Lock()
	if err := c.guardLocked("start editing", StateSetup); err != nil {
		c.mu.Unlock()
		return err
	}
	meta = meta.normalized(c.kind)
	if err := meta.Validate(c.kind); err != nil {
		c.mu.Unlock()
		return err
	}
	if meta.OccurredAt.IsZero() {
		meta.OccurredAt = c.now()
	}
	changed := c.entered && !meta.Equal(c.meta)
	c.meta = meta
	c.entries.SetMaxScore(meta.MaxScore)
	c.state = StateEditing
	c.entered = true
	notify := func() {}
	if changed {
		notify = c.setDirtyLocked(true)
	}
	c.mu.Unlock()
	notify()
	return nil
}

// ReturnToSetup reopens the metadata for editing. Entries are kept.
// PRE: State is Editing
// POST: State is Setup
func (c *Controller) ReturnToSetup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("return to setup", StateEditing); err != nil {
		return err
	}
	c.state = StateSetup
	return nil
}

// SetEntry replaces one member's entry. Out-of-range scores are clamped.
// PRE: State is Editing, memberID is on the roster
// POST: Entry replaced, Dirty is true
func (c *Controller) SetEntry(memberID string, v Value) error {
	return c.mutate("set entry", func(s *EntryStore) error {
		return s.Set(memberID, v)
	})
}

// ApplyToAll replaces every member's entry with v in one atomic step.
// Review feedback is not touched.
// PRE: State is Editing
// POST: Every entry equals v, Dirty is true
func (c *Controller) ApplyToAll(v Value) error {
	return c.mutate("apply to all", func(s *EntryStore) error {
		return s.ApplyAll(v)
	})
}

// SetFeedback sets or clears review feedback for one member.
// PRE: State is Editing, kind is review, memberID is on the roster
// POST: Feedback replaced, status unchanged, Dirty is true
func (c *Controller) SetFeedback(memberID, text string) error {
	return c.mutate("set feedback", func(s *EntryStore) error {
		return s.SetFeedback(memberID, text)
	})
}

// OpenConfirm enters the confirmation step and returns the summary to show.
// PRE: State is Editing
// POST: State is ConfirmingSubmit, previous save error cleared
func (c *Controller) OpenConfirm() (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("open confirm", StateEditing); err != nil {
		return Summary{}, err
	}
	c.summary = Summarize(c.kind, c.meta.MaxScore, c.entries.Snapshot())
	c.lastErr = nil
	c.state = StateConfirming
	return c.summary, nil
}

// CancelConfirm leaves the confirmation step without side effects.
// PRE: State is ConfirmingSubmit
// POST: State is Editing, Dirty unchanged
func (c *Controller) CancelConfirm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked("cancel confirm", StateConfirming); err != nil {
		return err
	}
	c.state = StateEditing
	return nil
}

// Confirm hands the session to the sink. On success the session is
// Submitted and clean; on failure it returns to Editing with every entry
// intact and the error kept in LastError. Retrying is calling OpenConfirm
// and Confirm again.
// PRE: State is ConfirmingSubmit and no Confirm is outstanding
// POST: State is Submitted or Editing
func (c *Controller) Confirm(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	if err := c.guardLocked("confirm", StateConfirming); err != nil {
		c.mu.Unlock()
		return Receipt{}, err
	}
	c.submitting = true
	sub := Submission{
		ClassID:     c.classID,
		RecordID:    c.recordID,
		Kind:        c.kind,
		Metadata:    c.meta,
		Entries:     c.entries.Snapshot(),
		Summary:     c.summary,
		SubmittedBy: c.actor,
	}
	c.mu.Unlock()

	receipt, err := c.sink.Save(ctx, sub)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.state = StateEditing
		c.lastErr = err
		c.mu.Unlock()
		return Receipt{}, fmt.Errorf("save session: %w", err)
	}
	c.state = StateSubmitted
	c.lastErr = nil
	if receipt.RecordID != "" {
		c.recordID = receipt.RecordID
	}
	notify := c.setDirtyLocked(false)
	c.mu.Unlock()
	notify()
	return receipt, nil
}

// State returns the current state tag.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Kind returns the session kind.
func (c *Controller) Kind() Kind { return c.kind }

// ClassID returns the class the roster belongs to.
func (c *Controller) ClassID() string { return c.classID }

// RecordID returns the stored record ID, empty until a new session is submitted.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordID
}

// Members returns the roster in roll order.
func (c *Controller) Members() []roster.Member {
	out := make([]roster.Member, len(c.members))
	copy(out, c.members)
	return out
}

// Metadata returns the current session header.
func (c *Controller) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// Entries returns a snapshot of the entries in roll order.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Snapshot()
}

// Summary re-derives the aggregate from the current entries.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summarize(c.kind, c.meta.MaxScore, c.entries.Snapshot())
}

// Dirty reports unsaved changes since hydration, the first Setup→Editing
// transition, or the last successful submit.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// CanLeave returns ErrUnsavedChanges while the session is dirty.
// The host decides whether to intercept navigation on it.
func (c *Controller) CanLeave() error {
	if c.Dirty() {
		return ErrUnsavedChanges
	}
	return nil
}

// Submitting reports whether a Confirm call is outstanding.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// LastError returns the error of the last failed Confirm, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// View is a consistent snapshot of everything a host renders.
type View struct {
	State      State    `json:"state"`
	Kind       Kind     `json:"kind"`
	ClassID    string   `json:"class_id"`
	RecordID   string   `json:"record_id,omitempty"`
	Metadata   Metadata `json:"metadata"`
	Entries    []Entry  `json:"entries"`
	Summary    Summary  `json:"summary"`
	Dirty      bool     `json:"dirty"`
	Submitting bool     `json:"submitting"`
	LastError  string   `json:"last_error,omitempty"`
}

// View returns the controller state under a single lock.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.entries.Snapshot()
	v := View{
		State:      c.state,
		Kind:       c.kind,
		ClassID:    c.classID,
		RecordID:   c.recordID,
		Metadata:   c.meta,
		Entries:    entries,
		Summary:    Summarize(c.kind, c.meta.MaxScore, entries),
		Dirty:      c.dirty,
		Submitting: c.submitting,
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}
