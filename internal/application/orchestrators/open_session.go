package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"classbook/internal/domain/roster"
	"classbook/internal/domain/session"
)

// RosterSource lists the members of a class in roll order.
type RosterSource interface {
	ListByClass(ctx context.Context, classID string) ([]roster.Member, error)
}

// RecordLookup loads a stored session by composite key.
type RecordLookup interface {
	GetByKey(ctx context.Context, key session.Key) (session.Record, error)
}

// OpenSessionInput carries input for the open-session orchestrator.
// RecordID is empty for a new session.
type OpenSessionInput struct {
	Kind          session.Kind
	ClassID       string
	RecordID      string
	ActorID       string
	OnDirtyChange func(dirty bool)
}

// OpenSessionDeps holds dependencies for OpenSession.
type OpenSessionDeps struct {
	Roster  RosterSource
	Records RecordLookup
	Sink    session.Sink
	Now     func() time.Time
}

// ExecuteOpenSession builds a controller for a class roster, hydrating it
// from a stored record when a record ID is given.
// PRE: input.Kind is valid; input.ClassID is non-empty
// POST: New sessions start in Setup; hydrated sessions start in Editing, clean
// INVARIANT: No controller is returned when the record cannot be found
func ExecuteOpenSession(ctx context.Context, input OpenSessionInput, deps OpenSessionDeps) (*session.Controller, error) {
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", session.ErrInvalidKind, input.Kind)
	}

	members, err := deps.Roster.ListByClass(ctx, input.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", input.ClassID, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("class %s: %w", input.ClassID, session.ErrEmptyRoster)
	}

	cfg := session.Config{
		Kind:          input.Kind,
		ClassID:       input.ClassID,
		Members:       members,
		Sink:          deps.Sink,
		Actor:         input.ActorID,
		Now:           deps.Now,
		OnDirtyChange: input.OnDirtyChange,
	}

	if input.RecordID == "" {
		return session.New(cfg)
	}

	rec, err := deps.Records.GetByKey(ctx, session.Key{ClassID: input.ClassID, RecordID: input.RecordID})
	if err != nil {
		return nil, err
	}

	onRoster := make(map[string]bool, len(members))
	for _, m := range members {
		onRoster[m.ID] = true
	}
	dropped := 0
	for _, e := range rec.Entries {
		if !onRoster[e.MemberID] {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("session_hydrate_dropped", "record_id", rec.ID, "class_id", input.ClassID, "dropped", dropped)
	}

	return session.Hydrate(cfg, rec)
}
