package record

import (
	"context"

	"classbook/internal/domain/session"
)

// Store persists submitted session records.
type Store interface {
	// GetByKey loads a record with its entries in roster order.
	// PRE: key fields are non-empty
	// POST: Returns session.ErrRecordNotFound when no record matches
	GetByKey(ctx context.Context, key session.Key) (session.Record, error)

	// Save writes a record and replaces its entries atomically.
	// PRE: rec has been validated
	// POST: The record and exactly its entries are persisted, or nothing is
	Save(ctx context.Context, rec session.Record) error

	// ListByClass returns record headers (no entries) newest first.
	// PRE: classID is non-empty; kind is empty or valid
	// POST: An empty kind matches every kind
	ListByClass(ctx context.Context, classID string, kind session.Kind) ([]session.Record, error)

	// CountEntries returns the number of entries stored for a record.
	CountEntries(ctx context.Context, recordID string) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
