package projections

import (
	"context"
	"fmt"
	"time"

	"classbook/internal/domain/session"
)

// RecordHistoryStore defines the record store interface needed by the history projection.
type RecordHistoryStore interface {
	ListByClass(ctx context.Context, classID string, kind session.Kind) ([]session.Record, error)
	GetByKey(ctx context.Context, key session.Key) (session.Record, error)
}

// GetRecordHistoryQuery carries input for the record history projection.
// An empty Kind lists every kind.
type GetRecordHistoryQuery struct {
	ClassID string
	Kind    session.Kind
}

// GetRecordHistoryDeps holds dependencies for the record history projection.
type GetRecordHistoryDeps struct {
	RecordStore RecordHistoryStore
}

// RecordHistoryItem is one stored session with its re-derived summary.
type RecordHistoryItem struct {
	RecordID    string          `json:"record_id"`
	Kind        session.Kind    `json:"kind"`
	Title       string          `json:"title"`
	OccurredAt  string          `json:"occurred_at"` // YYYY-MM-DD
	SubmittedAt time.Time       `json:"submitted_at"`
	SubmittedBy string          `json:"submitted_by"`
	Summary     session.Summary `json:"summary"`
}

// RecordHistoryResult carries the output of the record history projection.
type RecordHistoryResult struct {
	ClassID string              `json:"class_id"`
	Items   []RecordHistoryItem `json:"items"`
}

// QueryGetRecordHistory lists the stored sessions of a class, newest first,
// each summarized from its entries.
// PRE: query.ClassID is non-empty; query.Kind is empty or valid
// POST: Items are ordered by occurrence date desc
func QueryGetRecordHistory(ctx context.Context, query GetRecordHistoryQuery, deps GetRecordHistoryDeps) (RecordHistoryResult, error) {
	if query.Kind != "" && !query.Kind.Valid() {
		return RecordHistoryResult{}, fmt.Errorf("%w: %q", session.ErrInvalidKind, query.Kind)
	}

	headers, err := deps.RecordStore.ListByClass(ctx, query.ClassID, query.Kind)
	if err != nil {
		return RecordHistoryResult{}, err
	}

	result := RecordHistoryResult{ClassID: query.ClassID, Items: make([]RecordHistoryItem, 0, len(headers))}
	for _, h := range headers {
		rec, err := deps.RecordStore.GetByKey(ctx, h.Key())
		if err != nil {
			return RecordHistoryResult{}, fmt.Errorf("load record %s: %w", h.ID, err)
		}
		result.Items = append(result.Items, RecordHistoryItem{
			RecordID:    rec.ID,
			Kind:        rec.Kind,
			Title:       rec.Metadata.Title,
			OccurredAt:  rec.Metadata.OccurredAt.Format("2006-01-02"),
			SubmittedAt: rec.SubmittedAt,
			SubmittedBy: rec.SubmittedBy,
			Summary:     rec.Summary(),
		})
	}
	return result, nil
}
