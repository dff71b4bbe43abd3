package roster

import (
	"context"

	domain "classbook/internal/domain/roster"
)

// Store persists roster members.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, m domain.Member) error
	Delete(ctx context.Context, id string) error
	ListByClass(ctx context.Context, classID string) ([]domain.Member, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
