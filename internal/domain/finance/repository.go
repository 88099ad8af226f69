package finance

import (
	"context"
	"time"
)

// Repository defines the operations the recurrence engine needs over one record kind.
type Repository interface {
	// ListRecurring returns non-deleted records of kind whose frequency is periodic.
	ListRecurring(ctx context.Context, kind Kind) ([]*Record, error)
	// ExistsInWindow reports whether a non-deleted record with key is anchored in [from, to).
	ExistsInWindow(ctx context.Context, kind Kind, key DuplicateKey, from, to time.Time) (bool, error)
	// Create inserts rec. A concurrent duplicate surfaces as database.ErrDuplicateRecord.
	Create(ctx context.Context, rec *Record) error
}
