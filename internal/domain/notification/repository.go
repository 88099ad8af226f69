// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

// Repository defines operations for notification settings and notification records.
type Repository interface {
	// GetSettings returns database.ErrSettingsNotFound when the user has no row.
	GetSettings(ctx context.Context, userID int64) (*Settings, error)

	// ExistsForOccurrence checks for a notification already recorded for this occurrence.
	ExistsForOccurrence(ctx context.Context, recipientID int64, category Category, eventID int64, occurrenceAt time.Time) (bool, error)
	// Create persists n. A duplicate occurrence surfaces as database.ErrDuplicateNotification.
	Create(ctx context.Context, n *Notification) error
}
