package event

import (
	"context"
	"time"
)

// Repository defines the operations the reminder and rollover jobs need.
type Repository interface {
	// ListPendingReminders returns open, non-deleted events of kind whose reminder has not been
	// sent and whose stored ScheduledUTC lies in [from, to].
	ListPendingReminders(ctx context.Context, kind Kind, from, to time.Time) ([]*Event, error)
	// MarkReminderSent flips reminder_sent false->true. It returns false when the flag was
	// already set, which callers treat as "someone else sent it".
	MarkReminderSent(ctx context.Context, kind Kind, id int64) (bool, error)
	// ListRepeatingBefore returns open, non-deleted events of kind with a periodic repeat
	// whose stored ScheduledUTC is before t.
	ListRepeatingBefore(ctx context.Context, kind Kind, t time.Time) ([]*Event, error)
	// AdvanceOccurrence moves the event from one occurrence to the next and resets
	// reminder_sent. It returns false when the event no longer sits on from.
	AdvanceOccurrence(ctx context.Context, kind Kind, id int64, from, to Occurrence) (bool, error)
}
