package notification

import "time"

// Notification is the persisted, authoritative record that a reminder happened.
// (RecipientID, Category, EventID, OccurrenceAt) is unique.
type Notification struct {
	ID           int64
	RecipientID  int64
	Category     Category
	EventID      int64
	OccurrenceAt time.Time // ScheduledUTC of the event occurrence
	Title        string
	Body         string
	Metadata     map[string]string
	CreatedAt    time.Time
}
