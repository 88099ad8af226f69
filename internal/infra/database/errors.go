package database

import "fmt"

// Custom errors shared by the repositories
var ErrDuplicateRecord = fmt.Errorf("duplicate recurring record occurrence (owner_id, name, frequency, category, anchor_date)")
var ErrSettingsNotFound = fmt.Errorf("notification settings not found")
var ErrDuplicateNotification = fmt.Errorf("duplicate notification (recipient_id, category, event_id, occurrence_at)")
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrUnknownKind = fmt.Errorf("unknown collection kind")
