// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finance_automation/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// --- Settings Methods ---

func (r *PostgresNotificationRepository) GetSettings(ctx context.Context, userID int64) (*notification.Settings, error) {
	query := `SELECT user_id, appointment, date_night, debt, device_tokens, time_zone
               FROM notification_settings WHERE user_id = $1`
	s := notification.Settings{}
	var tokens []string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.Appointment, &s.DateNight, &s.Debt, pq.Array(&tokens), &s.TimeZone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("error getting notification settings for user %d: %w", userID, err)
	}
	s.DeviceTokens = tokens
	return &s, nil
}

// --- Notification Methods ---

func (r *PostgresNotificationRepository) ExistsForOccurrence(ctx context.Context, recipientID int64, category notification.Category, eventID int64, occurrenceAt time.Time) (bool, error) {
	query := `SELECT EXISTS (
                 SELECT 1 FROM notifications
                 WHERE recipient_id = $1 AND category = $2 AND event_id = $3 AND occurrence_at = $4)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, recipientID, category, eventID, occurrenceAt).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking existing notification: %w", err)
	}
	return exists, nil
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("error encoding notification metadata: %w", err)
	}

	query := `INSERT INTO notifications (recipient_id, category, event_id, occurrence_at, title, body, metadata)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, n.RecipientID, n.Category, n.EventID, n.OccurrenceAt, n.Title, n.Body, raw).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNotification
		}
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}
