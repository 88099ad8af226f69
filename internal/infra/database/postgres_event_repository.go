// internal/infra/database/postgres_event_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finance_automation/internal/domain/event"

	"github.com/lib/pq"
)

var eventTables = map[event.Kind]string{
	event.KindAppointment: "appointments",
	event.KindDateNight:   "date_nights",
	event.KindDebt:        "debts",
}

const eventColumns = `id, owner_id, partner_id, title, local_date, local_time, time_zone, scheduled_utc,
               reminder_sent, repeat, is_closed, is_deleted, created_at, updated_at`

// PostgresEventRepository serves appointments, date nights and debts.
type PostgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func eventTable(kind event.Kind) (string, error) {
	table, ok := eventTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return table, nil
}

// Helper to scan multiple rows
func scanEvents(kind event.Kind, rows *sql.Rows) ([]*event.Event, error) {
	events := make([]*event.Event, 0)
	for rows.Next() {
		e := &event.Event{Kind: kind}
		var repeat string
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.PartnerID, &e.Title, &e.LocalDate, &e.LocalTime, &e.TimeZone, &e.ScheduledUTC,
			&e.ReminderSent, &repeat, &e.IsClosed, &e.IsDeleted, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", kind, err)
		}
		e.Repeat = storedFrequency(repeat)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", kind, err)
	}
	return events, nil
}

func (r *PostgresEventRepository) ListPendingReminders(ctx context.Context, kind event.Kind, from, to time.Time) ([]*event.Event, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
               WHERE reminder_sent = FALSE AND is_closed = FALSE AND is_deleted = FALSE
                 AND scheduled_utc BETWEEN $1 AND $2
               ORDER BY scheduled_utc ASC`, eventColumns, table)
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying pending %s reminders: %w", table, err)
	}
	defer rows.Close()
	return scanEvents(kind, rows)
}

func (r *PostgresEventRepository) MarkReminderSent(ctx context.Context, kind event.Kind, id int64) (bool, error) {
	table, err := eventTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE %s SET reminder_sent = TRUE, updated_at = NOW()
               WHERE id = $1 AND reminder_sent = FALSE`, table)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error marking %s %d reminder sent: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows for %s %d: %w", table, id, err)
	}
	return n == 1, nil
}

func (r *PostgresEventRepository) ListRepeatingBefore(ctx context.Context, kind event.Kind, t time.Time) ([]*event.Event, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
               WHERE is_closed = FALSE AND is_deleted = FALSE
                 AND repeat <> ALL($1::text[]) AND scheduled_utc < $2
               ORDER BY scheduled_utc ASC`, eventColumns, table)
	rows, err := r.db.QueryContext(ctx, query, pq.Array(oneOffSpellings), t)
	if err != nil {
		return nil, fmt.Errorf("error querying repeating %s: %w", table, err)
	}
	defer rows.Close()
	events, err := scanEvents(kind, rows)
	if err != nil {
		return nil, err
	}
	repeating := events[:0]
	for _, e := range events {
		if e.Repeat.IsPeriodic() {
			repeating = append(repeating, e)
		}
	}
	return repeating, nil
}

func (r *PostgresEventRepository) AdvanceOccurrence(ctx context.Context, kind event.Kind, id int64, from, to event.Occurrence) (bool, error) {
	table, err := eventTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE %s
               SET local_date = $1, scheduled_utc = $2, reminder_sent = FALSE, updated_at = NOW()
               WHERE id = $3 AND local_date = $4`, table)
	res, err := r.db.ExecContext(ctx, query, to.LocalDate, to.ScheduledUTC, id, from.LocalDate)
	if err != nil {
		return false, fmt.Errorf("error advancing %s %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows for %s %d: %w", table, id, err)
	}
	return n == 1, nil
}
