// internal/infra/database/postgres_finance_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finance_automation/internal/domain/finance"

	"github.com/lib/pq"
)

var financeTables = map[finance.Kind]string{
	finance.KindIncome:  "incomes",
	finance.KindExpense: "expenses",
	finance.KindBudget:  "budgets",
}

// PostgresFinanceRepository serves incomes, expenses and budgets; the tables share one shape.
type PostgresFinanceRepository struct {
	db *sql.DB
}

func NewPostgresFinanceRepository(db *sql.DB) *PostgresFinanceRepository {
	return &PostgresFinanceRepository{db: db}
}

func financeTable(kind finance.Kind) (string, error) {
	table, ok := financeTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return table, nil
}

// oneOffSpellings are the stored frequency values that never recur.
var oneOffSpellings = []string{"", "on-off", "on_off", "one-off", "once"}

// storedFrequency normalizes a frequency column. Unknown spellings read as on-off.
func storedFrequency(raw string) finance.Frequency {
	f, err := finance.ParseFrequency(raw)
	if err != nil {
		return finance.FrequencyOnOff
	}
	return f
}

func (r *PostgresFinanceRepository) ListRecurring(ctx context.Context, kind finance.Kind) ([]*finance.Record, error) {
	table, err := financeTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, owner_id, name, category, amount, frequency, anchor_date, is_deleted, created_at
               FROM %s
               WHERE is_deleted = FALSE AND frequency <> ALL($1::text[])
               ORDER BY owner_id, anchor_date`, table)
	rows, err := r.db.QueryContext(ctx, query, pq.Array(oneOffSpellings))
	if err != nil {
		return nil, fmt.Errorf("error querying recurring %s: %w", table, err)
	}
	defer rows.Close()

	records := make([]*finance.Record, 0)
	for rows.Next() {
		rec := &finance.Record{Kind: kind}
		var frequency string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Category, &rec.Amount,
			&frequency, &rec.AnchorDate, &rec.IsDeleted, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning recurring %s row: %w", table, err)
		}
		rec.Frequency = storedFrequency(frequency)
		if !rec.Frequency.IsPeriodic() {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring %s rows: %w", table, err)
	}
	return records, nil
}

func (r *PostgresFinanceRepository) ExistsInWindow(ctx context.Context, kind finance.Kind, key finance.DuplicateKey, from, to time.Time) (bool, error) {
	table, err := financeTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS (
                 SELECT 1 FROM %s
                 WHERE owner_id = $1 AND name = $2 AND lower(replace(frequency, '_', '-')) = $3 AND category = $4
                   AND is_deleted = FALSE AND anchor_date >= $5 AND anchor_date < $6)`, table)

	var exists bool
	err = r.db.QueryRowContext(ctx, query, key.OwnerID, key.Name, string(key.Frequency), key.Category, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking existing %s occurrence: %w", table, err)
	}
	return exists, nil
}

func (r *PostgresFinanceRepository) Create(ctx context.Context, rec *finance.Record) error {
	table, err := financeTable(rec.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (owner_id, name, category, amount, frequency, anchor_date)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at`, table)
	err = r.db.QueryRowContext(ctx, query, rec.OwnerID, rec.Name, rec.Category, rec.Amount, rec.Frequency, rec.AnchorDate).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("error creating %s record: %w", table, err)
	}
	return nil
}
