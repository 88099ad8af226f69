package database

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"finance_automation/internal/domain/event"
	"finance_automation/internal/domain/finance"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}), "foreign key violation is not a duplicate")
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestTables_UnknownKind(t *testing.T) {
	table, err := financeTable(finance.KindBudget)
	require.NoError(t, err)
	assert.Equal(t, "budgets", table)

	_, err = financeTable(finance.Kind("savings"))
	assert.ErrorIs(t, err, ErrUnknownKind)

	table, err = eventTable(event.KindDateNight)
	require.NoError(t, err)
	assert.Equal(t, "date_nights", table)

	_, err = eventTable(event.Kind("birthday"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_init.sql", "00002_recurring_records.sql", "00003_events.sql"}, names)
}

func TestStoredFrequency(t *testing.T) {
	assert.Equal(t, finance.FrequencyMonthly, storedFrequency("Monthly"))
	assert.Equal(t, finance.FrequencyYearly, storedFrequency("annually"))
	assert.Equal(t, finance.FrequencyOnOff, storedFrequency("on_off"))
	assert.Equal(t, finance.FrequencyOnOff, storedFrequency("fortnightly"), "unknown spellings never recur")

	for _, s := range oneOffSpellings {
		assert.False(t, storedFrequency(s).IsPeriodic(), s)
	}
}
