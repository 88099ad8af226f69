package event

import (
	"database/sql"
	"time"

	"finance_automation/internal/domain/finance"
)

// Kind identifies the collection a reminderable event belongs to.
type Kind string

const (
	KindAppointment Kind = "appointment"
	KindDateNight   Kind = "date_night"
	KindDebt        Kind = "debt"
)

// Event is the subset of an appointment, date night or debt the scheduler reads and writes.
// LocalDate/LocalTime are wall-clock values in TimeZone (or the owner's zone when empty);
// ScheduledUTC is the stored absolute instant derived from them.
type Event struct {
	ID           int64
	Kind         Kind
	OwnerID      int64
	PartnerID    sql.NullInt64
	Title        string
	LocalDate    string // 2006-01-02
	LocalTime    string // 15:04, empty for all-day events such as debts
	TimeZone     string
	ScheduledUTC time.Time
	ReminderSent bool
	Repeat       finance.Frequency // date nights only; on-off elsewhere
	IsClosed     bool              // cancelled, completed or settled
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Occurrence identifies one scheduled instance of an event for compare-and-set updates.
type Occurrence struct {
	LocalDate    string
	ScheduledUTC time.Time
}
