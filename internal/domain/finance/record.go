package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects the collection a record lives in. The three kinds are structurally identical.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindBudget  Kind = "budget"
)

// Record is a recurring income, expense or budget entry. The scheduler never mutates a record;
// it only clones one into the next occurrence.
type Record struct {
	ID         int64
	Kind       Kind
	OwnerID    int64
	Name       string
	Category   string // empty for incomes
	Amount     decimal.Decimal
	Frequency  Frequency
	AnchorDate time.Time // date the cadence is measured from
	IsDeleted  bool
	CreatedAt  time.Time
}

// DuplicateKey is the identity used to detect an already generated occurrence.
type DuplicateKey struct {
	OwnerID   int64
	Name      string
	Frequency Frequency
	Category  string
}

func (r *Record) DuplicateKey() DuplicateKey {
	return DuplicateKey{OwnerID: r.OwnerID, Name: r.Name, Frequency: r.Frequency, Category: r.Category}
}

// NextOccurrence clones r into a new, unsaved record anchored at occurrence.
func (r *Record) NextOccurrence(occurrence time.Time) *Record {
	return &Record{
		Kind:       r.Kind,
		OwnerID:    r.OwnerID,
		Name:       r.Name,
		Category:   r.Category,
		Amount:     r.Amount,
		Frequency:  r.Frequency,
		AnchorDate: occurrence,
	}
}

// SeriesOrigins collapses records sharing a DuplicateKey into one series and returns the
// earliest record of each (lowest ID on equal anchors), in first-seen order. Generated copies
// are members of their origin's series and never drive the schedule themselves.
func SeriesOrigins(records []*Record) []*Record {
	index := make(map[DuplicateKey]int, len(records))
	origins := make([]*Record, 0, len(records))
	for _, rec := range records {
		key := rec.DuplicateKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(origins)
			origins = append(origins, rec)
			continue
		}
		cur := origins[i]
		if rec.AnchorDate.Before(cur.AnchorDate) || (rec.AnchorDate.Equal(cur.AnchorDate) && rec.ID < cur.ID) {
			origins[i] = rec
		}
	}
	return origins
}
