// internal/app/recurrence_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance_automation/internal/clock"
	"finance_automation/internal/domain/finance"
	idb "finance_automation/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// RecurrenceService regenerates due recurring incomes, expenses and budgets. Records sharing
// (owner, name, frequency, category) form one series scheduled from its earliest anchor, and a
// series holds at most one live record per occurrence period.
type RecurrenceService struct {
	repo   finance.Repository
	clock  clock.Clock
	logger *logrus.Entry
}

func NewRecurrenceService(repo finance.Repository, c clock.Clock, logger *logrus.Entry) *RecurrenceService {
	return &RecurrenceService{
		repo:   repo,
		clock:  c,
		logger: logger,
	}
}

// Run processes every recurring record of kind once. Per-record failures are logged and
// counted; only a failure to list candidates fails the run.
func (s *RecurrenceService) Run(ctx context.Context, kind finance.Kind) (RunStats, error) {
	var stats RunStats
	today := s.clock.Now()
	log := s.logger.WithFields(logrus.Fields{"kind": kind, "today": clock.StartOfDayUTC(today).Format("2006-01-02")})

	records, err := s.repo.ListRecurring(ctx, kind)
	if err != nil {
		log.WithError(err).Error("Failed to list recurring records")
		return stats, fmt.Errorf("failed to list recurring %s records: %w", kind, err)
	}
	series := finance.SeriesOrigins(records)
	log.WithFields(logrus.Fields{"candidates": len(records), "series": len(series)}).Info("Processing recurring records")

	for _, rec := range series {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Run cancelled before all records were processed")
			return stats, err
		}
		stats.Scanned++

		var created bool
		err := isolate(func() error {
			var err error
			created, err = s.regenerate(ctx, rec, today)
			return err
		})
		switch {
		case err != nil:
			stats.Failed++
			log.WithError(err).WithField("record_id", rec.ID).Error("Failed to regenerate recurring record")
		case created:
			stats.Created++
		default:
			stats.Skipped++
		}
	}

	log.WithFields(stats.Fields()).Info("Recurring record generation finished")
	return stats, nil
}

// regenerate creates the occurrence of the series started by origin that falls on today,
// unless the series already has a record anywhere in that occurrence's period.
func (s *RecurrenceService) regenerate(ctx context.Context, origin *finance.Record, today time.Time) (bool, error) {
	occurrence, periodEnd, due := clock.DuePeriod(origin.AnchorDate, origin.Frequency.Period(), today)
	if !due {
		return false, nil
	}
	log := s.logger.WithFields(logrus.Fields{
		"kind":       origin.Kind,
		"record_id":  origin.ID,
		"owner_id":   origin.OwnerID,
		"occurrence": occurrence.Format("2006-01-02"),
	})

	exists, err := s.repo.ExistsInWindow(ctx, origin.Kind, origin.DuplicateKey(), occurrence, periodEnd)
	if err != nil {
		return false, fmt.Errorf("failed to check existing occurrence for record %d: %w", origin.ID, err)
	}
	if exists {
		log.Debug("Occurrence already exists. Skipping creation.")
		return false, nil
	}

	next := origin.NextOccurrence(occurrence)
	if err := s.repo.Create(ctx, next); err != nil {
		if errors.Is(err, idb.ErrDuplicateRecord) {
			log.Info("Occurrence was created concurrently. Skipping.")
			return false, nil
		}
		return false, fmt.Errorf("failed to create occurrence for record %d: %w", origin.ID, err)
	}
	log.WithField("new_record_id", next.ID).Info("Created next occurrence")
	return true, nil
}
