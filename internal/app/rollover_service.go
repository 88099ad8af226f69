// internal/app/rollover_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"finance_automation/internal/clock"
	"finance_automation/internal/domain/event"

	"github.com/sirupsen/logrus"
)

// RolloverService moves repeating events whose occurrence has passed onto their next future
// occurrence and re-arms their reminder.
type RolloverService struct {
	events   event.Repository
	settings SettingsSource
	zones    *clock.Zones
	clock    clock.Clock
	logger   *logrus.Entry
}

func NewRolloverService(er event.Repository, settings SettingsSource, zones *clock.Zones, c clock.Clock, logger *logrus.Entry) *RolloverService {
	return &RolloverService{
		events:   er,
		settings: settings,
		zones:    zones,
		clock:    c,
		logger:   logger,
	}
}

func (s *RolloverService) Run(ctx context.Context, kind event.Kind) (RunStats, error) {
	var stats RunStats
	now := s.clock.Now()
	log := s.logger.WithField("kind", kind)

	// The stored instant may lag behind a zone change, so look a day past now and let the
	// recomputed instant decide.
	events, err := s.events.ListRepeatingBefore(ctx, kind, now.Add(prefilterSlack))
	if err != nil {
		log.WithError(err).Error("Failed to list repeating events")
		return stats, fmt.Errorf("failed to list repeating %s events: %w", kind, err)
	}

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Run cancelled before all events were rolled over")
			return stats, err
		}
		stats.Scanned++

		var advanced bool
		err := isolate(func() error {
			var err error
			advanced, err = s.advance(ctx, e, now)
			return err
		})
		switch {
		case err != nil:
			stats.Failed++
			log.WithError(err).WithField("event_id", e.ID).Error("Failed to roll over event")
		case advanced:
			stats.Created++
		default:
			stats.Skipped++
		}
	}

	log.WithFields(stats.Fields()).Info("Rollover finished")
	return stats, nil
}

func (s *RolloverService) advance(ctx context.Context, e *event.Event, now time.Time) (bool, error) {
	period := e.Repeat.Period()
	if period.IsZero() {
		return false, nil
	}
	ownerSettings, err := s.settings.Settings(ctx, e.OwnerID)
	if err != nil {
		return false, err
	}
	loc := s.zones.Resolve(e.TimeZone, ownerSettings.TimeZone)

	current, err := clock.ToUTCInstant(e.LocalDate, e.LocalTime, loc)
	if err != nil {
		return false, fmt.Errorf("event %d has malformed schedule: %w", e.ID, err)
	}
	if current.After(now) {
		return false, nil
	}

	day, err := clock.ParseLocalDate(e.LocalDate, loc)
	if err != nil {
		return false, err
	}
	next, instant, err := clock.NextOccurrenceAfter(day, period, now, func(d time.Time) (time.Time, error) {
		return clock.ToUTCInstant(clock.FormatLocalDate(d, loc), e.LocalTime, loc)
	})
	if err != nil {
		return false, fmt.Errorf("failed to find next occurrence of event %d: %w", e.ID, err)
	}

	from := event.Occurrence{LocalDate: e.LocalDate, ScheduledUTC: e.ScheduledUTC}
	to := event.Occurrence{LocalDate: clock.FormatLocalDate(next, loc), ScheduledUTC: instant}
	ok, err := s.events.AdvanceOccurrence(ctx, e.Kind, e.ID, from, to)
	if err != nil {
		return false, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"kind":     e.Kind,
		"event_id": e.ID,
		"from":     from.LocalDate,
		"to":       to.LocalDate,
	})
	if !ok {
		log.Info("Event moved concurrently. Skipping rollover.")
		return false, nil
	}
	log.Info("Rolled event over to next occurrence")
	return true, nil
}
