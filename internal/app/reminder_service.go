// internal/app/reminder_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"finance_automation/internal/clock"
	"finance_automation/internal/domain/event"
	"finance_automation/internal/domain/notification"
	"finance_automation/internal/domain/push"
	"finance_automation/internal/domain/user"
	idb "finance_automation/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// prefilterSlack widens the store query around the reminder window. The stored ScheduledUTC
// is only a hint; the exact decision is made on the instant recomputed from local fields.
const prefilterSlack = 24 * time.Hour

// ReminderRule binds one event collection to its lead time and tolerance window.
type ReminderRule struct {
	Kind            event.Kind
	Category        notification.Category
	Lead            time.Duration
	Tolerance       time.Duration
	FanOutToPartner bool
}

// ReminderService scans time-sensitive events and fires at most one reminder per occurrence
// and recipient.
type ReminderService struct {
	events     event.Repository
	users      user.Repository
	notifRepo  notification.Repository
	settings   SettingsSource
	dispatcher Dispatcher
	zones      *clock.Zones
	clock      clock.Clock
	logger     *logrus.Entry
}

func NewReminderService(
	er event.Repository,
	ur user.Repository,
	nr notification.Repository,
	settings SettingsSource,
	dispatcher Dispatcher,
	zones *clock.Zones,
	c clock.Clock,
	logger *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		events:     er,
		users:      ur,
		notifRepo:  nr,
		settings:   settings,
		dispatcher: dispatcher,
		zones:      zones,
		clock:      c,
		logger:     logger,
	}
}

type reminderOutcome int

const (
	outcomeSkipped reminderOutcome = iota
	outcomeSent
)

// Run evaluates every pending event of rule.Kind against the reminder window.
func (s *ReminderService) Run(ctx context.Context, rule ReminderRule) (RunStats, error) {
	var stats RunStats
	now := s.clock.Now()
	log := s.logger.WithFields(logrus.Fields{"kind": rule.Kind, "lead": rule.Lead.String(), "tolerance": rule.Tolerance.String()})

	from := now.Add(rule.Lead - rule.Tolerance - prefilterSlack)
	to := now.Add(rule.Lead + rule.Tolerance + prefilterSlack)
	events, err := s.events.ListPendingReminders(ctx, rule.Kind, from, to)
	if err != nil {
		log.WithError(err).Error("Failed to list pending reminders")
		return stats, fmt.Errorf("failed to list pending %s reminders: %w", rule.Kind, err)
	}
	log.WithField("candidates", len(events)).Debug("Scanning events for reminders")

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Run cancelled before all events were scanned")
			return stats, err
		}
		stats.Scanned++

		var outcome reminderOutcome
		err := isolate(func() error {
			var err error
			outcome, err = s.processEvent(ctx, rule, e, now, &stats)
			return err
		})
		switch {
		case err != nil:
			stats.Failed++
			log.WithError(err).WithField("event_id", e.ID).Error("Failed to process reminder")
		case outcome == outcomeSent:
			stats.Sent++
		default:
			stats.Skipped++
		}
	}

	if stats.Sent > 0 || stats.Failed > 0 {
		log.WithFields(stats.Fields()).Info("Reminder scan finished")
	} else {
		log.WithFields(stats.Fields()).Debug("Reminder scan finished")
	}
	return stats, nil
}

func (s *ReminderService) processEvent(ctx context.Context, rule ReminderRule, e *event.Event, now time.Time, stats *RunStats) (reminderOutcome, error) {
	ownerSettings, err := s.settings.Settings(ctx, e.OwnerID)
	if err != nil {
		return outcomeSkipped, err
	}

	loc := s.zones.Resolve(e.TimeZone, ownerSettings.TimeZone)
	scheduled, err := clock.ToUTCInstant(e.LocalDate, e.LocalTime, loc)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("event %d has malformed schedule: %w", e.ID, err)
	}
	if !clock.WithinWindow(scheduled.Sub(now), rule.Lead, rule.Tolerance) {
		return outcomeSkipped, nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"kind":      rule.Kind,
		"event_id":  e.ID,
		"owner_id":  e.OwnerID,
		"scheduled": scheduled.Format(time.RFC3339),
	})
	if !ownerSettings.Enabled(rule.Category) {
		log.Debug("Category disabled by owner. Reminder not sent.")
		return outcomeSkipped, nil
	}

	msg := reminderMessage(rule.Kind, e, scheduled, loc)
	sent, err := s.remind(ctx, rule, e, e.OwnerID, ownerSettings, scheduled, msg)
	if err != nil {
		return outcomeSkipped, err
	}

	marked, err := s.events.MarkReminderSent(ctx, rule.Kind, e.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("reminder recorded but flag not set for event %d: %w", e.ID, err)
	}
	if !marked {
		log.Debug("Reminder flag was already set")
	}

	if rule.FanOutToPartner {
		// Fan-out runs after the owner's state is final; its failures stay on the partner side.
		partnerSent, err := s.fanOut(ctx, rule, e, scheduled, msg)
		if err != nil {
			stats.Failed++
			log.WithError(err).Warn("Partner fan-out failed; owner reminder unaffected")
		} else if partnerSent {
			stats.FanOut++
		}
	}

	if !sent {
		log.Info("Reminder already recorded for this occurrence. Skipping.")
		return outcomeSkipped, nil
	}
	log.Info("Reminder sent")
	return outcomeSent, nil
}

// remind records and pushes one reminder to recipientID unless this occurrence already has one.
// The notification record is authoritative: once it exists the reminder counts as delivered
// even if the push fails.
func (s *ReminderService) remind(ctx context.Context, rule ReminderRule, e *event.Event, recipientID int64, settings *notification.Settings, scheduled time.Time, msg push.Message) (bool, error) {
	exists, err := s.notifRepo.ExistsForOccurrence(ctx, recipientID, rule.Category, e.ID, scheduled)
	if err != nil {
		return false, fmt.Errorf("failed to check existing notification: %w", err)
	}
	if exists {
		return false, nil
	}

	metadata := map[string]string{
		"kind":          string(rule.Kind),
		"event_id":      strconv.FormatInt(e.ID, 10),
		"scheduled_utc": scheduled.Format(time.RFC3339),
	}
	n := &notification.Notification{
		RecipientID:  recipientID,
		Category:     rule.Category,
		EventID:      e.ID,
		OccurrenceAt: scheduled,
		Title:        msg.Title,
		Body:         msg.Body,
		Metadata:     metadata,
	}
	if err := s.dispatcher.CreateNotificationRecord(ctx, n); err != nil {
		if errors.Is(err, idb.ErrDuplicateNotification) {
			return false, nil
		}
		return false, err
	}

	if err := s.dispatcher.SendPush(ctx, []int64{recipientID}, msg, settings.DeviceTokens, push.ModeAlert, metadata); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":     e.ID,
			"recipient_id": recipientID,
		}).Warn("Push delivery failed; in-app notification kept")
	}
	return true, nil
}

// fanOut duplicates the reminder to the owner's linked partner when the partner wants it.
func (s *ReminderService) fanOut(ctx context.Context, rule ReminderRule, e *event.Event, scheduled time.Time, msg push.Message) (bool, error) {
	partnerID, err := s.partnerOf(ctx, e)
	if err != nil {
		return false, err
	}
	if partnerID == 0 || partnerID == e.OwnerID {
		return false, nil
	}

	partnerSettings, err := s.settings.Settings(ctx, partnerID)
	if err != nil {
		return false, err
	}
	if !partnerSettings.Enabled(rule.Category) {
		return false, nil
	}
	return s.remind(ctx, rule, e, partnerID, partnerSettings, scheduled, msg)
}

func (s *ReminderService) partnerOf(ctx context.Context, e *event.Event) (int64, error) {
	if e.PartnerID.Valid {
		return e.PartnerID.Int64, nil
	}
	owner, err := s.users.GetByID(ctx, e.OwnerID)
	if err != nil {
		if errors.Is(err, idb.ErrUserNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load owner %d: %w", e.OwnerID, err)
	}
	if !owner.PartnerID.Valid {
		return 0, nil
	}
	return owner.PartnerID.Int64, nil
}

func reminderMessage(kind event.Kind, e *event.Event, scheduled time.Time, loc *time.Location) push.Message {
	local := scheduled.In(loc)
	switch kind {
	case event.KindAppointment:
		return push.Message{
			Title: "Upcoming appointment",
			Body:  fmt.Sprintf("%s starts at %s.", e.Title, local.Format("15:04")),
		}
	case event.KindDateNight:
		return push.Message{
			Title: "Date night soon",
			Body:  fmt.Sprintf("%s is at %s.", e.Title, local.Format("15:04")),
		}
	case event.KindDebt:
		return push.Message{
			Title: "Debt due soon",
			Body:  fmt.Sprintf("%s is due on %s.", e.Title, local.Format("Jan 2, 2006")),
		}
	default:
		return push.Message{Title: "Reminder", Body: e.Title}
	}
}
