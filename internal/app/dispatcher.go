// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"fmt"

	"finance_automation/internal/domain/notification"
	"finance_automation/internal/domain/push"

	"github.com/sirupsen/logrus"
)

// Dispatcher delivers reminders: a best-effort push plus the persisted notification record.
type Dispatcher interface {
	// SendPush delivers msg to every token. Failures are reported but callers treat them as
	// non-fatal.
	SendPush(ctx context.Context, recipients []int64, msg push.Message, tokens []string, mode push.Mode, metadata map[string]string) error
	// CreateNotificationRecord persists the authoritative "reminder happened" record.
	CreateNotificationRecord(ctx context.Context, n *notification.Notification) error
}

// NotificationDispatcher implements Dispatcher over a push client and the notification store.
type NotificationDispatcher struct {
	pushClient push.Client
	notifRepo  notification.Repository
	logger     *logrus.Entry
}

func NewNotificationDispatcher(pc push.Client, nr notification.Repository, logger *logrus.Entry) *NotificationDispatcher {
	return &NotificationDispatcher{
		pushClient: pc,
		notifRepo:  nr,
		logger:     logger,
	}
}

func (d *NotificationDispatcher) SendPush(ctx context.Context, recipients []int64, msg push.Message, tokens []string, mode push.Mode, metadata map[string]string) error {
	log := d.logger.WithFields(logrus.Fields{"recipients": recipients, "tokens": len(tokens), "mode": mode})
	if len(tokens) == 0 {
		log.Debug("No device tokens registered; push skipped")
		return nil
	}

	var errs []error
	delivered := 0
	for i, token := range tokens {
		if err := d.pushClient.Send(ctx, token, msg, mode, metadata); err != nil {
			errs = append(errs, fmt.Errorf("token #%d: %w", i, err))
			continue
		}
		delivered++
	}
	log.WithField("delivered", delivered).Debug("Push dispatch finished")
	if len(errs) > 0 {
		return fmt.Errorf("push delivered to %d of %d devices: %w", delivered, len(tokens), errors.Join(errs...))
	}
	return nil
}

func (d *NotificationDispatcher) CreateNotificationRecord(ctx context.Context, n *notification.Notification) error {
	if err := d.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}
