package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"finance_automation/internal/domain/event"
	"finance_automation/internal/domain/finance"
	"finance_automation/internal/domain/notification"
	"finance_automation/internal/domain/push"
	"finance_automation/internal/domain/user"
	idb "finance_automation/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var errStore = errors.New("store unavailable")

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// --- finance ---

type fakeFinanceRepo struct {
	mu         sync.Mutex
	records    []*finance.Record
	nextID     int64
	listErr    error
	failOwner  map[int64]error // Create fails for these owners
	duplicates bool            // Create reports a concurrent duplicate
}

func newFakeFinanceRepo(records ...*finance.Record) *fakeFinanceRepo {
	r := &fakeFinanceRepo{nextID: 1000, failOwner: map[int64]error{}}
	r.records = append(r.records, records...)
	return r
}

func (r *fakeFinanceRepo) ListRecurring(_ context.Context, kind finance.Kind) ([]*finance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*finance.Record
	for _, rec := range r.records {
		if rec.Kind == kind && !rec.IsDeleted && rec.Frequency.IsPeriodic() {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFinanceRepo) ExistsInWindow(_ context.Context, kind finance.Kind, key finance.DuplicateKey, from, to time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Kind != kind || rec.IsDeleted || rec.DuplicateKey() != key {
			continue
		}
		if !rec.AnchorDate.Before(from) && rec.AnchorDate.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFinanceRepo) Create(_ context.Context, rec *finance.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failOwner[rec.OwnerID]; ok {
		return err
	}
	if r.duplicates {
		return idb.ErrDuplicateRecord
	}
	r.nextID++
	rec.ID = r.nextID
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeFinanceRepo) created() []*finance.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*finance.Record
	for _, rec := range r.records {
		if rec.ID > 1000 {
			out = append(out, rec)
		}
	}
	return out
}

// --- events ---

type fakeEventRepo struct {
	mu       sync.Mutex
	events   map[int64]*event.Event
	listErr  error
	conflict map[int64]bool // AdvanceOccurrence loses the race for these ids
}

func newFakeEventRepo(events ...*event.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: map[int64]*event.Event{}, conflict: map[int64]bool{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepo) ListPendingReminders(_ context.Context, kind event.Kind, from, to time.Time) ([]*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*event.Event
	for _, e := range r.events {
		if e.Kind != kind || e.ReminderSent || e.IsClosed || e.IsDeleted {
			continue
		}
		if e.ScheduledUTC.Before(from) || e.ScheduledUTC.After(to) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeEventRepo) MarkReminderSent(_ context.Context, kind event.Kind, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Kind != kind || e.ReminderSent {
		return false, nil
	}
	e.ReminderSent = true
	return true, nil
}

func (r *fakeEventRepo) ListRepeatingBefore(_ context.Context, kind event.Kind, t time.Time) ([]*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*event.Event
	for _, e := range r.events {
		if e.Kind != kind || e.IsClosed || e.IsDeleted || !e.Repeat.IsPeriodic() {
			continue
		}
		if !e.ScheduledUTC.Before(t) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeEventRepo) AdvanceOccurrence(_ context.Context, kind event.Kind, id int64, from, to event.Occurrence) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Kind != kind || r.conflict[id] || e.LocalDate != from.LocalDate {
		return false, nil
	}
	e.LocalDate = to.LocalDate
	e.ScheduledUTC = to.ScheduledUTC
	e.ReminderSent = false
	return true, nil
}

func (r *fakeEventRepo) get(id int64) event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.events[id]
}

// --- notifications ---

type notificationKey struct {
	recipient int64
	category  notification.Category
	eventID   int64
	at        time.Time
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	settings      map[int64]*notification.Settings
	settingsErr   error
	notifications map[notificationKey]*notification.Notification
	failCreate    map[int64]error // Create fails for these recipients
	nextID        int64
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		settings:      map[int64]*notification.Settings{},
		notifications: map[notificationKey]*notification.Notification{},
		failCreate:    map[int64]error{},
	}
}

func (r *fakeNotificationRepo) GetSettings(_ context.Context, userID int64) (*notification.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settingsErr != nil {
		return nil, r.settingsErr
	}
	s, ok := r.settings[userID]
	if !ok {
		return nil, idb.ErrSettingsNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeNotificationRepo) ExistsForOccurrence(_ context.Context, recipientID int64, category notification.Category, eventID int64, occurrenceAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.notifications[notificationKey{recipientID, category, eventID, occurrenceAt.UTC()}]
	return ok, nil
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failCreate[n.RecipientID]; ok {
		return err
	}
	key := notificationKey{n.RecipientID, n.Category, n.EventID, n.OccurrenceAt.UTC()}
	if _, ok := r.notifications[key]; ok {
		return idb.ErrDuplicateNotification
	}
	r.nextID++
	n.ID = r.nextID
	cp := *n
	r.notifications[key] = &cp
	return nil
}

func (r *fakeNotificationRepo) forRecipient(id int64) []*notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for k, n := range r.notifications {
		if k.recipient == id {
			out = append(out, n)
		}
	}
	return out
}

// --- users ---

type fakeUserRepo struct {
	users map[int64]*user.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	return u, nil
}

// --- push ---

type sentPush struct {
	token string
	msg   push.Message
	mode  push.Mode
}

type fakePushClient struct {
	mu      sync.Mutex
	sent    []sentPush
	failFor map[string]error
}

func newFakePushClient() *fakePushClient {
	return &fakePushClient{failFor: map[string]error{}}
}

func (c *fakePushClient) Send(_ context.Context, token string, msg push.Message, mode push.Mode, _ map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failFor[token]; ok {
		return err
	}
	c.sent = append(c.sent, sentPush{token: token, msg: msg, mode: mode})
	return nil
}

func (c *fakePushClient) tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, s := range c.sent {
		out = append(out, s.token)
	}
	return out
}
