package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/metrics"
	"github.com/okorolenko/studyremind/internal/models"
	"github.com/okorolenko/studyremind/internal/repository"
)

// In-memory repository doubles. They honor the same contracts as the
// postgres implementations, in particular the conditional-insert semantics
// of the dispatch gate.

type memScheduleRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.ScheduleItem
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{items: make(map[int64]*models.ScheduleItem)}
}

func (r *memScheduleRepo) Create(_ context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	copied := *item
	r.items[item.ID] = &copied
	return item, nil
}

func (r *memScheduleRepo) GetByID(_ context.Context, id int64) (*models.ScheduleItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *memScheduleRepo) GetAll(_ context.Context) ([]*models.ScheduleItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ScheduleItem
	for _, item := range r.items {
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memScheduleRepo) Update(_ context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.ID] = &copied
	return item, nil
}

func (r *memScheduleRepo) SetCompleted(_ context.Context, id int64, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("schedule item with ID %d not found", id)
	}
	item.Completed = completed
	return nil
}

func (r *memScheduleRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memReminderRepo struct {
	mu        sync.Mutex
	nextID    int64
	reminders map[int64]*models.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{reminders: make(map[int64]*models.Reminder)}
}

func (r *memReminderRepo) Create(_ context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reminder.ID = r.nextID
	copied := *reminder
	r.reminders[reminder.ID] = &copied
	return reminder, nil
}

func (r *memReminderRepo) GetByID(_ context.Context, id int64) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil, nil
	}
	copied := *reminder
	return &copied, nil
}

func (r *memReminderRepo) GetAll(_ context.Context) ([]*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Reminder
	for _, reminder := range r.reminders {
		copied := *reminder
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memReminderRepo) GetEnabled(_ context.Context) ([]*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Reminder
	for _, reminder := range r.reminders {
		if reminder.Enabled {
			copied := *reminder
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memReminderRepo) SetEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return fmt.Errorf("reminder with ID %d not found", id)
	}
	reminder.Enabled = enabled
	return nil
}

func (r *memReminderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reminders, id)
	return nil
}

type memLogRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*models.ReminderLog
	sent    map[string]bool
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{sent: make(map[string]bool)}
}

func sentKey(reminderID int64, occurrence time.Time) string {
	return fmt.Sprintf("%d@%d", reminderID, occurrence.UTC().UnixNano())
}

func (r *memLogRepo) Append(_ context.Context, entry *models.ReminderLog) (*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(entry), nil
}

func (r *memLogRepo) appendLocked(entry *models.ReminderLog) *models.ReminderLog {
	r.nextID++
	entry.ID = r.nextID
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	copied := *entry
	r.entries = append(r.entries, &copied)
	return entry
}

type memClaim struct {
	repo       *memLogRepo
	reminderID int64
	occurrence time.Time
}

func (c *memClaim) Commit() error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.repo.sent[sentKey(c.reminderID, c.occurrence)] = true
	occ := c.occurrence
	c.repo.appendLocked(&models.ReminderLog{
		ReminderID:   c.reminderID,
		OccurrenceAt: &occ,
		Status:       models.LogStatusSent,
	})
	return nil
}

func (c *memClaim) Rollback() error { return nil }

func (r *memLogRepo) AcquireSent(_ context.Context, reminderID int64, occurrence time.Time) (repository.SentClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent[sentKey(reminderID, occurrence)] {
		return nil, repository.ErrAlreadySent
	}
	return &memClaim{repo: r, reminderID: reminderID, occurrence: occurrence}, nil
}

func (r *memLogRepo) GetByReminderID(_ context.Context, reminderID int64, limit int) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, entry := range r.entries {
		if entry.ReminderID == reminderID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memLogRepo) GetDueSnoozes(_ context.Context, from, to time.Time) ([]*models.SnoozeDue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SnoozeDue
	for _, entry := range r.entries {
		if entry.Status != models.LogStatusSnoozed || entry.SnoozedUntil == nil {
			continue
		}
		if entry.SnoozedUntil.Before(from) || entry.SnoozedUntil.After(to) {
			continue
		}
		completedSince := false
		for _, later := range r.entries {
			if later.ReminderID == entry.ReminderID && later.Status == models.LogStatusCompleted && !later.SentAt.Before(entry.SentAt) {
				completedSince = true
				break
			}
		}
		if !completedSince {
			out = append(out, &models.SnoozeDue{ReminderID: entry.ReminderID, SnoozedUntil: *entry.SnoozedUntil})
		}
	}
	return out, nil
}

// countByStatus reports log rows for a reminder with the given status,
// optionally filtered to one occurrence instant.
func (r *memLogRepo) countByStatus(reminderID int64, status models.LogStatus, occurrence *time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.ReminderID != reminderID || entry.Status != status {
			continue
		}
		if occurrence != nil && (entry.OccurrenceAt == nil || !entry.OccurrenceAt.Equal(*occurrence)) {
			continue
		}
		count++
	}
	return count
}

type sentMessage struct {
	to      string
	subject string
	body    string
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (t *fakeTransport) Send(_ context.Context, to, subject, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func (t *fakeTransport) setError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

type testEnv struct {
	svc       *Service
	schedules *memScheduleRepo
	reminders *memReminderRepo
	logs      *memLogRepo
	transport *fakeTransport
}

func newTestEnv(now time.Time) *testEnv {
	l := logrus.New()
	l.SetOutput(io.Discard)

	env := &testEnv{
		schedules: newMemScheduleRepo(),
		reminders: newMemReminderRepo(),
		logs:      newMemLogRepo(),
		transport: &fakeTransport{},
	}

	env.svc = New(nil, l, metrics.New(prometheus.NewRegistry()),
		env.schedules, env.reminders, env.logs, env.transport,
		Config{
			BaseURL:       "http://study.example",
			ScanInterval:  60 * time.Second,
			ScanTolerance: 90 * time.Second,
			ScanLookahead: 5 * time.Minute,
			SnoozeMinutes: 30,
			RetryBackoff:  time.Millisecond,
			SendTimeout:   time.Second,
		})
	env.svc.now = func() time.Time { return now }

	return env
}

func (e *testEnv) setNow(now time.Time) {
	e.svc.now = func() time.Time { return now }
}
