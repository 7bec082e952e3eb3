package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okorolenko/studyremind/internal/models"
)

// ErrAlreadySent is returned by LogRepository.AcquireSent when a sent record
// already exists for the (reminder, occurrence) pair.
var ErrAlreadySent = errors.New("dispatch already recorded for this occurrence")

// ScheduleItemRepository defines the interface for schedule item operations
type ScheduleItemRepository interface {
	Create(ctx context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduleItem, error)
	GetAll(ctx context.Context) ([]*models.ScheduleItem, error)
	Update(ctx context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error)
	SetCompleted(ctx context.Context, id int64, completed bool) error
	Delete(ctx context.Context, id int64) error
}

// ReminderRepository defines the interface for reminder operations. The
// scanner only reads reminders; all mutation comes from user edits.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	GetAll(ctx context.Context) ([]*models.Reminder, error)
	GetEnabled(ctx context.Context) ([]*models.Reminder, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

// SentClaim is a pending "sent" log record held open while the transport
// send runs. Commit makes the record durable; Rollback discards it so the
// occurrence stays eligible for retry.
type SentClaim interface {
	Commit() error
	Rollback() error
}

// LogRepository defines the interface for the append-only reminder log. It
// is the single source of truth for idempotency and history.
type LogRepository interface {
	// Append records a dispatch outcome or user action. Entries are never
	// updated or deleted.
	Append(ctx context.Context, entry *models.ReminderLog) (*models.ReminderLog, error)

	// AcquireSent atomically claims the right to dispatch the given
	// occurrence. It returns ErrAlreadySent when a sent record already
	// exists. This must be a single conditional insert against the store,
	// never a read followed by a write.
	AcquireSent(ctx context.Context, reminderID int64, occurrence time.Time) (SentClaim, error)

	GetByReminderID(ctx context.Context, reminderID int64, limit int) ([]*models.ReminderLog, error)

	// GetDueSnoozes returns snoozed reminders whose snoozed_until falls in
	// [from, to] and that have not been completed since the snooze.
	GetDueSnoozes(ctx context.Context, from, to time.Time) ([]*models.SnoozeDue, error)
}
