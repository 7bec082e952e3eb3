package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okorolenko/studyremind/internal/models"
	"github.com/okorolenko/studyremind/internal/repository"
)

// uniqueViolation is the Postgres error code raised when an insert collides
// with the partial unique index guarding sent records.
const uniqueViolation = "23505"

type logRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new reminder log repository
func NewLogRepository(db *sqlx.DB) repository.LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, entry *models.ReminderLog) (*models.ReminderLog, error) {
	query := `
		INSERT INTO reminder_logs (reminder_id, occurrence_at, status, action_taken, snoozed_until, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, sent_at`

	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	err := r.db.QueryRowxContext(ctx, query,
		entry.ReminderID,
		entry.OccurrenceAt,
		entry.Status,
		entry.ActionTaken,
		entry.SnoozedUntil,
		entry.Error,
		entry.SentAt,
	).Scan(&entry.ID, &entry.SentAt)

	if err != nil {
		return nil, fmt.Errorf("failed to append reminder log: %w", err)
	}

	return entry, nil
}

// sentClaim holds the uncommitted sent row. The surrounding transaction is
// what makes the gate atomic: a concurrent acquirer blocks on the unique
// index until this claim commits or rolls back.
type sentClaim struct {
	tx *sqlx.Tx
}

func (c *sentClaim) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sent record: %w", err)
	}
	return nil
}

func (c *sentClaim) Rollback() error {
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back sent claim: %w", err)
	}
	return nil
}

func (r *logRepository) AcquireSent(ctx context.Context, reminderID int64, occurrence time.Time) (repository.SentClaim, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin gate transaction: %w", err)
	}

	query := `
		INSERT INTO reminder_logs (reminder_id, occurrence_at, status, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reminder_id, occurrence_at) WHERE status = 'sent' DO NOTHING
		RETURNING id`

	var id int64
	err = tx.QueryRowxContext(ctx, query, reminderID, occurrence, models.LogStatusSent, time.Now()).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAlreadySent
		}
		// A concurrent claim committing mid-insert surfaces as a unique
		// violation rather than a conflict no-op.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, repository.ErrAlreadySent
		}
		return nil, fmt.Errorf("failed to acquire dispatch gate: %w", err)
	}

	return &sentClaim{tx: tx}, nil
}

func (r *logRepository) GetByReminderID(ctx context.Context, reminderID int64, limit int) ([]*models.ReminderLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, reminder_id, occurrence_at, status, action_taken, snoozed_until, error, sent_at
		FROM reminder_logs
		WHERE reminder_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`

	var entries []*models.ReminderLog
	if err := r.db.SelectContext(ctx, &entries, query, reminderID, limit); err != nil {
		return nil, fmt.Errorf("failed to query reminder logs: %w", err)
	}

	return entries, nil
}

func (r *logRepository) GetDueSnoozes(ctx context.Context, from, to time.Time) ([]*models.SnoozeDue, error) {
	query := `
		SELECT l.reminder_id, l.snoozed_until
		FROM reminder_logs l
		JOIN reminders rem ON rem.id = l.reminder_id
		JOIN schedule_items s ON s.id = rem.schedule_item_id
		WHERE l.status = 'snoozed'
		  AND l.snoozed_until BETWEEN $1 AND $2
		  AND rem.enabled = true
		  AND s.completed = false
		  AND NOT EXISTS (
			SELECT 1 FROM reminder_logs done
			WHERE done.reminder_id = l.reminder_id
			  AND done.status = 'completed'
			  AND done.sent_at >= l.sent_at
		  )
		ORDER BY l.snoozed_until ASC`

	var due []*models.SnoozeDue
	if err := r.db.SelectContext(ctx, &due, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to query due snoozes: %w", err)
	}

	return due, nil
}
