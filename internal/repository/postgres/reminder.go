package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/okorolenko/studyremind/internal/models"
	"github.com/okorolenko/studyremind/internal/repository"
)

type reminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *sqlx.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := `
		INSERT INTO reminders (schedule_item_id, recipient, lead_minutes, enabled, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	if reminder.Language == "" {
		reminder.Language = models.LanguageEnglish
	}

	err := r.db.QueryRowxContext(ctx, query,
		reminder.ScheduleItemID,
		reminder.Recipient,
		reminder.LeadMinutes,
		reminder.Enabled,
		reminder.Language,
		reminder.CreatedAt,
		reminder.UpdatedAt,
	).Scan(&reminder.ID, &reminder.CreatedAt, &reminder.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	query := `
		SELECT id, schedule_item_id, recipient, lead_minutes, enabled, language, created_at, updated_at
		FROM reminders
		WHERE id = $1`

	reminder := &models.Reminder{}
	if err := r.db.GetContext(ctx, reminder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) GetAll(ctx context.Context) ([]*models.Reminder, error) {
	query := `
		SELECT id, schedule_item_id, recipient, lead_minutes, enabled, language, created_at, updated_at
		FROM reminders
		ORDER BY id ASC`

	var reminders []*models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query); err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}

	return reminders, nil
}

func (r *reminderRepository) GetEnabled(ctx context.Context) ([]*models.Reminder, error) {
	query := `
		SELECT id, schedule_item_id, recipient, lead_minutes, enabled, language, created_at, updated_at
		FROM reminders
		WHERE enabled = true
		ORDER BY id ASC`

	var reminders []*models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query); err != nil {
		return nil, fmt.Errorf("failed to query enabled reminders: %w", err)
	}

	return reminders, nil
}

func (r *reminderRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `
		UPDATE reminders
		SET enabled = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set reminder enabled state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reminder with ID %d not found", id)
	}

	return nil
}

func (r *reminderRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM reminders WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reminder with ID %d not found", id)
	}

	return nil
}
