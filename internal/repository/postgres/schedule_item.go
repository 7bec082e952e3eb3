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

type scheduleItemRepository struct {
	db *sqlx.DB
}

// NewScheduleItemRepository creates a new schedule item repository
func NewScheduleItemRepository(db *sqlx.DB) repository.ScheduleItemRepository {
	return &scheduleItemRepository{db: db}
}

func (r *scheduleItemRepository) Create(ctx context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error) {
	query := `
		INSERT INTO schedule_items (subject, topic, day_of_week, start_time, end_time, recurrence, occurs_on, priority, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}

	err := r.db.QueryRowxContext(ctx, query,
		item.Subject,
		item.Topic,
		item.DayOfWeek,
		item.StartTime,
		item.EndTime,
		item.Recurrence,
		item.OccursOn,
		item.Priority,
		item.Completed,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create schedule item: %w", err)
	}

	return item, nil
}

func (r *scheduleItemRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleItem, error) {
	query := `
		SELECT id, subject, topic, day_of_week, start_time, end_time, recurrence, occurs_on, priority, completed, created_at, updated_at
		FROM schedule_items
		WHERE id = $1`

	item := &models.ScheduleItem{}
	if err := r.db.GetContext(ctx, item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule item: %w", err)
	}

	return item, nil
}

func (r *scheduleItemRepository) GetAll(ctx context.Context) ([]*models.ScheduleItem, error) {
	query := `
		SELECT id, subject, topic, day_of_week, start_time, end_time, recurrence, occurs_on, priority, completed, created_at, updated_at
		FROM schedule_items
		ORDER BY day_of_week ASC, start_time ASC`

	var items []*models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to query schedule items: %w", err)
	}

	return items, nil
}

func (r *scheduleItemRepository) Update(ctx context.Context, item *models.ScheduleItem) (*models.ScheduleItem, error) {
	query := `
		UPDATE schedule_items
		SET subject = $2, topic = $3, day_of_week = $4, start_time = $5, end_time = $6,
		    recurrence = $7, occurs_on = $8, priority = $9, completed = $10, updated_at = $11
		WHERE id = $1
		RETURNING updated_at`

	item.UpdatedAt = time.Now()

	err := r.db.QueryRowxContext(ctx, query,
		item.ID,
		item.Subject,
		item.Topic,
		item.DayOfWeek,
		item.StartTime,
		item.EndTime,
		item.Recurrence,
		item.OccursOn,
		item.Priority,
		item.Completed,
		item.UpdatedAt,
	).Scan(&item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update schedule item: %w", err)
	}

	return item, nil
}

func (r *scheduleItemRepository) SetCompleted(ctx context.Context, id int64, completed bool) error {
	query := `
		UPDATE schedule_items
		SET completed = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set schedule item completion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("schedule item with ID %d not found", id)
	}

	return nil
}

func (r *scheduleItemRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM schedule_items WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("schedule item with ID %d not found", id)
	}

	return nil
}
