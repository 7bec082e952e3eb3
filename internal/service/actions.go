package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/models"
)

// Complete marks the schedule item done and records the action. Repeated
// calls are not an error: the item stays completed and each call appends
// another audit row.
//
// Completion lives on the schedule item itself, so for a recurring item this
// ends every future occurrence, not just the one that triggered the
// notification.
func (s *Service) Complete(ctx context.Context, reminderID, itemID int64) error {
	reminder, err := s.Reminders.GetByID(ctx, reminderID)
	if err != nil {
		return err
	}
	if reminder == nil {
		return ErrReminderNotFound
	}

	item, err := s.Schedules.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrScheduleItemNotFound
	}

	if err := s.Schedules.SetCompleted(ctx, itemID, true); err != nil {
		return fmt.Errorf("failed to complete schedule item %d: %w", itemID, err)
	}

	action := "complete"
	entry := &models.ReminderLog{
		ReminderID:  reminderID,
		Status:      models.LogStatusCompleted,
		ActionTaken: &action,
	}
	if _, err := s.Logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record complete action: %w", err)
	}

	s.metrics.ActionsTotal.WithLabelValues("complete").Inc()
	s.logger.WithFields(logrus.Fields{
		"reminder_id":      reminderID,
		"schedule_item_id": itemID,
	}).Info("Schedule item marked complete")

	return nil
}

// Snooze records a snooze action and returns the instant at which the
// reminder becomes due again. The schedule item itself is never touched.
func (s *Service) Snooze(ctx context.Context, reminderID int64, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("snooze minutes must be positive, got %d", minutes)
	}

	reminder, err := s.Reminders.GetByID(ctx, reminderID)
	if err != nil {
		return time.Time{}, err
	}
	if reminder == nil {
		return time.Time{}, ErrReminderNotFound
	}

	until := s.now().Add(time.Duration(minutes) * time.Minute)

	action := "snooze"
	entry := &models.ReminderLog{
		ReminderID:   reminderID,
		Status:       models.LogStatusSnoozed,
		ActionTaken:  &action,
		SnoozedUntil: &until,
	}
	if _, err := s.Logs.Append(ctx, entry); err != nil {
		return time.Time{}, fmt.Errorf("failed to record snooze action: %w", err)
	}

	s.metrics.ActionsTotal.WithLabelValues("snooze").Inc()
	s.logger.WithFields(logrus.Fields{
		"reminder_id":   reminderID,
		"snoozed_until": until,
	}).Info("Reminder snoozed")

	return until, nil
}
