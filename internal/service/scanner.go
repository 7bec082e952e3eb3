package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/models"
	"github.com/okorolenko/studyremind/internal/notify"
	"github.com/okorolenko/studyremind/internal/recurrence"
	"github.com/okorolenko/studyremind/internal/repository"
)

// sendAttempts bounds transport retries within one dispatch; further retries
// happen on later scans once a failed entry is on record.
const sendAttempts = 3

// StartScanner runs the periodic due-reminder scan until the context is
// cancelled, so it should be launched in a separate goroutine. Singleton
// mode drops a tick that would overlap a still-running pass; the dispatch
// gate makes any work the next tick repeats harmless.
func (s *Service) StartScanner(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(s.cfg.ScanInterval).SingletonMode().Do(func() {
		if err := s.ScanOnce(ctx); err != nil {
			s.logger.WithError(err).Error("Scan cycle finished with errors")
		}
	})
	scheduler.StartAsync()

	s.logger.Infof("Reminder scanner started (interval %s, tolerance %s, lookahead %s)",
		s.cfg.ScanInterval, s.cfg.ScanTolerance, s.cfg.ScanLookahead)

	<-ctx.Done()
	scheduler.Stop()
	s.logger.Info("Reminder scanner stopped")
}

// ScanOnce performs a single pass over all enabled reminders and dispatches
// every occurrence whose deadline falls inside the tolerance window. Errors
// for individual reminders are collected so one broken reminder never hides
// the rest of the pass.
func (s *Service) ScanOnce(ctx context.Context) error {
	now := s.now()
	s.metrics.ScansTotal.Inc()

	reminders, err := s.Reminders.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled reminders: %w", err)
	}

	var result *multierror.Error
	for _, reminder := range reminders {
		if err := s.scanReminder(ctx, reminder, now); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := s.scanSnoozes(ctx, now); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func (s *Service) scanReminder(ctx context.Context, reminder *models.Reminder, now time.Time) error {
	item, err := s.Schedules.GetByID(ctx, reminder.ScheduleItemID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", reminder.ID, err)
	}
	if item == nil || item.Completed {
		return nil
	}

	// The window reaches lead minutes past the lookahead so occurrences
	// whose deadline is near now are always resolved.
	from := now.Add(-s.cfg.ScanTolerance)
	to := now.Add(s.cfg.ScanLookahead + reminder.Lead())

	occurrences, err := recurrence.Occurrences(item, from, to)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", reminder.ID, err)
	}

	var result *multierror.Error
	for _, occurrence := range occurrences {
		deadline := reminder.Deadline(occurrence)
		if now.Before(deadline.Add(-s.cfg.ScanTolerance)) || now.After(deadline.Add(s.cfg.ScanTolerance)) {
			continue
		}
		if _, err := s.dispatch(ctx, reminder, item, occurrence); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// scanSnoozes re-dispatches reminders whose snooze window has elapsed. The
// snoozed_until instant becomes the occurrence key, so the one-sent-per-
// occurrence guarantee still holds for the re-sent notification.
func (s *Service) scanSnoozes(ctx context.Context, now time.Time) error {
	due, err := s.Logs.GetDueSnoozes(ctx, now.Add(-s.cfg.ScanTolerance), now.Add(s.cfg.ScanTolerance))
	if err != nil {
		return fmt.Errorf("failed to list due snoozes: %w", err)
	}

	var result *multierror.Error
	for _, snooze := range due {
		reminder, err := s.Reminders.GetByID(ctx, snooze.ReminderID)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("snoozed reminder %d: %w", snooze.ReminderID, err))
			continue
		}
		if reminder == nil || !reminder.Enabled {
			continue
		}

		item, err := s.Schedules.GetByID(ctx, reminder.ScheduleItemID)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("snoozed reminder %d: %w", reminder.ID, err))
			continue
		}
		if item == nil || item.Completed {
			continue
		}

		if _, err := s.dispatch(ctx, reminder, item, snooze.SnoozedUntil); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// dispatch pushes one (reminder, occurrence) pair through the gate, the
// composer and the transport. It returns true when a notification went out,
// false when the occurrence had already been sent.
func (s *Service) dispatch(ctx context.Context, reminder *models.Reminder, item *models.ScheduleItem, occurrence time.Time) (bool, error) {
	claim, err := s.Logs.AcquireSent(ctx, reminder.ID, occurrence)
	if errors.Is(err, repository.ErrAlreadySent) {
		s.metrics.DispatchSkipped.Inc()
		s.logger.WithFields(logrus.Fields{
			"reminder_id":   reminder.ID,
			"occurrence_at": occurrence,
		}).Debug("Occurrence already dispatched, skipping")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reminder %d: %w", reminder.ID, err)
	}

	message := notify.Compose(reminder, item, occurrence, s.cfg.BaseURL, s.cfg.SnoozeMinutes)

	if sendErr := s.sendWithRetry(ctx, reminder.Recipient, message); sendErr != nil {
		if rbErr := claim.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("Failed to release dispatch gate")
		}

		errText := sendErr.Error()
		entry := &models.ReminderLog{
			ReminderID:   reminder.ID,
			OccurrenceAt: &occurrence,
			Status:       models.LogStatusFailed,
			Error:        &errText,
		}
		if _, appendErr := s.Logs.Append(ctx, entry); appendErr != nil {
			s.logger.WithError(appendErr).Error("Failed to record failed dispatch")
		}

		s.metrics.DispatchFailed.Inc()
		return false, fmt.Errorf("reminder %d: send failed: %w", reminder.ID, sendErr)
	}

	if err := claim.Commit(); err != nil {
		return false, fmt.Errorf("reminder %d: %w", reminder.ID, err)
	}

	s.metrics.DispatchSent.Inc()
	s.logger.WithFields(logrus.Fields{
		"reminder_id":   reminder.ID,
		"occurrence_at": occurrence,
		"recipient":     reminder.Recipient,
	}).Info("Dispatched reminder")
	return true, nil
}

func (s *Service) sendWithRetry(ctx context.Context, to string, message *notify.Message) error {
	backoff := s.cfg.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= sendAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		lastErr = s.transport.Send(sendCtx, to, message.Subject, message.Body)
		cancel()

		if lastErr == nil {
			return nil
		}

		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return lastErr
}

// DispatchResult reports the outcome of an externally triggered dispatch.
type DispatchResult struct {
	Sent    bool
	Message string
}

// DispatchReminder resolves the next due occurrence for a reminder and
// dispatches it immediately, for callers such as an external cron. Recipient
// and language override the stored values when non-empty.
func (s *Service) DispatchReminder(ctx context.Context, reminderID int64, recipient string, language models.Language) (*DispatchResult, error) {
	reminder, err := s.Reminders.GetByID(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, ErrReminderNotFound
	}
	if recipient != "" {
		reminder.Recipient = recipient
	}
	if language != "" {
		reminder.Language = language
	}

	item, err := s.Schedules.GetByID(ctx, reminder.ScheduleItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrScheduleItemNotFound
	}
	if item.Completed {
		return &DispatchResult{Sent: false, Message: "schedule item is already completed"}, nil
	}

	now := s.now()
	occurrences, err := recurrence.Occurrences(item, now.Add(-s.cfg.ScanTolerance), now.Add(s.cfg.ScanLookahead+reminder.Lead()))
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		return &DispatchResult{Sent: false, Message: "no occurrence due within the lookahead window"}, nil
	}

	sent, err := s.dispatch(ctx, reminder, item, occurrences[0])
	if err != nil {
		return &DispatchResult{Sent: false, Message: err.Error()}, nil
	}
	if !sent {
		return &DispatchResult{Sent: false, Message: "occurrence already dispatched"}, nil
	}
	return &DispatchResult{Sent: true, Message: "reminder dispatched"}, nil
}
