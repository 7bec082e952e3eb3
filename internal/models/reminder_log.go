package models

import "time"

// LogStatus is the outcome recorded for a dispatch attempt or user action
type LogStatus string

const (
	LogStatusSent      LogStatus = "sent"
	LogStatusFailed    LogStatus = "failed"
	LogStatusSnoozed   LogStatus = "snoozed"
	LogStatusCompleted LogStatus = "completed"
)

// ReminderLog is an append-only audit entry. Rows are never updated or
// deleted; every dispatch attempt and every user action appends one.
type ReminderLog struct {
	ID           int64      `json:"id" db:"id"`
	ReminderID   int64      `json:"reminder_id" db:"reminder_id"`
	OccurrenceAt *time.Time `json:"occurrence_at" db:"occurrence_at"`
	Status       LogStatus  `json:"status" db:"status"`
	ActionTaken  *string    `json:"action_taken" db:"action_taken"`
	SnoozedUntil *time.Time `json:"snoozed_until" db:"snoozed_until"`
	Error        *string    `json:"error" db:"error"`
	SentAt       time.Time  `json:"sent_at" db:"sent_at"`
}

// SnoozeDue is a snoozed reminder whose snooze window has elapsed and which
// should re-enter the dispatch queue.
type SnoozeDue struct {
	ReminderID   int64     `db:"reminder_id"`
	SnoozedUntil time.Time `db:"snoozed_until"`
}
