package models

import (
	"fmt"
	"time"
)

// RecurrencePattern describes how often a schedule item repeats
type RecurrencePattern string

const (
	RecurrenceOnce     RecurrencePattern = "once"
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
)

// IsValid returns true if the pattern is one of the known recurrence values
func (p RecurrencePattern) IsValid() bool {
	switch p {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Priority represents the priority level of a schedule item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ScheduleItem represents a recurring or one-off study block
type ScheduleItem struct {
	ID         int64             `json:"id" db:"id"`
	Subject    string            `json:"subject" db:"subject"`
	Topic      string            `json:"topic" db:"topic"`
	DayOfWeek  int               `json:"day_of_week" db:"day_of_week"` // 0 = Sunday
	StartTime  string            `json:"start_time" db:"start_time"`   // "15:04"
	EndTime    string            `json:"end_time" db:"end_time"`
	Recurrence RecurrencePattern `json:"recurrence" db:"recurrence"`
	OccursOn   *time.Time        `json:"occurs_on" db:"occurs_on"` // required for "once"
	Priority   Priority          `json:"priority" db:"priority"`
	Completed  bool              `json:"completed" db:"completed"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// Weekday returns the item's day of week as a time.Weekday
func (s *ScheduleItem) Weekday() time.Weekday {
	return time.Weekday(s.DayOfWeek)
}

// StartClock parses the item's start time into hour and minute components
func (s *ScheduleItem) StartClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		// TIME columns come back with seconds attached
		t, err = time.Parse("15:04:05", s.StartTime)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid start time %q: %w", s.StartTime, err)
		}
	}
	return t.Hour(), t.Minute(), nil
}
