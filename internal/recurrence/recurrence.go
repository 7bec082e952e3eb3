// Package recurrence expands a schedule item's recurrence pattern into the
// concrete instants at which the item starts. It is pure: no clock access,
// no store access.
package recurrence

import (
	"fmt"
	"math"
	"time"

	"github.com/okorolenko/studyremind/internal/models"
)

// Occurrences returns every instant within [from, to] (inclusive) at which
// the item is scheduled to start, in ascending order. Biweekly and monthly
// patterns are anchored to the item's creation date; "once" requires the
// item's explicit OccursOn date.
func Occurrences(item *models.ScheduleItem, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid window: %s is after %s", from, to)
	}

	hour, minute, err := item.StartClock()
	if err != nil {
		return nil, fmt.Errorf("schedule item %d: %w", item.ID, err)
	}

	loc := from.Location()

	switch item.Recurrence {
	case models.RecurrenceOnce:
		if item.OccursOn == nil {
			return nil, fmt.Errorf("schedule item %d: one-off items need an explicit date", item.ID)
		}
		instant := clockOn(item.OccursOn.In(loc), hour, minute)
		if inWindow(instant, from, to) {
			return []time.Time{instant}, nil
		}
		return nil, nil

	case models.RecurrenceDaily:
		return eachDay(from, to, hour, minute, func(time.Time) bool { return true }), nil

	case models.RecurrenceWeekly:
		return eachDay(from, to, hour, minute, func(day time.Time) bool {
			return day.Weekday() == item.Weekday()
		}), nil

	case models.RecurrenceBiweekly:
		anchor := weekStart(item.CreatedAt.In(loc))
		return eachDay(from, to, hour, minute, func(day time.Time) bool {
			if day.Weekday() != item.Weekday() {
				return false
			}
			parity := weeksBetween(anchor, weekStart(day)) % 2
			if parity < 0 {
				parity += 2
			}
			return parity == 0
		}), nil

	case models.RecurrenceMonthly:
		return eachMonth(from, to, hour, minute, item.CreatedAt.In(loc).Day()), nil

	default:
		return nil, fmt.Errorf("schedule item %d: unknown recurrence pattern %q", item.ID, item.Recurrence)
	}
}

// eachDay walks calendar days across the window and collects the start
// instant of every day accepted by the filter.
func eachDay(from, to time.Time, hour, minute int, match func(day time.Time) bool) []time.Time {
	var out []time.Time
	for day := midnight(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		if !match(day) {
			continue
		}
		instant := clockOn(day, hour, minute)
		if inWindow(instant, from, to) {
			out = append(out, instant)
		}
	}
	return out
}

// eachMonth collects one instant per calendar month on dayOfMonth, clipped to
// the month's length (a 31st anchor lands on Feb 28/29).
func eachMonth(from, to time.Time, hour, minute, dayOfMonth int) []time.Time {
	var out []time.Time
	loc := from.Location()
	for month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, loc); !month.After(to); month = month.AddDate(0, 1, 0) {
		day := dayOfMonth
		if last := lastDayOfMonth(month); day > last {
			day = last
		}
		instant := time.Date(month.Year(), month.Month(), day, hour, minute, 0, 0, loc)
		if inWindow(instant, from, to) {
			out = append(out, instant)
		}
	}
	return out
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func clockOn(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns midnight of the Sunday beginning the week containing t.
func weekStart(t time.Time) time.Time {
	d := midnight(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// weeksBetween counts whole weeks from a to b. Both arguments are week
// starts, so the day difference is a multiple of 7; rounding absorbs DST.
func weeksBetween(a, b time.Time) int {
	days := int(math.Round(b.Sub(a).Hours() / 24))
	return days / 7
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
