// Package schedule computes when a questionnaire next falls due.
package schedule

import (
	"errors"
	"time"
)

var (
	ErrInvalidPeriod = errors.New("period must be at least 1 day")
	ErrInvalidHour   = errors.New("hour must be in [0,23]")
	ErrInvalidMinute = errors.New("minute must be in [0,59]")
)

// ValidateTime checks a preferred delivery time.
func ValidateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return ErrInvalidHour
	}
	if minute < 0 || minute > 59 {
		return ErrInvalidMinute
	}
	return nil
}

// NextDue returns the next due timestamp: periodDays whole calendar days
// after lastCompleted, at the preferred hour and minute.
//
// The addition is calendar arithmetic in lastCompleted's location, not raw
// duration addition, so a daylight-saving transition inside the period never
// shifts the intended time-of-day. The result is always at least periodDays
// calendar days after the completion date regardless of either time-of-day.
func NextDue(lastCompleted time.Time, periodDays, hour, minute int) (time.Time, error) {
	if periodDays <= 0 {
		return time.Time{}, ErrInvalidPeriod
	}
	if err := ValidateTime(hour, minute); err != nil {
		return time.Time{}, err
	}
	loc := lastCompleted.Location()
	due := time.Date(
		lastCompleted.Year(), lastCompleted.Month(), lastCompleted.Day()+periodDays,
		hour, minute, 0, 0, loc,
	)
	return due, nil
}

// DaysBetween counts whole calendar days from a to b in a's location.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	start := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	end := b.In(loc)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	days := 0
	for start.Before(end) {
		start = start.AddDate(0, 0, 1)
		days++
	}
	return days
}
