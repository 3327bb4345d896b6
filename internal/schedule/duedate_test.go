package schedule

import (
	"testing"
	"time"
)

func TestNextDuePreferredTime(t *testing.T) {
	// Completed on day 0 at 14:00; 30-day period at 09:00 must land on
	// day 30 at exactly 09:00:00.000, not 30*24h later.
	last := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

	due, err := NextDue(last, 30, 9, 0)
	if err != nil {
		t.Fatalf("next due: %v", err)
	}

	want := time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
}

func TestNextDueIgnoresOriginTimeOfDay(t *testing.T) {
	hours := []int{0, 6, 12, 18, 23}
	for _, h := range hours {
		last := time.Date(2025, 6, 10, h, 45, 12, 0, time.UTC)
		due, err := NextDue(last, 7, 8, 30)
		if err != nil {
			t.Fatalf("next due (origin hour %d): %v", h, err)
		}
		want := time.Date(2025, 6, 17, 8, 30, 0, 0, time.UTC)
		if !due.Equal(want) {
			t.Errorf("origin hour %d: due = %v, want %v", h, due, want)
		}
	}
}

func TestNextDueMonotonicity(t *testing.T) {
	cases := []struct {
		name   string
		last   time.Time
		period int
		hour   int
		minute int
	}{
		{"early completion, late preferred", time.Date(2025, 1, 5, 2, 0, 0, 0, time.UTC), 1, 23, 59},
		{"late completion, early preferred", time.Date(2025, 1, 5, 23, 30, 0, 0, time.UTC), 1, 0, 0},
		{"month boundary", time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC), 30, 9, 0},
		{"leap february", time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC), 2, 9, 0},
		{"year boundary", time.Date(2025, 12, 20, 18, 0, 0, 0, time.UTC), 14, 7, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due, err := NextDue(tc.last, tc.period, tc.hour, tc.minute)
			if err != nil {
				t.Fatalf("next due: %v", err)
			}
			if got := DaysBetween(tc.last, due); got < tc.period {
				t.Errorf("days between = %d, want >= %d (due %v)", got, tc.period, due)
			}
		})
	}
}

func TestNextDueAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	// 2025 spring-forward is March 9. A period spanning it must still
	// produce 09:00 local on the due day.
	last := time.Date(2025, 3, 5, 14, 0, 0, 0, loc)
	due, err := NextDue(last, 7, 9, 0)
	if err != nil {
		t.Fatalf("next due: %v", err)
	}
	if due.Hour() != 9 || due.Minute() != 0 {
		t.Errorf("due time-of-day = %02d:%02d, want 09:00", due.Hour(), due.Minute())
	}
	if due.Day() != 12 || due.Month() != time.March {
		t.Errorf("due date = %v, want March 12", due)
	}
}

func TestNextDueValidation(t *testing.T) {
	last := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, err := NextDue(last, 0, 9, 0); err != ErrInvalidPeriod {
		t.Errorf("period 0: err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := NextDue(last, -3, 9, 0); err != ErrInvalidPeriod {
		t.Errorf("negative period: err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := NextDue(last, 7, 24, 0); err != ErrInvalidHour {
		t.Errorf("hour 24: err = %v, want ErrInvalidHour", err)
	}
	if _, err := NextDue(last, 7, -1, 0); err != ErrInvalidHour {
		t.Errorf("hour -1: err = %v, want ErrInvalidHour", err)
	}
	if _, err := NextDue(last, 7, 9, 60); err != ErrInvalidMinute {
		t.Errorf("minute 60: err = %v, want ErrInvalidMinute", err)
	}
}
