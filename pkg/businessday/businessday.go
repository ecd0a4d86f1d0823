// Package businessday counts eligible working days in an inclusive date
// range: days that are neither Saturday/Sunday nor registered holidays.
package businessday

import "time"

// HolidaySet is a date-keyed lookup. Times are normalized to midnight UTC so
// that entries loaded from the registry match regardless of stored zone.
type HolidaySet map[time.Time]struct{}

// NewHolidaySet builds a set from raw holiday dates.
func NewHolidaySet(dates []time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[normalize(d)] = struct{}{}
	}
	return set
}

// Contains reports whether d falls on a holiday.
func (s HolidaySet) Contains(d time.Time) bool {
	_, ok := s[normalize(d)]
	return ok
}

// Count returns the number of days in [start, end] that are business days.
// Returns 0 when the range is empty (end before start) or consists entirely
// of weekends and holidays. Deterministic and side-effect free; the caller
// decides what a zero count means (submission policy rejects it).
func Count(start, end time.Time, holidays HolidaySet) int {
	start = normalize(start)
	end = normalize(end)

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if holidays.Contains(d) {
			continue
		}
		days++
	}
	return days
}

func normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
