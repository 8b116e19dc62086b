package availability

import "time"

// NextOccurrence maps a weekday/time pair onto the next concrete calendar
// instant at or after today, with today counting as zero days ahead. The
// chosen time overwrites the clock fields and seconds are zeroed.
//
// When the target weekday is today and the time has already elapsed, the
// result is still today at that time, i.e. an instant in the past. Callers
// that need a strictly future timestamp must handle that case themselves.
func NextOccurrence(day Weekday, t TimeOfDay, now time.Time) time.Time {
	diff := (day.Index() - int(now.Weekday()) + 7) % 7
	d := now.AddDate(0, 0, diff)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, now.Location())
}

// DaysUntil returns the modular day distance from now's weekday to the
// target, in the 0..6 range.
func DaysUntil(day Weekday, now time.Time) int {
	return (day.Index() - int(now.Weekday()) + 7) % 7
}
