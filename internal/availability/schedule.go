package availability

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Weekday is a named day of the week. Indexing matches time.Weekday
// (Sunday = 0) so weekday arithmetic lines up with the standard library.
type Weekday string

const (
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

var weekdayIndex = map[Weekday]int{
	Sunday:    0,
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
}

// Valid reports whether the weekday is one of the seven day names.
func (d Weekday) Valid() bool {
	_, ok := weekdayIndex[d]
	return ok
}

// Index returns the weekday position with Sunday as 0. Invalid days return -1.
func (d Weekday) Index() int {
	idx, ok := weekdayIndex[d]
	if !ok {
		return -1
	}
	return idx
}

// TimeOfDay is a wall-clock time without a date, serialised as "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string. Trailing text and
// single-digit minutes are rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// String renders the zero-padded 24-hour form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before orders times lexicographically on hour then minute.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// MarshalJSON encodes the time as its "HH:MM" string form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the "HH:MM" string form.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer so intervals persist as "HH:MM" text.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for the "HH:MM" text column form.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// Interval is one recurring weekly window during which a therapist accepts
// bookings. Start is expected to precede End; inverted intervals are kept but
// yield no bookable slots.
type Interval struct {
	Day   Weekday   `db:"day" json:"day"`
	Start TimeOfDay `db:"start_time" json:"start"`
	End   TimeOfDay `db:"end_time" json:"end"`
}

// DefaultInterval is the seed window appended when editing adds a new row.
func DefaultInterval() Interval {
	return Interval{Day: Monday, Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 17}}
}

// Schedule is a therapist's ordered weekly availability. Insertion order is
// display order; a day may carry zero, one or several intervals and no
// merging or overlap resolution is performed.
type Schedule []Interval

// Days returns the weekdays with at least one interval, in first-seen order.
func (s Schedule) Days() []Weekday {
	seen := make(map[Weekday]struct{}, len(s))
	var days []Weekday
	for _, iv := range s {
		if _, ok := seen[iv.Day]; ok {
			continue
		}
		seen[iv.Day] = struct{}{}
		days = append(days, iv.Day)
	}
	return days
}

// ForDay returns every interval for the given day in list order. Unknown days
// yield an empty result rather than an error.
func (s Schedule) ForDay(day Weekday) []Interval {
	var matched []Interval
	for _, iv := range s {
		if iv.Day == day {
			matched = append(matched, iv)
		}
	}
	return matched
}

// HasDay reports whether at least one interval exists for the day.
func (s Schedule) HasDay(day Weekday) bool {
	for _, iv := range s {
		if iv.Day == day {
			return true
		}
	}
	return false
}

// Add appends an interval, preserving insertion order.
func (s Schedule) Add(iv Interval) Schedule {
	return append(s, iv)
}

// Remove deletes the interval at index i. The last remaining interval cannot
// be removed so an edited schedule is never emptied.
func (s Schedule) Remove(i int) (Schedule, error) {
	if i < 0 || i >= len(s) {
		return s, fmt.Errorf("interval index %d out of range", i)
	}
	if len(s) == 1 {
		return s, fmt.Errorf("cannot remove the last availability interval")
	}
	out := make(Schedule, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out, nil
}
