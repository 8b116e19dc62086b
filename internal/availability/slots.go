package availability

// Slot granularity is fixed at 30 minutes. Keeping one constant on both
// sides of the API means client and server slot lists stay in sync without
// any negotiation.
const slotStepMinutes = 30

// SlotIterator lazily walks the bookable start times of one interval:
// every 30-minute-aligned time t with start <= t < end. An interval shorter
// than one slot yields nothing; past that guard the slot's own end is
// deliberately not checked against the interval end, so a trailing partial
// slot is still offered.
type SlotIterator struct {
	start TimeOfDay
	end   TimeOfDay
	cur   TimeOfDay
}

// Slots returns a restartable iterator over the interval's start times.
func (iv Interval) Slots() *SlotIterator {
	return &SlotIterator{start: iv.Start, end: iv.End, cur: iv.Start}
}

// Next emits the next slot start, reporting false once the interval end is
// reached. Inverted intervals (start >= end) emit nothing.
func (it *SlotIterator) Next() (TimeOfDay, bool) {
	if minutes(it.end)-minutes(it.start) < slotStepMinutes {
		return TimeOfDay{}, false
	}
	if !it.cur.Before(it.end) {
		return TimeOfDay{}, false
	}
	t := it.cur
	it.cur = advance(it.cur)
	return t, true
}

// Reset rewinds the iterator to the interval start.
func (it *SlotIterator) Reset() {
	it.cur = it.start
}

func minutes(t TimeOfDay) int {
	return t.Hour*60 + t.Minute
}

func advance(t TimeOfDay) TimeOfDay {
	t.Minute += slotStepMinutes
	if t.Minute >= 60 {
		t.Hour++
		t.Minute -= 60
	}
	return t
}

// SlotTimes collects the interval's full slot sequence.
func (iv Interval) SlotTimes() []TimeOfDay {
	var times []TimeOfDay
	it := iv.Slots()
	for t, ok := it.Next(); ok; t, ok = it.Next() {
		times = append(times, t)
	}
	return times
}

// SlotsForDay concatenates the slot sequences of every interval the schedule
// holds for the day, in interval list order. Sequences from overlapping
// intervals are not merged or de-duplicated.
func (s Schedule) SlotsForDay(day Weekday) []TimeOfDay {
	var times []TimeOfDay
	for _, iv := range s.ForDay(day) {
		times = append(times, iv.SlotTimes()...)
	}
	return times
}
