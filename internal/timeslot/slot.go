// Package timeslot quantizes wall-clock time into 15-minute slots.
// Slots are computed from the evaluating process's local clock; the
// broadcaster and the reply path must run on consistently configured
// clocks to agree on slot boundaries.
package timeslot

import (
	"fmt"
	"time"
)

// SlotMinutes is the width of one check-in window.
const SlotMinutes = 15

// Slot identifies a 15-minute wall-clock bucket within a day.
// It carries no date; callers pair it with a calendar date to form a
// full activity key.
type Slot struct {
	Hour   int
	Minute int
}

// SlotAt returns the slot containing t: the hour of t combined with
// the largest multiple of 15 minutes not after t's minute.
func SlotAt(t time.Time) Slot {
	return Slot{
		Hour:   t.Hour(),
		Minute: (t.Minute() / SlotMinutes) * SlotMinutes,
	}
}

// PreviousSlot returns the slot that closed at or before t, i.e. the
// slot containing t minus 15 minutes. The broadcaster uses it to name
// the window that just ended; the reply path uses it to attribute an
// answer to the most recently closed prompt.
func PreviousSlot(t time.Time) Slot {
	return SlotAt(t.Add(-SlotMinutes * time.Minute))
}

// String renders the slot as zero-padded 24-hour "HH:MM". The result
// sorts lexicographically in chronological order, which is what the
// ledger relies on for day listings.
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Label renders the slot in 12-hour form with an AM/PM suffix, e.g.
// "9:00 AM". Hour 0 displays as 12 AM and hour 12 as 12 PM.
func (s Slot) Label() string {
	hour := s.Hour
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, s.Minute, suffix)
}

// DateOf returns t's calendar date as "YYYY-MM-DD", the form the
// ledger stores alongside a slot.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
