package timetable

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSlot indicates malformed recurring slot data. It is surfaced to
// the creating user as a validation failure, never coerced.
var ErrInvalidSlot = errors.New("invalid schedule slot")

// MaxRoomLength bounds the free-text room label.
const MaxRoomLength = 120

// Slot describes one weekly recurring class meeting: a weekday, a start/end
// time within that day, and an optional room. A slot may carry a single
// per-occurrence cancellation; the cancellation affects exactly one calendar
// date and no other week's instance.
type Slot struct {
	Weekday     Weekday
	Start       ClockTime
	End         ClockTime
	Room        string
	CancelledOn *time.Time
	Cancelled   bool
}

// Validate checks the structural invariants of the slot.
func (s Slot) Validate() error {
	if !s.Weekday.Valid() {
		return fmt.Errorf("%w: weekday %d outside 1-7", ErrInvalidSlot, s.Weekday)
	}
	if !s.Start.Before(s.End) {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidSlot, s.Start, s.End)
	}
	if len(s.Room) > MaxRoomLength {
		return fmt.Errorf("%w: room label exceeds %d characters", ErrInvalidSlot, MaxRoomLength)
	}
	return nil
}

// Overlaps reports whether two slots share a weekday and their [start,end)
// intervals intersect. The check is advisory: overlapping slots are allowed
// to exist, callers only use this to warn the schedule editor.
func Overlaps(a, b Slot) bool {
	if a.Weekday != b.Weekday {
		return false
	}
	return a.Start.Minutes() < b.End.Minutes() && b.Start.Minutes() < a.End.Minutes()
}

// Occurs reports whether the slot has an occurrence on the given calendar
// date, cancelled or not.
func Occurs(s Slot, date time.Time) bool {
	return WeekdayOf(date) == s.Weekday
}

// SameDate compares two instants by calendar date only.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
