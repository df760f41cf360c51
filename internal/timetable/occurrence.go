package timetable

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidRange indicates a malformed date range: no partial results are
// produced, the caller gets an empty sequence and this error.
var ErrInvalidRange = errors.New("invalid date range")

// OccurrenceState describes the state of one slot on one calendar date.
type OccurrenceState int

const (
	// NotScheduled means the slot's weekday does not fall on the date.
	NotScheduled OccurrenceState = iota
	// Scheduled means the slot occurs on the date and is not cancelled.
	Scheduled
	// Cancelled means this specific occurrence has been called off.
	Cancelled
)

func (s OccurrenceState) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Cancelled:
		return "cancelled"
	default:
		return "not_scheduled"
	}
}

// Resolve answers whether the slot occurs on the date, and in what state.
// A cancellation record only takes effect when its date matches the queried
// date exactly; a non-matching CancelledOn has no effect on other weeks.
func Resolve(s Slot, date time.Time) OccurrenceState {
	if !Occurs(s, date) {
		return NotScheduled
	}
	if s.Cancelled && s.CancelledOn != nil && SameDate(*s.CancelledOn, date) {
		return Cancelled
	}
	return Scheduled
}

// Occurrence is one concrete calendar-date instance of a slot.
type Occurrence struct {
	Date      time.Time
	SlotIndex int
	State     OccurrenceState
}

// OccurrencesInRange resolves every occurrence of the given slots between
// start and end inclusive. The result is ordered by date, then by slot start
// time within a date, then by input order for slots sharing a start time, so
// identical inputs always yield identical output. end before start fails with
// ErrInvalidRange and yields nothing.
func OccurrencesInRange(slots []Slot, start, end time.Time) ([]Occurrence, error) {
	startDay := truncateToDate(start)
	endDay := truncateToDate(end)
	if endDay.Before(startDay) {
		return nil, ErrInvalidRange
	}

	var occurrences []Occurrence
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		var daily []Occurrence
		for idx, slot := range slots {
			if !Occurs(slot, day) {
				continue
			}
			daily = append(daily, Occurrence{
				Date:      day,
				SlotIndex: idx,
				State:     Resolve(slot, day),
			})
		}

		sort.SliceStable(daily, func(i, j int) bool {
			return slots[daily[i].SlotIndex].Start.Minutes() < slots[daily[j].SlotIndex].Start.Minutes()
		})

		occurrences = append(occurrences, daily...)
	}

	return occurrences, nil
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
