package timetable

import "time"

// Weekday identifies a day of the week using the ISO-8601 numbering:
// Monday is 1 and Sunday is 7. Persisted slot data and all schedule logic
// use this convention; conversion from time.Time happens only in WeekdayOf.
type Weekday int

// ISO-8601 weekday values.
const (
	Monday    Weekday = 1
	Tuesday   Weekday = 2
	Wednesday Weekday = 3
	Thursday  Weekday = 4
	Friday    Weekday = 5
	Saturday  Weekday = 6
	Sunday    Weekday = 7
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// WeekdayOf converts the standard library weekday (Sunday=0) into the ISO
// numbering. This is the single boundary where the two conventions meet.
func WeekdayOf(t time.Time) Weekday {
	wd := int(t.Weekday())
	if wd == 0 {
		return Sunday
	}
	return Weekday(wd)
}

// Valid reports whether the weekday falls inside the ISO range.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return "Unknown"
}
