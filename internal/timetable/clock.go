package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a wall-clock time of day with minute precision, independent of
// any calendar date or time zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a "HH:MM" string, the format schedule slots are stored in.
func ParseClock(value string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is strictly earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c.Minutes() < other.Minutes()
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
