package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func clock(t *testing.T, value string) ClockTime {
	t.Helper()
	parsed, err := ParseClock(value)
	require.NoError(t, err)
	return parsed
}

func TestWeekdayOfUsesISONumbering(t *testing.T) {
	// 2024-03-04 is a Monday, 2024-03-10 a Sunday.
	require.Equal(t, Monday, WeekdayOf(date(2024, time.March, 4)))
	require.Equal(t, Wednesday, WeekdayOf(date(2024, time.March, 6)))
	require.Equal(t, Sunday, WeekdayOf(date(2024, time.March, 10)))
}

func TestParseClockRejectsMalformedInput(t *testing.T) {
	for _, value := range []string{"", "9", "24:00", "10:60", "aa:bb", "10-30"} {
		_, err := ParseClock(value)
		require.Error(t, err, value)
	}

	parsed, err := ParseClock("09:45")
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 9, Minute: 45}, parsed)
}

func TestSlotValidate(t *testing.T) {
	valid := Slot{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30"), Room: "Lab 201"}
	require.NoError(t, valid.Validate())

	badDay := valid
	badDay.Weekday = 8
	require.ErrorIs(t, badDay.Validate(), ErrInvalidSlot)

	badDay.Weekday = 0
	require.ErrorIs(t, badDay.Validate(), ErrInvalidSlot)

	inverted := valid
	inverted.Start, inverted.End = inverted.End, inverted.Start
	require.ErrorIs(t, inverted.Validate(), ErrInvalidSlot)

	zeroLength := valid
	zeroLength.End = zeroLength.Start
	require.ErrorIs(t, zeroLength.Validate(), ErrInvalidSlot)

	longRoom := valid
	for len(longRoom.Room) <= MaxRoomLength {
		longRoom.Room += "x"
	}
	require.ErrorIs(t, longRoom.Validate(), ErrInvalidSlot)
}

func TestOverlaps(t *testing.T) {
	base := Slot{Weekday: Tuesday, Start: clock(t, "09:00"), End: clock(t, "10:30")}

	cases := []struct {
		name    string
		other   Slot
		overlap bool
	}{
		{"different weekday", Slot{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30")}, false},
		{"identical interval", Slot{Weekday: Tuesday, Start: clock(t, "09:00"), End: clock(t, "10:30")}, true},
		{"partial overlap", Slot{Weekday: Tuesday, Start: clock(t, "10:00"), End: clock(t, "11:00")}, true},
		{"contained", Slot{Weekday: Tuesday, Start: clock(t, "09:30"), End: clock(t, "10:00")}, true},
		{"back to back", Slot{Weekday: Tuesday, Start: clock(t, "10:30"), End: clock(t, "12:00")}, false},
		{"earlier same day", Slot{Weekday: Tuesday, Start: clock(t, "07:00"), End: clock(t, "09:00")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.overlap, Overlaps(base, tc.other))
			require.Equal(t, tc.overlap, Overlaps(tc.other, base))
		})
	}
}

func TestOccursMatchesWeekdayAcrossYears(t *testing.T) {
	slot := Slot{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30")}

	// Walk several years including the 2024 leap day to exercise week and
	// year boundaries.
	day := date(2023, time.January, 1)
	for day.Before(date(2026, time.January, 1)) {
		expected := WeekdayOf(day) == Wednesday
		require.Equal(t, expected, Occurs(slot, day), day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}

	// 2024-02-29 and 2024-02-28 explicitly: the leap day is a Thursday.
	require.False(t, Occurs(slot, date(2024, time.February, 29)))
	require.True(t, Occurs(slot, date(2024, time.February, 28)))
}

func TestResolveCancellationAffectsSingleDate(t *testing.T) {
	cancelled := date(2024, time.March, 6)
	slot := Slot{
		Weekday:     Wednesday,
		Start:       clock(t, "09:00"),
		End:         clock(t, "10:30"),
		CancelledOn: &cancelled,
		Cancelled:   true,
	}

	require.Equal(t, Cancelled, Resolve(slot, cancelled))
	require.Equal(t, Scheduled, Resolve(slot, date(2024, time.March, 13)))
	require.Equal(t, Scheduled, Resolve(slot, date(2024, time.February, 28)))
	require.Equal(t, NotScheduled, Resolve(slot, date(2024, time.March, 7)))
}

func TestResolveIgnoresCancellationWithoutFlag(t *testing.T) {
	cancelled := date(2024, time.March, 6)
	slot := Slot{
		Weekday:     Wednesday,
		Start:       clock(t, "09:00"),
		End:         clock(t, "10:30"),
		CancelledOn: &cancelled,
		Cancelled:   false,
	}

	require.Equal(t, Scheduled, Resolve(slot, cancelled))
}

func TestResolveIgnoresTimeOfDayOnCancelledDate(t *testing.T) {
	cancelled := time.Date(2024, time.March, 6, 15, 30, 0, 0, time.UTC)
	slot := Slot{
		Weekday:     Wednesday,
		Start:       clock(t, "09:00"),
		End:         clock(t, "10:30"),
		CancelledOn: &cancelled,
		Cancelled:   true,
	}

	require.Equal(t, Cancelled, Resolve(slot, date(2024, time.March, 6)))
}

func TestOccurrencesInRangeSingleWeek(t *testing.T) {
	slots := []Slot{{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30"), Room: "Lab 201"}}

	occurrences, err := OccurrencesInRange(slots, date(2024, time.March, 4), date(2024, time.March, 10))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	require.Equal(t, date(2024, time.March, 6), occurrences[0].Date)
	require.Equal(t, 0, occurrences[0].SlotIndex)
	require.Equal(t, Scheduled, occurrences[0].State)
}

func TestOccurrencesInRangeCancelledWeekThenNext(t *testing.T) {
	cancelled := date(2024, time.March, 6)
	slots := []Slot{{
		Weekday:     Wednesday,
		Start:       clock(t, "09:00"),
		End:         clock(t, "10:30"),
		Room:        "Lab 201",
		CancelledOn: &cancelled,
		Cancelled:   true,
	}}

	week, err := OccurrencesInRange(slots, date(2024, time.March, 4), date(2024, time.March, 10))
	require.NoError(t, err)
	require.Len(t, week, 1)
	require.Equal(t, Cancelled, week[0].State)

	next, err := OccurrencesInRange(slots, date(2024, time.March, 11), date(2024, time.March, 17))
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, date(2024, time.March, 13), next[0].Date)
	require.Equal(t, Scheduled, next[0].State)
}

func TestOccurrencesInRangeOrdering(t *testing.T) {
	slots := []Slot{
		{Weekday: Wednesday, Start: clock(t, "13:15"), End: clock(t, "14:45")},
		{Weekday: Monday, Start: clock(t, "08:00"), End: clock(t, "09:30")},
		{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30")},
		// Same start time as the first Wednesday slot: input order decides.
		{Weekday: Wednesday, Start: clock(t, "13:15"), End: clock(t, "15:00")},
	}

	occurrences, err := OccurrencesInRange(slots, date(2024, time.March, 4), date(2024, time.March, 10))
	require.NoError(t, err)
	require.Len(t, occurrences, 4)

	require.Equal(t, date(2024, time.March, 4), occurrences[0].Date)
	require.Equal(t, 1, occurrences[0].SlotIndex)

	require.Equal(t, date(2024, time.March, 6), occurrences[1].Date)
	require.Equal(t, 2, occurrences[1].SlotIndex)
	require.Equal(t, 0, occurrences[2].SlotIndex)
	require.Equal(t, 3, occurrences[3].SlotIndex)
}

func TestOccurrencesInRangeIsIdempotent(t *testing.T) {
	slots := []Slot{
		{Weekday: Monday, Start: clock(t, "08:00"), End: clock(t, "09:30")},
		{Weekday: Friday, Start: clock(t, "13:15"), End: clock(t, "14:45")},
	}

	first, err := OccurrencesInRange(slots, date(2024, time.January, 1), date(2024, time.March, 31))
	require.NoError(t, err)
	second, err := OccurrencesInRange(slots, date(2024, time.January, 1), date(2024, time.March, 31))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestOccurrencesInRangeInvalidRange(t *testing.T) {
	slots := []Slot{{Weekday: Monday, Start: clock(t, "08:00"), End: clock(t, "09:30")}}

	occurrences, err := OccurrencesInRange(slots, date(2024, time.March, 10), date(2024, time.March, 4))
	require.ErrorIs(t, err, ErrInvalidRange)
	require.Empty(t, occurrences)
}

func TestOccurrencesInRangeSingleDay(t *testing.T) {
	slots := []Slot{{Weekday: Wednesday, Start: clock(t, "09:00"), End: clock(t, "10:30")}}

	occurrences, err := OccurrencesInRange(slots, date(2024, time.March, 6), date(2024, time.March, 6))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
}
