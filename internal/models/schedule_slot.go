package models

import (
	"time"

	"github.com/ecolehub/cartable-api/internal/timetable"
)

// ScheduleSlot is the persisted form of one weekly recurring class meeting.
// Weekday uses the ISO-8601 numbering (Monday=1..Sunday=7) and the times are
// stored as "HH:MM" strings; timetable.Slot is the validated in-memory form.
type ScheduleSlot struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	Weekday     int        `gorm:"not null" json:"weekday"`
	StartTime   string     `gorm:"size:5;not null" json:"start_time"`
	EndTime     string     `gorm:"size:5;not null" json:"end_time"`
	Room        string     `gorm:"size:120" json:"room"`
	CancelledOn *time.Time `json:"cancelled_on"`
	Cancelled   bool       `gorm:"not null;default:false" json:"cancelled"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Timetable converts the stored row into the pure slot value, parsing the
// clock strings. This is the only place persistence meets the timetable core.
func (s ScheduleSlot) Timetable() (timetable.Slot, error) {
	start, err := timetable.ParseClock(s.StartTime)
	if err != nil {
		return timetable.Slot{}, err
	}
	end, err := timetable.ParseClock(s.EndTime)
	if err != nil {
		return timetable.Slot{}, err
	}

	return timetable.Slot{
		Weekday:     timetable.Weekday(s.Weekday),
		Start:       start,
		End:         end,
		Room:        s.Room,
		CancelledOn: s.CancelledOn,
		Cancelled:   s.Cancelled,
	}, nil
}
