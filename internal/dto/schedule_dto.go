package dto

import (
	"time"

	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/timetable"
)

const dateLayout = "2006-01-02"

// SlotCreateRequest describes the payload for adding a recurring slot to a
// course schedule. Weekday uses ISO numbering: Monday=1 through Sunday=7.
type SlotCreateRequest struct {
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"required,len=5"`
	Room      string `json:"room" validate:"omitempty,max=120"`
}

// SlotUpdateRequest describes a partial slot update.
type SlotUpdateRequest struct {
	Weekday   *int    `json:"weekday" validate:"omitempty,min=1,max=7"`
	StartTime *string `json:"start_time" validate:"omitempty,len=5"`
	EndTime   *string `json:"end_time" validate:"omitempty,len=5"`
	Room      *string `json:"room" validate:"omitempty,max=120"`
}

// CancelOccurrenceRequest names the single calendar date being cancelled.
type CancelOccurrenceRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SlotResponse is the serialized slot representation.
type SlotResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Weekday     int       `json:"weekday"`
	WeekdayName string    `json:"weekday_name"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Room        string    `json:"room"`
	CancelledOn *string   `json:"cancelled_on,omitempty"`
	Cancelled   bool      `json:"cancelled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConflictWarning flags an advisory overlap against an existing slot. The
// save still succeeds; the client decides whether to surface the warning.
type ConflictWarning struct {
	SlotID    uint   `json:"slot_id"`
	CourseID  uint   `json:"course_id"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room"`
}

// SlotSaveResponse pairs the persisted slot with any overlap warnings.
type SlotSaveResponse struct {
	Slot     SlotResponse      `json:"slot"`
	Warnings []ConflictWarning `json:"warnings,omitempty"`
}

// CalendarEntryResponse is one resolved occurrence inside a calendar window.
type CalendarEntryResponse struct {
	Date       string `json:"date"`
	SlotID     uint   `json:"slot_id"`
	CourseID   uint   `json:"course_id"`
	CourseName string `json:"course_name,omitempty"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Room       string `json:"room"`
	State      string `json:"state"`
}

// NewSlotResponse converts a model into a DTO.
func NewSlotResponse(model models.ScheduleSlot) SlotResponse {
	response := SlotResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Weekday:     model.Weekday,
		WeekdayName: timetable.Weekday(model.Weekday).String(),
		StartTime:   model.StartTime,
		EndTime:     model.EndTime,
		Room:        model.Room,
		Cancelled:   model.Cancelled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if model.CancelledOn != nil {
		formatted := model.CancelledOn.Format(dateLayout)
		response.CancelledOn = &formatted
	}

	return response
}

// NewSlotResponseSlice converts a slice of models into DTOs.
func NewSlotResponseSlice(slots []models.ScheduleSlot) []SlotResponse {
	responses := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		responses = append(responses, NewSlotResponse(slot))
	}
	return responses
}

// NewConflictWarning converts an overlapping slot into its advisory form.
func NewConflictWarning(slot models.ScheduleSlot) ConflictWarning {
	return ConflictWarning{
		SlotID:    slot.ID,
		CourseID:  slot.CourseID,
		Weekday:   slot.Weekday,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Room:      slot.Room,
	}
}
