package dto

import (
	"time"

	"github.com/ecolehub/cartable-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course.
type CourseCreateRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255"`
	TeacherID  uint   `json:"teacher_id" validate:"required"`
	ClassLabel string `json:"class_label" validate:"omitempty,max=64"`
}

// CourseUpdateRequest describes a partial course update.
type CourseUpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=255"`
	TeacherID  *uint   `json:"teacher_id" validate:"omitempty"`
	ClassLabel *string `json:"class_label" validate:"omitempty,max=64"`
}

// EnrollRequest identifies the student joining or leaving a course.
type EnrollRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
}

// CourseResponse is the serialized course representation.
type CourseResponse struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	TeacherID  uint           `json:"teacher_id"`
	Teacher    string         `json:"teacher,omitempty"`
	ClassLabel string         `json:"class_label"`
	Students   []UserResponse `json:"students,omitempty"`
	Slots      []SlotResponse `json:"slots,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewCourseResponse converts a model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:         model.ID,
		Name:       model.Name,
		TeacherID:  model.TeacherID,
		Teacher:    model.Teacher.Name,
		ClassLabel: model.ClassLabel,
		Students:   NewUserResponseSlice(model.Students),
		Slots:      NewSlotResponseSlice(model.Slots),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts a slice of models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
