package dto

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/ecolehub/cartable-api/internal/models"
)

// QuestionPayload carries one exam/quiz question on create and update.
type QuestionPayload struct {
	ID          string   `json:"id" validate:"required"`
	Type        string   `json:"type" validate:"required,oneof=mcq true-false open-ended"`
	Prompt      string   `json:"prompt" validate:"required"`
	Options     []string `json:"options" validate:"omitempty,max=10"`
	CorrectIdx  *int     `json:"correct_index" validate:"omitempty,min=0"`
	CorrectBool *bool    `json:"correct_bool"`
	Points      float64  `json:"points" validate:"required,gt=0"`
}

// AssignmentCreateRequest describes the payload for creating an assignment.
// DurationMinutes is required for exams and quizzes; the service enforces it
// since the rule spans two fields.
type AssignmentCreateRequest struct {
	CourseID        uint              `json:"course_id" validate:"required"`
	Title           string            `json:"title" validate:"required,min=3,max=255"`
	Description     string            `json:"description" validate:"required,min=10"`
	Type            string            `json:"type" validate:"required,oneof=homework exam quiz"`
	Location        string            `json:"location" validate:"omitempty,oneof=online in-person"`
	Deadline        string            `json:"deadline" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int              `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
	Questions       []QuestionPayload `json:"questions" validate:"omitempty,dive"`
}

// AssignmentUpdateRequest describes a partial assignment update. Type is
// immutable after creation.
type AssignmentUpdateRequest struct {
	Title           *string           `json:"title" validate:"omitempty,min=3,max=255"`
	Description     *string           `json:"description" validate:"omitempty,min=10"`
	Location        *string           `json:"location" validate:"omitempty,oneof=online in-person"`
	Deadline        *string           `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int              `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
	Questions       []QuestionPayload `json:"questions" validate:"omitempty,dive"`
}

// AssignmentListRequest defines filters for assignment listings.
type AssignmentListRequest struct {
	CourseID *uint  `query:"course_id"`
	Type     string `query:"type" validate:"omitempty,oneof=homework exam quiz"`
	Search   string `query:"search" validate:"omitempty,max=255"`
	Sort     string `query:"sort" validate:"omitempty,max=32"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// AssignmentResponse is the serialized assignment returned to API clients.
// Question answer keys are stripped: clients only see prompts and options.
type AssignmentResponse struct {
	ID              uint               `json:"id"`
	CourseID        uint               `json:"course_id"`
	TeacherID       uint               `json:"teacher_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Type            string             `json:"type"`
	Location        string             `json:"location,omitempty"`
	Deadline        time.Time          `json:"deadline"`
	Open            bool               `json:"open"`
	DurationMinutes *int               `json:"duration_minutes,omitempty"`
	Questions       []QuestionResponse `json:"questions,omitempty"`
	AttachmentURL   string             `json:"attachment_url,omitempty"`
	CompletedCount  int                `json:"completed_count"`
	SubmissionCount int                `json:"submission_count"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// QuestionResponse is a question without its answer key.
type QuestionResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Points  float64  `json:"points"`
}

// AssignmentListResponse is a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
	Search     string               `json:"search,omitempty"`
}

// CompletionToggleRequest carries the new homework done flag.
type CompletionToggleRequest struct {
	Done bool `json:"done"`
}

// CompletionResponse reflects a student's homework done flag.
type CompletionResponse struct {
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	Done         bool      `json:"done"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QuestionsToJSON serializes question payloads into the stored JSON column.
func QuestionsToJSON(payloads []QuestionPayload) (datatypes.JSON, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	questions := make([]models.Question, 0, len(payloads))
	for _, payload := range payloads {
		questions = append(questions, models.Question{
			ID:          payload.ID,
			Type:        payload.Type,
			Prompt:      payload.Prompt,
			Options:     payload.Options,
			CorrectIdx:  payload.CorrectIdx,
			CorrectBool: payload.CorrectBool,
			Points:      payload.Points,
		})
	}

	data, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// QuestionsFromJSON deserializes the stored question column.
func QuestionsFromJSON(data datatypes.JSON) ([]models.Question, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// NewAssignmentResponse converts a model into a DTO, hiding answer keys.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:              model.ID,
		CourseID:        model.CourseID,
		TeacherID:       model.TeacherID,
		Title:           model.Title,
		Description:     model.Description,
		Type:            model.Type,
		Location:        model.Location,
		Deadline:        model.Deadline,
		Open:            model.Open,
		DurationMinutes: model.DurationMinutes,
		AttachmentURL:   model.AttachmentURL,
		SubmissionCount: len(model.Submissions),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	for _, completion := range model.Completions {
		if completion.Done {
			response.CompletedCount++
		}
	}

	if questions, err := QuestionsFromJSON(model.Questions); err == nil {
		for _, question := range questions {
			response.Questions = append(response.Questions, QuestionResponse{
				ID:      question.ID,
				Type:    question.Type,
				Prompt:  question.Prompt,
				Options: question.Options,
				Points:  question.Points,
			})
		}
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
