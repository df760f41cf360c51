package dto

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/ecolehub/cartable-api/internal/availability"
	"github.com/ecolehub/cartable-api/internal/models"
)

// AnswerPayload is one answer in an exam submission. Value carries the
// option index for mcq, "true"/"false" for true-false, and free text for
// open-ended questions.
type AnswerPayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

// ExamSubmitRequest carries a student's answers.
type ExamSubmitRequest struct {
	Answers []AnswerPayload `json:"answers" validate:"required,dive"`
}

// ExamStartResponse confirms a started attempt and its countdown anchor.
type ExamStartResponse struct {
	AssignmentID    uint      `json:"assignment_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ExamStatusResponse reports the start gate and countdown for one student.
type ExamStatusResponse struct {
	AssignmentID uint                   `json:"assignment_id"`
	Decision     string                 `json:"decision"`
	Deadline     time.Time              `json:"deadline"`
	Remaining    availability.Remaining `json:"remaining"`
	Started      bool                   `json:"started"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	Expired      bool                   `json:"expired"`
}

// SubmissionResponse is the serialized exam/quiz submission.
type SubmissionResponse struct {
	ID            uint            `json:"id"`
	AssignmentID  uint            `json:"assignment_id"`
	StudentID     uint            `json:"student_id"`
	Student       string          `json:"student,omitempty"`
	Answers       []models.Answer `json:"answers,omitempty"`
	Grade         *float64        `json:"grade"`
	MaxGrade      float64         `json:"max_grade"`
	AutoSubmitted bool            `json:"auto_submitted"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

// GradeRequest sets the final grade on a submission with open-ended answers.
type GradeRequest struct {
	Grade float64 `json:"grade" validate:"gte=0"`
}

// AnswersToJSON serializes graded answers into the stored JSON column.
func AnswersToJSON(answers []models.Answer) (datatypes.JSON, error) {
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// AnswersFromJSON deserializes the stored answer column.
func AnswersFromJSON(data datatypes.JSON) ([]models.Answer, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var answers []models.Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		StudentID:     model.StudentID,
		Student:       model.Student.Name,
		Grade:         model.Grade,
		MaxGrade:      model.MaxGrade,
		AutoSubmitted: model.AutoSubmitted,
		SubmittedAt:   model.SubmittedAt,
	}

	if answers, err := AnswersFromJSON(model.Answers); err == nil {
		response.Answers = answers
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
