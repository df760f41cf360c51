package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission records a student's answers to a timed assessment. The unique
// index on (assignment_id, student_id) makes writes once-only: a second
// insert for the same pair fails at the database, which is how the
// double-submission race is closed.
type Submission struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	AssignmentID  uint           `gorm:"not null;uniqueIndex:idx_submission_once" json:"assignment_id"`
	StudentID     uint           `gorm:"not null;uniqueIndex:idx_submission_once" json:"student_id"`
	Answers       datatypes.JSON `gorm:"type:json" json:"answers"`
	Grade         *float64       `json:"grade"`
	MaxGrade      float64        `json:"max_grade"`
	AutoSubmitted bool           `json:"auto_submitted"`
	SubmittedAt   time.Time      `gorm:"not null" json:"submitted_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Assignment    Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student       User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// IsGraded reports whether every question has been scored.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
