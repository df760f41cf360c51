package models

import "time"

// ExamAttempt marks a student as having started a timed assessment. The row
// is created when the availability gate allows a start and anchors the
// countdown; one attempt per (assignment, student).
type ExamAttempt struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_attempt_once" json:"assignment_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_attempt_once" json:"student_id"`
	StartedAt    time.Time `gorm:"not null" json:"started_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
