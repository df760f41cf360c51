package models

import "time"

// Completion is a student's done flag on a homework assignment. One row per
// (assignment, student); toggling flips Done rather than inserting again.
type Completion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:idx_completion_once" json:"assignment_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_completion_once" json:"student_id"`
	Done         bool      `gorm:"not null;default:false" json:"done"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
