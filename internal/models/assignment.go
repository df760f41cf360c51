package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment types. Exams and quizzes are timed assessments; homework is
// open-ended and tracked through completions instead of submissions.
const (
	AssignmentTypeHomework = "homework"
	AssignmentTypeExam     = "exam"
	AssignmentTypeQuiz     = "quiz"
)

// Assignment location kinds, only meaningful for timed assessments.
const (
	LocationOnline   = "online"
	LocationInPerson = "in-person"
)

// Assignment is a unit of work a teacher hands out for a course: homework,
// an exam, or a quiz, discriminated by Type.
type Assignment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	TeacherID       uint           `gorm:"not null;index" json:"teacher_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Type            string         `gorm:"size:16;not null;default:homework" json:"type"`
	Location        string         `gorm:"size:16" json:"location"`
	Deadline        time.Time      `gorm:"not null" json:"deadline"`
	Open            bool           `gorm:"not null;default:false" json:"open"`
	DurationMinutes *int           `json:"duration_minutes"`
	Questions       datatypes.JSON `gorm:"type:json" json:"questions,omitempty"`
	AttachmentURL   string         `gorm:"size:512" json:"attachment_url"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Submissions     []Submission   `json:"submissions,omitempty"`
	Completions     []Completion   `json:"completions,omitempty"`
}

// IsTimed reports whether the assignment is a gated, countdown-driven
// assessment rather than open-ended homework.
func (a Assignment) IsTimed() bool {
	return a.Type == AssignmentTypeExam || a.Type == AssignmentTypeQuiz
}

// IsPastDue returns true when the deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.Deadline)
}

// SubmissionFrom returns the student's submission from the preloaded
// association, if one exists.
func (a Assignment) SubmissionFrom(studentID uint) (Submission, bool) {
	for _, submission := range a.Submissions {
		if submission.StudentID == studentID {
			return submission, true
		}
	}
	return Submission{}, false
}
