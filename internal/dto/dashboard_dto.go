package dto

import "time"

// DashboardSummary aggregates a student's workload at a glance.
type DashboardSummary struct {
	TotalAssignments  int     `json:"total_assignments"`
	PendingHomework   int     `json:"pending_homework"`
	OverdueHomework   int     `json:"overdue_homework"`
	CompletedHomework int     `json:"completed_homework"`
	SubmittedExams    int     `json:"submitted_exams"`
	AverageGrade      float64 `json:"average_grade"`
	CompletionRate    float64 `json:"completion_rate"`
}

// HomeworkItem is one assignment in the pending or overdue lists.
type HomeworkItem struct {
	AssignmentID uint      `json:"assignment_id"`
	CourseID     uint      `json:"course_id"`
	CourseName   string    `json:"course_name,omitempty"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Deadline     time.Time `json:"deadline"`
	Done         bool      `json:"done"`
	Overdue      bool      `json:"overdue"`
}

// StudentDashboardResponse is the aggregated dashboard payload.
type StudentDashboardResponse struct {
	Summary           DashboardSummary        `json:"summary"`
	Pending           []HomeworkItem          `json:"pending"`
	Overdue           []HomeworkItem          `json:"overdue"`
	UpcomingClasses   []CalendarEntryResponse `json:"upcoming_classes"`
	RecentSubmissions []SubmissionResponse    `json:"recent_submissions"`
	GeneratedAt       time.Time               `json:"generated_at"`
}
