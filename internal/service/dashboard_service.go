package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
	"github.com/ecolehub/cartable-api/internal/timetable"
)

const upcomingWindowDays = 7

// DashboardService produces the aggregated student dashboard.
type DashboardService interface {
	GetStudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	completions repository.CompletionRepository
	slots       repository.ScheduleSlotRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(courses repository.CourseRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, completions repository.CompletionRepository, slots repository.ScheduleSlotRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
		completions: completions,
		slots:       slots,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *dashboardService) GetStudentDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	courses, err := s.courses.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	courseNames := make(map[uint]string, len(courses))
	courseIDs := make([]uint, 0, len(courses))
	for _, course := range courses {
		courseNames[course.ID] = course.Name
		courseIDs = append(courseIDs, course.ID)
	}

	var assignments []models.Assignment
	if len(courseIDs) > 0 {
		assignments, _, err = s.assignments.List(ctx, repository.AssignmentFilter{CourseIDs: courseIDs})
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	completions, err := s.completions.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	upcoming, err := s.upcomingClasses(ctx, courseIDs, courseNames)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(studentID, assignments, submissions, completions, courseNames)
	response.UpcomingClasses = upcoming

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) buildResponse(studentID uint, assignments []models.Assignment, submissions []models.Submission, completions []models.Completion, courseNames map[uint]string) dto.StudentDashboardResponse {
	now := s.now()

	doneByAssignment := make(map[uint]bool, len(completions))
	for _, completion := range completions {
		doneByAssignment[completion.AssignmentID] = completion.Done
	}

	submittedByAssignment := make(map[uint]bool, len(submissions))
	for _, submission := range submissions {
		submittedByAssignment[submission.AssignmentID] = true
	}

	summary := dto.DashboardSummary{}
	var pending, overdue []dto.HomeworkItem
	var gradeTotal float64
	var gradedCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		isOverdue := assignment.IsPastDue(now)

		if assignment.IsTimed() {
			if submittedByAssignment[assignment.ID] {
				summary.SubmittedExams++
			}
			continue
		}

		done := doneByAssignment[assignment.ID]
		item := dto.HomeworkItem{
			AssignmentID: assignment.ID,
			CourseID:     assignment.CourseID,
			CourseName:   courseNames[assignment.CourseID],
			Title:        assignment.Title,
			Type:         assignment.Type,
			Deadline:     assignment.Deadline,
			Done:         done,
			Overdue:      isOverdue && !done,
		}

		switch {
		case done:
			summary.CompletedHomework++
		case isOverdue:
			summary.OverdueHomework++
			overdue = append(overdue, item)
		default:
			summary.PendingHomework++
			pending = append(pending, item)
		}
	}

	for _, submission := range submissions {
		if submission.Grade != nil && submission.MaxGrade > 0 {
			gradeTotal += *submission.Grade / submission.MaxGrade * 100
			gradedCount++
		}
	}
	if gradedCount > 0 {
		summary.AverageGrade = gradeTotal / float64(gradedCount)
	}

	homeworkTotal := summary.PendingHomework + summary.OverdueHomework + summary.CompletedHomework
	if homeworkTotal > 0 {
		summary.CompletionRate = float64(summary.CompletedHomework) / float64(homeworkTotal) * 100
	}

	recent := submissions
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return dto.StudentDashboardResponse{
		Summary:           summary,
		Pending:           pending,
		Overdue:           overdue,
		RecentSubmissions: dto.NewSubmissionResponseSlice(recent),
		GeneratedAt:       now,
	}
}

// upcomingClasses resolves the next week of occurrences for the student's
// courses, cancelled ones included so the client can strike them through.
func (s *dashboardService) upcomingClasses(ctx context.Context, courseIDs []uint, courseNames map[uint]string) ([]dto.CalendarEntryResponse, error) {
	if len(courseIDs) == 0 {
		return []dto.CalendarEntryResponse{}, nil
	}

	rows, err := s.slots.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	candidates := make([]timetable.Slot, 0, len(rows))
	sources := make([]models.ScheduleSlot, 0, len(rows))
	for _, row := range rows {
		candidate, err := row.Timetable()
		if err != nil {
			s.logger.Warn().Err(err).Uint("slot_id", row.ID).Msg("skipping malformed slot")
			continue
		}
		candidates = append(candidates, candidate)
		sources = append(sources, row)
	}

	now := s.now()
	occurrences, err := timetable.OccurrencesInRange(candidates, now, now.AddDate(0, 0, upcomingWindowDays))
	if err != nil {
		return nil, err
	}

	entries := make([]dto.CalendarEntryResponse, 0, len(occurrences))
	for _, occurrence := range occurrences {
		source := sources[occurrence.SlotIndex]
		entries = append(entries, dto.CalendarEntryResponse{
			Date:       occurrence.Date.Format(calendarDateLayout),
			SlotID:     source.ID,
			CourseID:   source.CourseID,
			CourseName: courseNames[source.CourseID],
			StartTime:  source.StartTime,
			EndTime:    source.EndTime,
			Room:       source.Room,
			State:      occurrence.State.String(),
		})
	}

	return entries, nil
}
