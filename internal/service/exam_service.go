package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/availability"
	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
)

var (
	// ErrExamClosed indicates the start gate refused the student.
	ErrExamClosed = errors.New("assessment is not available yet")
	// ErrAlreadySubmitted indicates a submission already exists; answers are
	// write-once and resubmission is refused.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrNotStarted indicates a submission arrived without a prior start.
	ErrNotStarted = errors.New("assessment was not started")
	// ErrSubmissionNotFound indicates the requested submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// ExamService runs the lifecycle of timed assessments: the start gate, the
// countdown anchored at the first start, and the one-shot submission.
type ExamService interface {
	Status(ctx context.Context, assignmentID, studentID uint) (dto.ExamStatusResponse, error)
	Start(ctx context.Context, assignmentID, studentID uint) (dto.ExamStartResponse, error)
	Submit(ctx context.Context, assignmentID, studentID uint, payload dto.ExamSubmitRequest) (dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, actor Actor, assignmentID uint) ([]dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
}

type examService struct {
	assignments repository.AssignmentRepository
	attempts    repository.ExamAttemptRepository
	submissions repository.SubmissionRepository
	courses     repository.CourseRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewExamService builds a new exam service.
func NewExamService(assignments repository.AssignmentRepository, attempts repository.ExamAttemptRepository, submissions repository.SubmissionRepository, courses repository.CourseRepository, logger zerolog.Logger) ExamService {
	return &examService{
		assignments: assignments,
		attempts:    attempts,
		submissions: submissions,
		courses:     courses,
		logger:      logger.With().Str("component", "exam_service").Logger(),
		tracer:      otel.Tracer("github.com/ecolehub/cartable-api/internal/service/exam"),
		now:         time.Now,
	}
}

// Status reports the start gate decision, the deadline countdown, and the
// running attempt, if any.
func (s *examService) Status(ctx context.Context, assignmentID, studentID uint) (dto.ExamStatusResponse, error) {
	assignment, err := s.timedAssignment(ctx, assignmentID)
	if err != nil {
		return dto.ExamStatusResponse{}, err
	}

	now := s.now()
	decision, err := availability.CanStart(assignment, studentID, now)
	if err != nil {
		return dto.ExamStatusResponse{}, err
	}

	response := dto.ExamStatusResponse{
		AssignmentID: assignment.ID,
		Decision:     decision.String(),
		Deadline:     assignment.Deadline,
		Remaining:    availability.TimeRemaining(assignment.Deadline, now),
	}

	attempt, err := s.attempts.Get(ctx, assignmentID, studentID)
	switch {
	case err == nil:
		startedAt := attempt.StartedAt
		response.Started = true
		response.StartedAt = &startedAt
		if assignment.DurationMinutes != nil {
			expiresAt := startedAt.Add(time.Duration(*assignment.DurationMinutes) * time.Minute)
			response.ExpiresAt = &expiresAt
			response.Expired = availability.CountdownExpired(startedAt, *assignment.DurationMinutes, now)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Not started yet.
	default:
		return dto.ExamStatusResponse{}, err
	}

	return response, nil
}

// Start opens an attempt for the student. The attempt row is write-once, so a
// second start, including a concurrent one, returns the original countdown
// anchor instead of resetting it.
func (s *examService) Start(ctx context.Context, assignmentID, studentID uint) (dto.ExamStartResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "exam.start", trace.WithAttributes(
		attribute.Int("exam.assignment_id", int(assignmentID)),
		attribute.Int("exam.student_id", int(studentID)),
	))
	defer span.End()

	assignment, err := s.timedAssignment(spanCtx, assignmentID)
	if err != nil {
		span.RecordError(err)
		return dto.ExamStartResponse{}, err
	}

	if err := s.requireEnrollment(spanCtx, assignment.CourseID, studentID); err != nil {
		span.RecordError(err)
		return dto.ExamStartResponse{}, err
	}

	now := s.now()
	decision, err := availability.CanStart(assignment, studentID, now)
	if err != nil {
		span.RecordError(err)
		return dto.ExamStartResponse{}, err
	}

	switch decision {
	case availability.AlreadySubmitted:
		return dto.ExamStartResponse{}, ErrAlreadySubmitted
	case availability.Closed:
		return dto.ExamStartResponse{}, ErrExamClosed
	}

	attempt := models.ExamAttempt{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		StartedAt:    now,
	}

	if err := s.attempts.CreateOnce(spanCtx, &attempt); err != nil {
		if errors.Is(err, repository.ErrConflictingWrite) {
			existing, getErr := s.attempts.Get(spanCtx, assignmentID, studentID)
			if getErr != nil {
				return dto.ExamStartResponse{}, getErr
			}
			attempt = existing
		} else {
			span.RecordError(err)
			return dto.ExamStartResponse{}, err
		}
	} else {
		s.logger.Info().Uint("assignment_id", assignmentID).Uint("student_id", studentID).Msg("attempt started")
	}

	duration := 0
	if assignment.DurationMinutes != nil {
		duration = *assignment.DurationMinutes
	}

	return dto.ExamStartResponse{
		AssignmentID:    assignmentID,
		StartedAt:       attempt.StartedAt,
		DurationMinutes: duration,
		ExpiresAt:       attempt.StartedAt.Add(time.Duration(duration) * time.Minute),
	}, nil
}

// Submit records the student's answers exactly once. Closed-form questions
// are graded immediately; a submission arriving after the countdown expired
// is still recorded, flagged as auto-submitted.
func (s *examService) Submit(ctx context.Context, assignmentID, studentID uint, payload dto.ExamSubmitRequest) (dto.SubmissionResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "exam.submit", trace.WithAttributes(
		attribute.Int("exam.assignment_id", int(assignmentID)),
		attribute.Int("exam.student_id", int(studentID)),
	))
	defer span.End()

	assignment, err := s.timedAssignment(spanCtx, assignmentID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	attempt, err := s.attempts.Get(spanCtx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrNotStarted
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	questions, err := dto.QuestionsFromJSON(assignment.Questions)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	graded, score, maxGrade, fullyGraded := gradeAnswers(questions, payload.Answers)

	answersJSON, err := dto.AnswersToJSON(graded)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	expired := false
	if assignment.DurationMinutes != nil {
		expired = availability.CountdownExpired(attempt.StartedAt, *assignment.DurationMinutes, now)
	}

	submission := models.Submission{
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		Answers:       answersJSON,
		MaxGrade:      maxGrade,
		AutoSubmitted: expired,
		SubmittedAt:   now,
	}
	if fullyGraded {
		submission.Grade = &score
	}

	if err := s.submissions.CreateOnce(spanCtx, &submission); err != nil {
		if errors.Is(err, repository.ErrConflictingWrite) {
			return dto.SubmissionResponse{}, ErrAlreadySubmitted
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("student_id", studentID).
		Bool("auto_submitted", expired).
		Msg("assessment submitted")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *examService) ListSubmissions(ctx context.Context, actor Actor, assignmentID uint) ([]dto.SubmissionResponse, error) {
	assignment, err := s.timedAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && assignment.TeacherID != actor.ID {
		return nil, ErrNotCourseTeacher
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Grade sets the final grade on a submission that has open-ended answers.
func (s *examService) Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !actor.IsAdmin() && submission.Assignment.TeacherID != actor.ID {
		return dto.SubmissionResponse{}, ErrNotCourseTeacher
	}

	graded, err := s.submissions.Grade(ctx, submissionID, payload.Grade)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submissionID).Float64("grade", payload.Grade).Msg("submission graded")

	return dto.NewSubmissionResponse(graded), nil
}

func (s *examService) timedAssignment(ctx context.Context, assignmentID uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !assignment.IsTimed() {
		return models.Assignment{}, availability.ErrNotTimed
	}

	return assignment, nil
}

func (s *examService) requireEnrollment(ctx context.Context, courseID, studentID uint) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !course.HasStudent(studentID) {
		return ErrNotEnrolled
	}
	return nil
}

// gradeAnswers scores closed-form questions against their answer keys.
// Open-ended answers stay unscored; fullyGraded is false when any are
// present, leaving the final grade to the teacher.
func gradeAnswers(questions []models.Question, answers []dto.AnswerPayload) (graded []models.Answer, score, maxGrade float64, fullyGraded bool) {
	byQuestion := make(map[string]string, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer.Value
	}

	fullyGraded = true
	graded = make([]models.Answer, 0, len(questions))

	for _, question := range questions {
		maxGrade += question.Points
		value := byQuestion[question.ID]
		answer := models.Answer{QuestionID: question.ID, Value: value}

		switch question.Type {
		case models.QuestionMCQ:
			correct := false
			if question.CorrectIdx != nil {
				if idx, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
					correct = idx == *question.CorrectIdx
				}
			}
			answer.Correct = &correct
			points := 0.0
			if correct {
				points = question.Points
				score += points
			}
			answer.Points = &points
		case models.QuestionTrueFalse:
			correct := false
			if question.CorrectBool != nil {
				if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
					correct = parsed == *question.CorrectBool
				}
			}
			answer.Correct = &correct
			points := 0.0
			if correct {
				points = question.Points
				score += points
			}
			answer.Points = &points
		default:
			// Open-ended: graded by hand later.
			fullyGraded = false
		}

		graded = append(graded, answer)
	}

	return graded, score, maxGrade, fullyGraded
}
