package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
)

var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotCourseTeacher indicates the actor does not own the course.
	ErrNotCourseTeacher = errors.New("actor does not teach this course")
	// ErrNotATeacher indicates the designated owner cannot hold courses.
	ErrNotATeacher = errors.New("designated user is not a teacher")
	// ErrNotAStudent indicates the enrollment target is not a student account.
	ErrNotAStudent = errors.New("designated user is not a student")
)

// CourseService exposes course and enrollment use cases.
type CourseService interface {
	List(ctx context.Context, actor Actor) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Enroll(ctx context.Context, actor Actor, courseID uint, payload dto.EnrollRequest) (dto.CourseResponse, error)
	Unenroll(ctx context.Context, actor Actor, courseID, studentID uint) (dto.CourseResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseService builds a new course service.
func NewCourseService(courses repository.CourseRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courses,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

// List scopes the result to the actor: students see their enrollments,
// teachers their own courses, admins everything.
func (s *courseService) List(ctx context.Context, actor Actor) ([]dto.CourseResponse, error) {
	var (
		courses []models.Course
		err     error
	)

	switch actor.Role {
	case models.RoleStudent:
		courses, err = s.courses.ListByStudent(ctx, actor.ID)
	case models.RoleTeacher:
		courses, err = s.courses.ListByTeacher(ctx, actor.ID)
	default:
		courses, err = s.courses.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Create(ctx context.Context, actor Actor, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	teacherID := payload.TeacherID
	if !actor.IsAdmin() {
		// Teachers can only create courses they own themselves.
		teacherID = actor.ID
	}

	teacher, err := s.users.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrUserNotFound
		}
		return dto.CourseResponse{}, err
	}
	if !teacher.IsTeacher() {
		return dto.CourseResponse{}, ErrNotATeacher
	}

	course := models.Course{
		Name:       payload.Name,
		TeacherID:  teacher.ID,
		ClassLabel: payload.ClassLabel,
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Uint("teacher_id", teacher.ID).Msg("course created")

	return s.Get(ctx, course.ID)
}

func (s *courseService) Update(ctx context.Context, actor Actor, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.Name != nil {
		course.Name = *payload.Name
	}

	if payload.ClassLabel != nil {
		course.ClassLabel = *payload.ClassLabel
	}

	if payload.TeacherID != nil && *payload.TeacherID != course.TeacherID {
		if !actor.IsAdmin() {
			return dto.CourseResponse{}, ErrNotCourseTeacher
		}
		teacher, err := s.users.GetByID(ctx, *payload.TeacherID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CourseResponse{}, ErrUserNotFound
			}
			return dto.CourseResponse{}, err
		}
		if !teacher.IsTeacher() {
			return dto.CourseResponse{}, ErrNotATeacher
		}
		course.TeacherID = teacher.ID
		course.Teacher = teacher
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Msg("course updated")

	return s.Get(ctx, course.ID)
}

func (s *courseService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.ownedCourse(ctx, actor, id); err != nil {
		return err
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	s.logger.Info().Uint("course_id", id).Msg("course deleted")
	return nil
}

func (s *courseService) Enroll(ctx context.Context, actor Actor, courseID uint, payload dto.EnrollRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	student, err := s.users.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrUserNotFound
		}
		return dto.CourseResponse{}, err
	}
	if student.Role != models.RoleStudent {
		return dto.CourseResponse{}, ErrNotAStudent
	}

	if course.HasStudent(student.ID) {
		return dto.NewCourseResponse(course), nil
	}

	if err := s.courses.Enroll(ctx, courseID, student); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("student_id", student.ID).Msg("student enrolled")

	return s.Get(ctx, courseID)
}

func (s *courseService) Unenroll(ctx context.Context, actor Actor, courseID, studentID uint) (dto.CourseResponse, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return dto.CourseResponse{}, err
	}

	if err := s.courses.Unenroll(ctx, courseID, studentID); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("student_id", studentID).Msg("student unenrolled")

	return s.Get(ctx, courseID)
}

// ownedCourse fetches the course and verifies the actor may mutate it.
func (s *courseService) ownedCourse(ctx context.Context, actor Actor, id uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.ID {
		return models.Course{}, ErrNotCourseTeacher
	}

	return course, nil
}
